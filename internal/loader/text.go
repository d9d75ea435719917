package loader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/leapmerge/pkg/dataset"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func (l *Loader) loadDelimited(path string, comma rune, detect bool) (*dataset.Dataset, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // user-supplied input path
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	data := bytes.TrimPrefix(raw, utf8BOM)
	if detect {
		var name string
		data, name, err = decode(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		l.logger.Debug("detected encoding", slog.String("path", path), slog.String("encoding", name))
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return build(filepath.Base(path), records), nil
}

func (l *Loader) loadExcel(path string) (*dataset.Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets in %s", ErrEmptyDataset, path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	l.logger.Debug("read worksheet", slog.String("sheet", sheets[0]), slog.Int("rows", len(rows)))
	return build(filepath.Base(path), rows), nil
}

// decode converts raw CSV bytes to UTF-8. A BOM selects UTF-8 or UTF-16;
// otherwise input that is not valid UTF-8 is read as Windows-1252.
func decode(raw []byte) ([]byte, string, error) {
	var (
		enc  encoding.Encoding
		name string
	)
	switch {
	case bytes.HasPrefix(raw, utf8BOM):
		return raw[len(utf8BOM):], "utf-8-sig", nil
	case bytes.HasPrefix(raw, []byte{0xFF, 0xFE}):
		enc, name = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), "utf-16le"
	case bytes.HasPrefix(raw, []byte{0xFE, 0xFF}):
		enc, name = unicode.UTF16(unicode.BigEndian, unicode.UseBOM), "utf-16be"
	case utf8.Valid(raw):
		return raw, "utf-8", nil
	default:
		enc, name = charmap.Windows1252, "windows-1252"
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return nil, name, err
	}
	return out, name, nil
}

// build turns a header row plus records into a typed dataset.
func build(name string, records [][]string) *dataset.Dataset {
	if len(records) == 0 {
		return &dataset.Dataset{Name: name}
	}
	header := CleanHeader(records[0])
	body := records[1:]

	cols := make([][]any, len(header))
	for i := range header {
		cells := make([]string, len(body))
		for r, rec := range body {
			if i < len(rec) {
				cells[r] = rec[i]
			}
		}
		cols[i] = typeColumn(cells)
	}

	rows := make([]dataset.Row, len(body))
	for r := range body {
		row := make(dataset.Row, len(header))
		for i, col := range header {
			row[col] = cols[i][r]
		}
		rows[r] = row
	}
	return &dataset.Dataset{Name: name, Columns: header, Rows: rows}
}

// CleanHeader trims column names, names blank columns "Unnamed: i" and
// suffixes duplicates with ".1", ".2" and so on.
func CleanHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	next := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if used[h] {
			base := h
			for {
				next[base]++
				h = fmt.Sprintf("%s.%d", base, next[base])
				if !used[h] {
					break
				}
			}
		}
		used[h] = true
		out[i] = h
	}
	return out
}

// typeColumn converts a column of cells to int64 when every non-blank cell is
// an integer, to float64 when every one is a number float64 holds exactly,
// and leaves strings otherwise. Digit-only cells that overflow int64 (long
// tracking numbers) keep the column as strings. Blank cells become nil.
func typeColumn(cells []string) []any {
	allInt, allFloat, numeric, wideInt := true, true, false, false
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		numeric = true
		if _, err := strconv.ParseInt(c, 10, 64); err == nil {
			wideInt = wideInt || significantDigits(c) > maxExactDigits
			continue
		}
		allInt = false
		if isDigits(c) {
			allFloat = false
			break
		}
		if _, err := strconv.ParseFloat(c, 64); err != nil || significantDigits(c) > maxExactDigits {
			allFloat = false
			break
		}
	}
	if wideInt {
		allFloat = false
	}

	out := make([]any, len(cells))
	for i, c := range cells {
		t := strings.TrimSpace(c)
		switch {
		case t == "":
			out[i] = nil
		case numeric && allInt:
			n, _ := strconv.ParseInt(t, 10, 64)
			out[i] = n
		case numeric && allFloat:
			f, _ := strconv.ParseFloat(t, 64)
			out[i] = f
		default:
			out[i] = c
		}
	}
	return out
}

// maxExactDigits is the number of significant decimal digits a float64
// always carries through a parse and format unchanged.
const maxExactDigits = 15

// isDigits reports whether s is an optionally signed run of ASCII digits.
func isDigits(s string) bool {
	s = strings.TrimLeft(s, "+-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// significantDigits counts the mantissa digits of a decimal number, ignoring
// leading and trailing zeros.
func significantDigits(s string) int {
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		s = s[:i]
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return len(strings.Trim(b.String(), "0"))
}
