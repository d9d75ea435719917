// Package merge joins two datasets on a key column pair.
package merge

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapmerge/internal/normalize"
	"github.com/leapstack-labs/leapmerge/pkg/dataset"
)

// ConflictSuffix is appended to right-hand columns whose names clash with a
// left-hand column.
const ConflictSuffix = "_right"

var (
	// ErrNotLoaded is returned when either input dataset is missing.
	ErrNotLoaded = errors.New("files not loaded")
	// ErrColumnNotFound is returned when a key column does not exist.
	ErrColumnNotFound = errors.New("column not found")
)

// Result is the outcome of a successful merge.
type Result struct {
	ID        uuid.UUID         `json:"id" yaml:"id"`
	Dataset   *dataset.Dataset  `json:"-" yaml:"-"`
	Key       string            `json:"key" yaml:"key"`
	RightKey  string            `json:"right_key" yaml:"right_key"`
	Join      JoinType          `json:"join" yaml:"join"`
	Renamed   map[string]string `json:"renamed" yaml:"renamed"`
	LeftRows  int               `json:"left_rows" yaml:"left_rows"`
	RightRows int               `json:"right_rows" yaml:"right_rows"`
	Matched   int               `json:"matched_rows" yaml:"matched_rows"`
	Rows      int               `json:"rows" yaml:"rows"`
	Columns   int               `json:"columns" yaml:"columns"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
}

// Execute joins left and right on colA = colB. Neither input is modified.
//
// Key values in the output are trimmed and suffix-stripped; rows are matched
// on the case-folded token of their key, and rows whose key is absent never
// match. Right-hand key column colB is unified into colA. Every other
// right-hand column whose name is already taken gets ConflictSuffix appended
// until it is unique.
//
// Output order: left and inner follow the left rows, with multiple matches
// in right order. right follows the right rows. outer is the left join
// followed by the unmatched right rows in right order.
func Execute(n normalize.Normalizer, left *dataset.Dataset, colA string, right *dataset.Dataset, colB string, join JoinType) (*Result, error) {
	if left == nil || right == nil {
		return nil, ErrNotLoaded
	}
	if !left.HasColumn(colA) {
		return nil, fmt.Errorf("%w: Column '%s' not found in first file", ErrColumnNotFound, colA)
	}
	if !right.HasColumn(colB) {
		return nil, fmt.Errorf("%w: Column '%s' not found in second file", ErrColumnNotFound, colB)
	}
	join, err := ParseJoinType(string(join))
	if err != nil {
		return nil, err
	}

	l := left.Clone()
	r := right.Clone()
	normalizeKey(n, l, colA)
	normalizeKey(n, r, colB)

	rightCols, renamed := resolveColumns(l.Columns, r.Columns, colA, colB)
	cols := append(append([]string{}, l.Columns...), rightOutputNames(rightCols)...)

	j := &joiner{
		n:         n,
		left:      l,
		right:     r,
		colA:      colA,
		colB:      colB,
		rightCols: rightCols,
		cols:      cols,
	}
	rows := j.run(join)

	out := &dataset.Dataset{Name: "merged", Columns: cols, Rows: rows}
	return &Result{
		ID:        uuid.New(),
		Dataset:   out,
		Key:       colA,
		RightKey:  colB,
		Join:      join,
		Renamed:   renamed,
		LeftRows:  left.Len(),
		RightRows: right.Len(),
		Matched:   j.matched,
		Rows:      len(rows),
		Columns:   len(cols),
		CreatedAt: time.Now(),
	}, nil
}

// normalizeKey rewrites col in place with its display key. Absent values
// are kept as they are.
func normalizeKey(n normalize.Normalizer, ds *dataset.Dataset, col string) {
	for _, row := range ds.Rows {
		if k := n.Key(row[col]); k != "" {
			row[col] = k
		}
	}
}

// columnMapping pairs a right-hand source column with its output name.
type columnMapping struct {
	source string
	target string
}

func rightOutputNames(m []columnMapping) []string {
	out := make([]string, len(m))
	for i, c := range m {
		out[i] = c.target
	}
	return out
}

// resolveColumns assigns output names to the non-key right columns.
func resolveColumns(leftCols, rightCols []string, colA, colB string) ([]columnMapping, map[string]string) {
	taken := make(map[string]struct{}, len(leftCols)+len(rightCols))
	for _, c := range leftCols {
		taken[c] = struct{}{}
	}
	taken[colA] = struct{}{}

	renamed := make(map[string]string)
	var out []columnMapping
	for _, c := range rightCols {
		if c == colB {
			continue
		}
		name := c
		for {
			if _, clash := taken[name]; !clash {
				break
			}
			name += ConflictSuffix
		}
		taken[name] = struct{}{}
		if name != c {
			renamed[c] = name
		}
		out = append(out, columnMapping{source: c, target: name})
	}
	return out, renamed
}

type joiner struct {
	n         normalize.Normalizer
	left      *dataset.Dataset
	right     *dataset.Dataset
	colA      string
	colB      string
	rightCols []columnMapping
	cols      []string
	matched   int
}

func (j *joiner) run(join JoinType) []dataset.Row {
	switch join {
	case JoinRight:
		return j.rightJoin()
	case JoinInner:
		rows, _ := j.leftJoin(false)
		return rows
	case JoinOuter:
		rows, seen := j.leftJoin(true)
		for ri, rr := range j.right.Rows {
			if !seen[ri] {
				rows = append(rows, j.combine(nil, rr))
			}
		}
		return rows
	default:
		rows, _ := j.leftJoin(true)
		return rows
	}
}

// leftJoin walks the left rows. keepUnmatched decides whether rows without
// a match are emitted. The returned slice marks right rows that matched.
func (j *joiner) leftJoin(keepUnmatched bool) ([]dataset.Row, []bool) {
	idx := index(j.n, j.right, j.colB)
	seen := make([]bool, j.right.Len())
	rows := make([]dataset.Row, 0, j.left.Len())
	for _, lr := range j.left.Rows {
		matches := idx[j.token(lr[j.colA])]
		if len(matches) == 0 {
			if keepUnmatched {
				rows = append(rows, j.combine(lr, nil))
			}
			continue
		}
		for _, ri := range matches {
			seen[ri] = true
			rows = append(rows, j.combine(lr, j.right.Rows[ri]))
		}
	}
	return rows, seen
}

func (j *joiner) rightJoin() []dataset.Row {
	idx := index(j.n, j.left, j.colA)
	rows := make([]dataset.Row, 0, j.right.Len())
	for _, rr := range j.right.Rows {
		matches := idx[j.token(rr[j.colB])]
		if len(matches) == 0 {
			rows = append(rows, j.combine(nil, rr))
			continue
		}
		for _, li := range matches {
			rows = append(rows, j.combine(j.left.Rows[li], rr))
		}
	}
	return rows
}

// token returns the match token of v, or "" for absent values. The empty
// string is never an index key.
func (j *joiner) token(v any) string {
	tok := j.n.Token(v)
	if normalize.IsAbsent(tok) {
		return ""
	}
	return tok
}

// combine builds an output row. Either side may be nil; the key comes from
// the left row when present.
func (j *joiner) combine(lr, rr dataset.Row) dataset.Row {
	out := make(dataset.Row, len(j.cols))
	for _, c := range j.left.Columns {
		if lr != nil {
			out[c] = lr[c]
		} else {
			out[c] = nil
		}
	}
	for _, m := range j.rightCols {
		if rr != nil {
			out[m.target] = rr[m.source]
		} else {
			out[m.target] = nil
		}
	}
	if lr == nil && rr != nil {
		out[j.colA] = rr[j.colB]
	}
	if lr != nil && rr != nil {
		j.matched++
	}
	return out
}

// index maps each present key token of col to the positions of its rows.
func index(n normalize.Normalizer, ds *dataset.Dataset, col string) map[string][]int {
	idx := make(map[string][]int, ds.Len())
	for i, row := range ds.Rows {
		tok := n.Token(row[col])
		if normalize.IsAbsent(tok) {
			continue
		}
		idx[tok] = append(idx[tok], i)
	}
	return idx
}
