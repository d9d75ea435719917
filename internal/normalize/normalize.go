// Package normalize canonicalizes raw cell values into comparable tokens.
//
// A single rule set is used by key detection, key validation and the merge
// executor, so a pair of values that the detector counts as matching will
// also be joined by the merge.
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// SuffixRule selects how spurious numeric suffixes such as the ".0" left
// behind by spreadsheet float coercion are removed.
type SuffixRule string

const (
	// SuffixDecimal strips a zero fraction only from values that are entirely
	// a decimal number: "123.0" and "123.00" become "123"; "V1.05" is kept.
	SuffixDecimal SuffixRule = "decimal"

	// SuffixLiteral removes every ".0" substring anywhere in the value.
	// Known limitation: it corrupts codes such as "V1.05" and is not
	// idempotent for inputs like "..00".
	SuffixLiteral SuffixRule = "literal"
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *SuffixRule) UnmarshalText(text []byte) error {
	rule, err := ParseSuffixRule(string(text))
	if err != nil {
		return err
	}
	*r = rule
	return nil
}

// ParseSuffixRule parses a rule name. The empty string selects SuffixDecimal.
func ParseSuffixRule(s string) (SuffixRule, error) {
	switch SuffixRule(strings.ToLower(strings.TrimSpace(s))) {
	case "", SuffixDecimal:
		return SuffixDecimal, nil
	case SuffixLiteral:
		return SuffixLiteral, nil
	default:
		return "", fmt.Errorf("unknown suffix rule %q (expected decimal or literal)", s)
	}
}

var zeroFraction = regexp.MustCompile(`^([+-]?\d+)\.0+$`)

// absent lists the tokens treated as missing values.
var absent = map[string]struct{}{
	"":     {},
	"NAN":  {},
	"NONE": {},
	"NULL": {},
}

// Normalizer turns raw values into tokens. The zero value uses SuffixDecimal.
type Normalizer struct {
	Rule SuffixRule
}

// Default is the normalizer used when no rule is configured.
var Default = Normalizer{Rule: SuffixDecimal}

// Token returns the canonical comparison form of v: trimmed, suffix-stripped
// and upper-cased. Null and NaN values yield "".
func (n Normalizer) Token(v any) string {
	return strings.ToUpper(n.Key(v))
}

// Key is Token without case folding. It is the display form written into the
// key column of a merge result.
func (n Normalizer) Key(v any) string {
	s := strings.TrimSpace(Text(v))
	if s == "" {
		return ""
	}
	return n.stripSuffix(s)
}

func (n Normalizer) stripSuffix(s string) string {
	if n.Rule == SuffixLiteral {
		return strings.ReplaceAll(s, ".0", "")
	}
	if m := zeroFraction.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// IsAbsent reports whether token stands for a missing value.
func IsAbsent(token string) bool {
	_, ok := absent[token]
	return ok
}

// Text converts a scalar to its textual form. Integral floats are written
// without a fraction so that 5.0 read from a spreadsheet compares equal to
// the string "5".
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case float64:
		return formatFloat(x, 64)
	case float32:
		return formatFloat(float64(x), 32)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(f float64, bits int) string {
	if math.IsNaN(f) {
		return ""
	}
	if math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, bits)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}
