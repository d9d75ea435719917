package merge

import (
	"errors"
	"fmt"
	"strings"
)

// JoinType selects which rows survive a merge.
type JoinType string

// Supported join types.
const (
	JoinLeft  JoinType = "left"
	JoinRight JoinType = "right"
	JoinInner JoinType = "inner"
	JoinOuter JoinType = "outer"
)

// ErrUnknownJoinType is returned for join names other than left, right,
// inner and outer.
var ErrUnknownJoinType = errors.New("unknown join type")

// JoinTypes lists the supported join types in display order.
func JoinTypes() []JoinType {
	return []JoinType{JoinLeft, JoinRight, JoinInner, JoinOuter}
}

// ParseJoinType parses a join name case-insensitively. The empty string
// selects JoinLeft.
func ParseJoinType(s string) (JoinType, error) {
	switch j := JoinType(strings.ToLower(strings.TrimSpace(s))); j {
	case "":
		return JoinLeft, nil
	case JoinLeft, JoinRight, JoinInner, JoinOuter:
		return j, nil
	default:
		return "", fmt.Errorf("%w %q (expected left, right, inner or outer)", ErrUnknownJoinType, s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (j *JoinType) UnmarshalText(text []byte) error {
	parsed, err := ParseJoinType(string(text))
	if err != nil {
		return err
	}
	*j = parsed
	return nil
}

func (j JoinType) String() string { return string(j) }

// Description is a short human-readable explanation of the join.
func (j JoinType) Description() string {
	switch j {
	case JoinLeft:
		return "keep every row of the first file"
	case JoinRight:
		return "keep every row of the second file"
	case JoinInner:
		return "keep only rows matched in both files"
	case JoinOuter:
		return "keep every row of both files"
	default:
		return ""
	}
}
