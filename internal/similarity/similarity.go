// Package similarity scores how likely two columns are to be the same join
// key, from their names and from the values they share.
package similarity

import (
	"math"
	"strings"

	"github.com/leapstack-labs/leapmerge/internal/normalize"
	lev "github.com/texttheater/golang-levenshtein/levenshtein"
)

// Weights of the combined score.
const (
	NameWeight    = 0.3
	OverlapWeight = 0.7
)

// NameSimilarity returns the case-folded edit-distance ratio of two column
// names in [0,1], rounded to whole percent. Substitutions cost 2, which gives
// the (len(a)+len(b)-distance)/(len(a)+len(b)) ratio used by common fuzzy
// matching libraries.
func NameSimilarity(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	if string(ra) == string(rb) {
		return 1
	}
	ratio := lev.RatioForStrings(ra, rb, lev.DefaultOptions)
	return math.Round(ratio*100) / 100
}

// TokenSet is a set of normalized values.
type TokenSet map[string]struct{}

// NewTokenSet tokenizes values with n and drops absent tokens.
func NewTokenSet(n normalize.Normalizer, values []any) TokenSet {
	s := make(TokenSet, len(values))
	for _, v := range values {
		s.Add(n.Token(v))
	}
	return s
}

// Add inserts token unless it is absent.
func (s TokenSet) Add(token string) {
	if normalize.IsAbsent(token) {
		return
	}
	s[token] = struct{}{}
}

// Len returns the number of tokens.
func (s TokenSet) Len() int { return len(s) }

// IntersectionCount returns |s ∩ o|.
func (s TokenSet) IntersectionCount(o TokenSet) int {
	small, large := s, o
	if len(small) > len(large) {
		small, large = large, small
	}
	n := 0
	for t := range small {
		if _, ok := large[t]; ok {
			n++
		}
	}
	return n
}

// ValueOverlap returns |a∩b| / min(|a|, |b|) after discarding absent tokens.
// ok is false when either side has no usable tokens; such a pair has no
// defined overlap and should be skipped.
func ValueOverlap(a, b TokenSet) (overlap float64, ok bool) {
	ca, cb := clean(a), clean(b)
	if len(ca) == 0 || len(cb) == 0 {
		return 0, false
	}
	smaller := min(len(ca), len(cb))
	return float64(ca.IntersectionCount(cb)) / float64(smaller), true
}

// clean returns s without absent tokens, copying only when needed.
func clean(s TokenSet) TokenSet {
	dirty := false
	for t := range s {
		if normalize.IsAbsent(t) {
			dirty = true
			break
		}
	}
	if !dirty {
		return s
	}
	out := make(TokenSet, len(s))
	for t := range s {
		out.Add(t)
	}
	return out
}

// Combined blends name similarity and value overlap into one score.
func Combined(name, overlap float64) float64 {
	return NameWeight*name + OverlapWeight*overlap
}
