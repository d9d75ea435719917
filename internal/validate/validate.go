// Package validate computes uniqueness and overlap diagnostics for a chosen
// join-key pair.
package validate

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapmerge/internal/normalize"
	"github.com/leapstack-labs/leapmerge/internal/similarity"
	"github.com/leapstack-labs/leapmerge/pkg/dataset"
)

// Warning texts.
const (
	WarnLowUniqueness = "Both columns have low uniqueness - may not be good merge keys"
	WarnLowOverlap    = "Low overlap between files - check if columns are compatible"
)

var (
	// ErrNotLoaded is returned when either dataset is missing.
	ErrNotLoaded = errors.New("files not loaded")
	// ErrColumnNotFound is returned when a key column does not exist.
	ErrColumnNotFound = errors.New("column not found")
)

// Options holds the warning thresholds.
type Options struct {
	MinUniqueness float64
	MinOverlap    float64
}

// DefaultOptions returns the standard warning thresholds.
func DefaultOptions() Options {
	return Options{MinUniqueness: 0.7, MinOverlap: 0.3}
}

// Report holds validation statistics for one key pair.
type Report struct {
	Valid           bool     `json:"valid" yaml:"valid"`
	File1Total      int      `json:"file1_total" yaml:"file1_total"`
	File1Unique     int      `json:"file1_unique" yaml:"file1_unique"`
	File1Uniqueness float64  `json:"file1_uniqueness" yaml:"file1_uniqueness"`
	File2Total      int      `json:"file2_total" yaml:"file2_total"`
	File2Unique     int      `json:"file2_unique" yaml:"file2_unique"`
	File2Uniqueness float64  `json:"file2_uniqueness" yaml:"file2_uniqueness"`
	CommonValues    int      `json:"common_values" yaml:"common_values"`
	MatchRatioFile1 float64  `json:"match_ratio_file1" yaml:"match_ratio_file1"`
	MatchRatioFile2 float64  `json:"match_ratio_file2" yaml:"match_ratio_file2"`
	Warnings        []string `json:"warnings" yaml:"warnings"`
}

// Validate checks that colA and colB exist and reports how well they would
// work as a join key. Values are compared as normalized tokens; absent
// tokens are left out of every count.
func Validate(n normalize.Normalizer, a *dataset.Dataset, colA string, b *dataset.Dataset, colB string, opts Options) (*Report, error) {
	if a == nil || b == nil {
		return nil, ErrNotLoaded
	}
	if !a.HasColumn(colA) {
		return nil, fmt.Errorf("%w: Column '%s' not found in first file", ErrColumnNotFound, colA)
	}
	if !b.HasColumn(colB) {
		return nil, fmt.Errorf("%w: Column '%s' not found in second file", ErrColumnNotFound, colB)
	}

	total1, set1 := population(n, a.Values(colA))
	total2, set2 := population(n, b.Values(colB))
	common := set1.IntersectionCount(set2)

	r := &Report{
		Valid:           true,
		File1Total:      total1,
		File1Unique:     set1.Len(),
		File1Uniqueness: ratio(set1.Len(), total1),
		File2Total:      total2,
		File2Unique:     set2.Len(),
		File2Uniqueness: ratio(set2.Len(), total2),
		CommonValues:    common,
		MatchRatioFile1: ratio(common, set1.Len()),
		MatchRatioFile2: ratio(common, set2.Len()),
		Warnings:        []string{},
	}

	if r.File1Uniqueness < opts.MinUniqueness && r.File2Uniqueness < opts.MinUniqueness {
		r.Warnings = append(r.Warnings, WarnLowUniqueness)
	} else if r.MatchRatioFile1 < opts.MinOverlap && r.MatchRatioFile2 < opts.MinOverlap {
		r.Warnings = append(r.Warnings, WarnLowOverlap)
	}

	return r, nil
}

// population returns the number of non-absent values and their distinct
// tokens.
func population(n normalize.Normalizer, values []any) (int, similarity.TokenSet) {
	set := make(similarity.TokenSet)
	total := 0
	for _, v := range values {
		tok := n.Token(v)
		if normalize.IsAbsent(tok) {
			continue
		}
		total++
		set.Add(tok)
	}
	return total, set
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
