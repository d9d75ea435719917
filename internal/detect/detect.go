// Package detect discovers likely join-key column pairs between two datasets.
package detect

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/leapmerge/internal/normalize"
	"github.com/leapstack-labs/leapmerge/internal/similarity"
	"github.com/leapstack-labs/leapmerge/pkg/dataset"
)

// Default thresholds.
const (
	DefaultMinMatchRatio = 0.3
	DefaultMinUniqueness = 0.7
)

// Candidate is one scored column pair. Candidates are values and are never
// modified after Detect returns them.
type Candidate struct {
	ColumnA        string  `json:"column_a" yaml:"column_a"`
	ColumnB        string  `json:"column_b" yaml:"column_b"`
	Score          float64 `json:"score" yaml:"score"`
	MatchCount     int     `json:"match_count" yaml:"match_count"`
	NameSimilarity float64 `json:"name_similarity" yaml:"name_similarity"`
	ValueOverlap   float64 `json:"value_overlap" yaml:"value_overlap"`
	Category       string  `json:"category" yaml:"category"`
}

// Options tunes detection.
type Options struct {
	// MinMatchRatio is the lowest combined score kept.
	MinMatchRatio float64
	// MinUniqueness is the uniqueness ratio a column must exceed to be
	// considered a key at all.
	MinUniqueness float64
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{MinMatchRatio: DefaultMinMatchRatio, MinUniqueness: DefaultMinUniqueness}
}

// Detector ranks key candidates and remembers the most recent ranking.
type Detector struct {
	norm   normalize.Normalizer
	opts   Options
	logger *slog.Logger
	last   []Candidate
}

// New creates a detector. A nil logger discards diagnostics.
func New(norm normalize.Normalizer, opts Options, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Detector{norm: norm, opts: opts, logger: logger}
}

// Last returns the result of the most recent Detect call.
func (d *Detector) Last() []Candidate {
	return d.last
}

// Detect scores every pair of sufficiently unique columns and returns those
// at or above the minimum match ratio, best first. An empty result is normal
// and means the caller should fall back to manual key selection.
func (d *Detector) Detect(a, b *dataset.Dataset) []Candidate {
	colsA := d.keyColumns(a)
	colsB := d.keyColumns(b)

	// Token sets are built once per column, not once per pair.
	setsA := d.tokenSets(a, colsA)
	setsB := d.tokenSets(b, colsB)

	candidates := make([]Candidate, 0)
	for _, ca := range colsA {
		for _, cb := range colsB {
			c, ok := d.score(ca, cb, setsA[ca], setsB[cb])
			if !ok || c.Score < d.opts.MinMatchRatio {
				continue
			}
			candidates = append(candidates, c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].MatchCount > candidates[j].MatchCount
	})

	d.logger.Info("detected key candidates",
		slog.Int("count", len(candidates)),
		slog.Int("key_columns_a", len(colsA)),
		slog.Int("key_columns_b", len(colsB)))

	d.last = candidates
	return candidates
}

// score evaluates one pair. A panic while scoring is logged and the pair is
// skipped so one bad column cannot abort the whole search.
func (d *Detector) score(colA, colB string, a, b similarity.TokenSet) (c Candidate, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("error comparing columns",
				slog.String("column_a", colA),
				slog.String("column_b", colB),
				slog.String("error", fmt.Sprint(r)))
			ok = false
		}
	}()

	overlap, defined := similarity.ValueOverlap(a, b)
	if !defined {
		return Candidate{}, false
	}
	name := similarity.NameSimilarity(colA, colB)
	return Candidate{
		ColumnA:        colA,
		ColumnB:        colB,
		Score:          similarity.Combined(name, overlap),
		MatchCount:     a.IntersectionCount(b),
		NameSimilarity: name,
		ValueOverlap:   overlap,
		Category:       ColumnCategory(colA),
	}, true
}

// keyColumns returns the columns whose uniqueness ratio exceeds the
// configured minimum, in column order.
func (d *Detector) keyColumns(ds *dataset.Dataset) []string {
	if ds.Len() == 0 {
		return nil
	}
	var out []string
	for _, col := range ds.Columns {
		if d.Uniqueness(ds, col) > d.opts.MinUniqueness {
			out = append(out, col)
		}
	}
	return out
}

// Uniqueness returns distinct non-absent tokens divided by row count.
func (d *Detector) Uniqueness(ds *dataset.Dataset, col string) float64 {
	if ds.Len() == 0 {
		return 0
	}
	set := similarity.NewTokenSet(d.norm, ds.Values(col))
	return float64(set.Len()) / float64(ds.Len())
}

func (d *Detector) tokenSets(ds *dataset.Dataset, cols []string) map[string]similarity.TokenSet {
	out := make(map[string]similarity.TokenSet, len(cols))
	for _, col := range cols {
		out[col] = similarity.NewTokenSet(d.norm, ds.Values(col))
	}
	return out
}
