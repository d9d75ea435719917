// Package engine owns the state of one merge session: the two loaded
// datasets, the last key detection and the last merge result.
//
// An Engine is not safe for concurrent use. Callers run one operation at a
// time per instance.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"

	"github.com/leapstack-labs/leapmerge/internal/detect"
	"github.com/leapstack-labs/leapmerge/internal/loader"
	"github.com/leapstack-labs/leapmerge/internal/merge"
	"github.com/leapstack-labs/leapmerge/internal/normalize"
	"github.com/leapstack-labs/leapmerge/internal/validate"
	"github.com/leapstack-labs/leapmerge/internal/writer"
	"github.com/leapstack-labs/leapmerge/pkg/dataset"
	"golang.org/x/sync/errgroup"
)

// Slot addresses one of the two datasets.
type Slot int

// Dataset slots.
const (
	First  Slot = 1
	Second Slot = 2
)

// ParseSlot parses "1" or "2".
func ParseSlot(s string) (Slot, error) {
	n, err := strconv.Atoi(s)
	if err != nil || (n != int(First) && n != int(Second)) {
		return 0, fmt.Errorf("%w: %q (expected 1 or 2)", ErrInvalidSlot, s)
	}
	return Slot(n), nil
}

func (s Slot) index() (int, error) {
	if s != First && s != Second {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSlot, int(s))
	}
	return int(s) - 1, nil
}

func (s Slot) ordinal() string {
	if s == First {
		return "first"
	}
	return "second"
}

// Config holds engine configuration.
type Config struct {
	// Normalizer canonicalizes key values (zero value uses the decimal rule).
	Normalizer normalize.Normalizer
	// Detection holds the key detection thresholds.
	Detection detect.Options
	// Validation holds the validation warning thresholds.
	Validation validate.Options
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// DefaultConfig returns a configuration with the standard thresholds.
func DefaultConfig() Config {
	return Config{
		Normalizer: normalize.Default,
		Detection:  detect.DefaultOptions(),
		Validation: validate.DefaultOptions(),
	}
}

// Engine holds the datasets and results of a merge session.
type Engine struct {
	logger     *slog.Logger
	norm       normalize.Normalizer
	detector   *detect.Detector
	validation validate.Options
	loader     *loader.Loader
	writer     *writer.Writer

	datasets   [2]*dataset.Dataset
	sources    [2]string
	candidates []detect.Candidate
	result     *merge.Result
}

// New creates an engine with no datasets loaded.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		logger:     logger,
		norm:       cfg.Normalizer,
		detector:   detect.New(cfg.Normalizer, cfg.Detection, logger),
		validation: cfg.Validation,
		loader:     loader.New(logger),
		writer:     writer.New(logger),
	}
}

// guard converts a panic inside op into an InternalError.
func (e *Engine) guard(op string, err *error) {
	if r := recover(); r != nil {
		e.logger.Error("internal error",
			slog.String("op", op),
			slog.Any("panic", r),
			slog.String("stack", string(debug.Stack())))
		*err = &InternalError{Op: op, Cause: fmt.Errorf("%v", r)}
	}
}

// Load reads source into slot. On failure the slot keeps its previous
// dataset.
func (e *Engine) Load(ctx context.Context, slot Slot, source string) (err error) {
	defer e.guard("load", &err)

	i, err := slot.index()
	if err != nil {
		return err
	}
	ds, err := e.loader.Load(ctx, source)
	if err != nil {
		return err
	}
	e.install(i, ds, source)
	return nil
}

// LoadPair reads both sources concurrently and installs them only when both
// succeed.
func (e *Engine) LoadPair(ctx context.Context, first, second string) (err error) {
	defer e.guard("load", &err)

	var loaded [2]*dataset.Dataset
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range []string{first, second} {
		g.Go(func() error {
			ds, err := e.loader.Load(gctx, src)
			if err != nil {
				return fmt.Errorf("%s file: %w", Slot(i+1).ordinal(), err)
			}
			loaded[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	e.install(0, loaded[0], first)
	e.install(1, loaded[1], second)
	return nil
}

// SetDataset installs an already-loaded dataset into slot.
func (e *Engine) SetDataset(slot Slot, ds *dataset.Dataset, source string) error {
	i, err := slot.index()
	if err != nil {
		return err
	}
	if ds.Len() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyDataset, source)
	}
	e.install(i, ds, source)
	return nil
}

// install replaces a dataset. Detection and merge results derived from the
// previous pair are dropped.
func (e *Engine) install(i int, ds *dataset.Dataset, source string) {
	e.datasets[i] = ds
	e.sources[i] = source
	e.candidates = nil
	e.result = nil
	e.logger.Debug("dataset installed", slog.Int("slot", i+1), slog.String("source", source))
}

// Dataset returns the dataset in slot, or nil.
func (e *Engine) Dataset(slot Slot) *dataset.Dataset {
	i, err := slot.index()
	if err != nil {
		return nil
	}
	return e.datasets[i]
}

// Source returns the source the dataset in slot was loaded from.
func (e *Engine) Source(slot Slot) string {
	i, err := slot.index()
	if err != nil {
		return ""
	}
	return e.sources[i]
}

// Loaded reports whether both datasets are present.
func (e *Engine) Loaded() bool {
	return e.datasets[0] != nil && e.datasets[1] != nil
}

func (e *Engine) checkColumns(colA, colB string) error {
	if !e.Loaded() {
		return ErrNotLoaded
	}
	if !e.datasets[0].HasColumn(colA) {
		return fmt.Errorf("%w: Column '%s' not found in first file", ErrColumnNotFound, colA)
	}
	if !e.datasets[1].HasColumn(colB) {
		return fmt.Errorf("%w: Column '%s' not found in second file", ErrColumnNotFound, colB)
	}
	return nil
}

// DetectKeys ranks candidate key pairs between the two datasets and keeps
// the ranking.
func (e *Engine) DetectKeys() (candidates []detect.Candidate, err error) {
	defer e.guard("detect", &err)

	if !e.Loaded() {
		return nil, ErrNotLoaded
	}
	candidates = e.detector.Detect(e.datasets[0], e.datasets[1])
	e.candidates = candidates
	return candidates, nil
}

// Candidates returns the last detection result.
func (e *Engine) Candidates() []detect.Candidate {
	return e.candidates
}

// BestCandidate returns the top-ranked candidate of the last detection.
func (e *Engine) BestCandidate() (detect.Candidate, bool) {
	if len(e.candidates) == 0 {
		return detect.Candidate{}, false
	}
	return e.candidates[0], true
}

// ValidateKeys reports uniqueness and overlap statistics for colA/colB.
func (e *Engine) ValidateKeys(colA, colB string) (report *validate.Report, err error) {
	defer e.guard("validate", &err)

	if err := e.checkColumns(colA, colB); err != nil {
		return nil, err
	}
	return validate.Validate(e.norm, e.datasets[0], colA, e.datasets[1], colB, e.validation)
}

// Merge joins the datasets on colA/colB. The stored result is replaced only
// on success.
func (e *Engine) Merge(colA, colB string, join merge.JoinType) (result *merge.Result, err error) {
	defer e.guard("merge", &err)

	if err := e.checkColumns(colA, colB); err != nil {
		return nil, err
	}
	result, err = merge.Execute(e.norm, e.datasets[0], colA, e.datasets[1], colB, join)
	if err != nil {
		return nil, err
	}
	e.result = result

	e.logger.Info("merge completed",
		slog.String("key", colA),
		slog.String("join", string(result.Join)),
		slog.Int("rows", result.Rows),
		slog.Int("matched", result.Matched))
	return result, nil
}

// Result returns the last merge result, or nil.
func (e *Engine) Result() *merge.Result {
	return e.result
}

// Save writes the merge result to path and returns the path written.
func (e *Engine) Save(ctx context.Context, path string) (written string, err error) {
	defer e.guard("save", &err)

	if e.result == nil {
		return "", ErrNoResult
	}
	return e.writer.Save(ctx, path, e.result.Dataset)
}

// SaveReport writes the YAML report for the stored result next to output.
func (e *Engine) SaveReport(output string) (path string, err error) {
	defer e.guard("report", &err)

	if e.result == nil {
		return "", ErrNoResult
	}
	var report *validate.Report
	if e.Loaded() {
		report, err = validate.Validate(e.norm, e.datasets[0], e.result.Key, e.datasets[1], e.result.RightKey, e.validation)
		if err != nil {
			return "", err
		}
	}
	return e.writer.SaveReport(writer.Report{
		Output:     output,
		Left:       e.sources[0],
		Right:      e.sources[1],
		Validation: report,
		Merge:      e.result,
	})
}

// Reset drops both datasets and every derived result.
func (e *Engine) Reset() {
	e.datasets = [2]*dataset.Dataset{}
	e.sources = [2]string{}
	e.candidates = nil
	e.result = nil
	e.logger.Debug("engine reset")
}
