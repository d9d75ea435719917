package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leapstack-labs/leapmerge/internal/cli/testutil"
	"github.com/leapstack-labs/leapmerge/internal/detect"
	"github.com/leapstack-labs/leapmerge/internal/engine"
	"github.com/leapstack-labs/leapmerge/internal/merge"
	itestutil "github.com/leapstack-labs/leapmerge/internal/testutil"
	"github.com/leapstack-labs/leapmerge/internal/validate"
	"github.com/leapstack-labs/leapmerge/pkg/dataset"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewPreviewCommand(), "preview <file1> <file2>", []string{"rows"}},
		{NewDetectCommand(), "detect <file1> <file2>", []string{"min-match-ratio", "min-uniqueness"}},
		{NewValidateCommand(), "validate <file1> <file2>", []string{"key1", "key2"}},
		{NewMergeCommand(), "merge <file1> <file2>", []string{"key1", "key2", "join", "out", "report", "watch", "min-match-ratio"}},
		{NewInteractiveCommand(), "interactive <file1> <file2>", []string{"out", "report", "join"}},
		{NewServeCommand(), "serve", []string{"addr"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Example, "Example should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestFileCommandsRequireTwoArgs(t *testing.T) {
	for _, cmd := range []*cobra.Command{NewPreviewCommand(), NewDetectCommand(), NewMergeCommand()} {
		t.Run(cmd.Name(), func(t *testing.T) {
			assert.Error(t, cmd.Args(cmd, []string{"only-one.csv"}))
			assert.NoError(t, cmd.Args(cmd, []string{"a.csv", "b.csv"}))
		})
	}
}

func TestRequireKeys(t *testing.T) {
	assert.NoError(t, requireKeys("", ""))
	assert.NoError(t, requireKeys("a", "b"))
	assert.ErrorContains(t, requireKeys("a", ""), "together")
	assert.ErrorContains(t, requireKeys("", "b"), "together")
}

func TestRenderCandidates(t *testing.T) {
	candidates := []detect.Candidate{
		{ColumnA: "order_id", ColumnB: "id", Score: 0.82, MatchCount: 3, NameSimilarity: 0.4, ValueOverlap: 1, Category: "ID"},
		{ColumnA: "customer", ColumnB: "carrier", Score: 0.35, MatchCount: 1, NameSimilarity: 0.5, ValueOverlap: 0.25, Category: "Other"},
	}

	tr := testutil.NewTestRendererMarkdown()
	renderCandidates(tr.Renderer, candidates)

	out := tr.Output()
	assert.Contains(t, out, "# Key Candidates")
	assert.Contains(t, out, "Best key: order_id ↔ id (82.0%)")
	assert.Contains(t, out, "1 other options available")
	testutil.AssertOutputMode(t, tr, "markdown")
}

func TestRenderCandidates_None(t *testing.T) {
	tr := testutil.NewTestRendererText()
	renderCandidates(tr.Renderer, nil)
	assert.Contains(t, tr.Output(), "No potential keys found")
	assert.NotContains(t, tr.Output(), "Best key")
}

func TestRenderValidation(t *testing.T) {
	report := &validate.Report{
		Valid:           true,
		File1Total:      4,
		File1Unique:     4,
		File1Uniqueness: 1,
		File2Total:      4,
		File2Unique:     4,
		File2Uniqueness: 1,
		CommonValues:    3,
		MatchRatioFile1: 0.75,
		MatchRatioFile2: 0.75,
	}

	tests := []struct {
		name     string
		warnings []string
		want     []string
		wantNot  []string
	}{
		{
			name:    "clean",
			want:    []string{"Common values", "75.0%", "Key columns look good"},
			wantNot: []string{validate.WarnLowOverlap},
		},
		{
			name:     "warnings",
			warnings: []string{validate.WarnLowOverlap},
			want:     []string{validate.WarnLowOverlap},
			wantNot:  []string{"Key columns look good"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := *report
			r.Warnings = tt.warnings

			tr := testutil.NewTestRendererMarkdown()
			renderValidation(tr.Renderer, "order_id", "id", &r)

			out := tr.Output()
			assert.Contains(t, out, "# Key Validation: order_id ↔ id")
			for _, s := range tt.want {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.wantNot {
				assert.NotContains(t, out, s)
			}
			testutil.AssertValidMarkdown(t, out)
		})
	}
}

func mergedResult(t *testing.T) *merge.Result {
	t.Helper()
	eng := engine.New(engine.DefaultConfig())
	require.NoError(t, eng.SetDataset(engine.First, dataset.FromRecords("orders", []string{"order_id", "status"}, [][]string{
		{"A1", "open"}, {"A2", "open"}, {"A3", "closed"},
	}), "orders.csv"))
	require.NoError(t, eng.SetDataset(engine.Second, dataset.FromRecords("shipments", []string{"id", "status"}, [][]string{
		{"a1", "shipped"}, {"A2", "pending"},
	}), "shipments.csv"))

	res, err := eng.Merge("order_id", "id", merge.JoinLeft)
	require.NoError(t, err)
	return res
}

func TestRenderMerge(t *testing.T) {
	res := mergedResult(t)

	t.Run("preview", func(t *testing.T) {
		tr := testutil.NewTestRendererMarkdown()
		renderMerge(tr.Renderer, MergeOutput{Result: res, AutoKey: true}, 2)

		out := tr.Output()
		assert.Contains(t, out, "order_id ↔ id (auto-detected)")
		assert.Contains(t, out, "left: keep every row of the first file")
		assert.Contains(t, out, "status → status_right")
		assert.Contains(t, out, "... 1 more rows")
		testutil.AssertValidMarkdown(t, out)
	})

	t.Run("saved", func(t *testing.T) {
		tr := testutil.NewTestRendererMarkdown()
		renderMerge(tr.Renderer, MergeOutput{Result: res, Output: "merged.csv", ReportPath: "merged.report.yaml"}, 2)

		out := tr.Output()
		assert.Contains(t, out, "Saved to: merged.csv")
		assert.Contains(t, out, "Report saved to: merged.report.yaml")
		assert.NotContains(t, out, "auto-detected")
		assert.NotContains(t, out, "more rows")
	})
}

func TestWatchPaths(t *testing.T) {
	paths, err := watchPaths("a.csv", "data/store.duckdb#orders")
	require.NoError(t, err)
	require.Len(t, paths, 2)

	assert.True(t, filepath.IsAbs(paths[0]))
	assert.Equal(t, "a.csv", filepath.Base(paths[0]))
	assert.Equal(t, "store.duckdb", filepath.Base(paths[1]))

	_, err = watchPaths("a.csv", "postgres://localhost/db#orders")
	assert.ErrorContains(t, err, "cannot watch database URL")
}

func TestWatchFiles(t *testing.T) {
	dir := t.TempDir()
	watched := itestutil.WriteFileIn(t, dir, "watched.csv", "id\n1\n")
	other := itestutil.WriteFileIn(t, dir, "other.csv", "id\n1\n")

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchFiles(ctx, itestutil.NewTestLogger(t), []string{watched}, func() { calls.Add(1) })
	}()

	// Keep writing until the watcher is up and has reported a change.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(watched, []byte("id\n2\n"), 0o600)
		return calls.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	// Let pending debounced events drain, then check that other files in the
	// same directory are ignored.
	time.Sleep(3 * watchDebounce)
	calls.Store(0)
	require.NoError(t, os.WriteFile(other, []byte(strings.Repeat("id\n", 3)), 0o600))
	time.Sleep(3 * watchDebounce)
	assert.Zero(t, calls.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchFiles_Debounces(t *testing.T) {
	dir := t.TempDir()
	watched := itestutil.WriteFileIn(t, dir, "watched.csv", "id\n1\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	go func() {
		_ = watchFiles(ctx, itestutil.NewTestLogger(t), []string{watched}, func() { calls.Add(1) })
	}()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(watched, []byte("id\n0\n"), 0o600)
		return calls.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)
	time.Sleep(3 * watchDebounce)
	calls.Store(0)

	// A burst of writes well inside the debounce window is one change.
	for i := range 5 {
		require.NoError(t, os.WriteFile(watched, []byte(strings.Repeat("id\n", i+1)), 0o600))
	}
	require.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(3 * watchDebounce)
	assert.Equal(t, int32(1), calls.Load())
}
