package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapmerge/internal/merge"
	"github.com/leapstack-labs/leapmerge/internal/testutil"
	"github.com/leapstack-labs/leapmerge/internal/validate"
	"github.com/leapstack-labs/leapmerge/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ordersCSV = `order_id,customer,status
A1,Rossi,ok
A2,Bianchi,late
A3,Verdi,ok
A4,Neri,ok
`
	shipmentsCSV = `id,carrier,status
a1,DHL,delivered
  A2  ,UPS,in transit
A3,GLS,delivered
Z9,DHL,lost
`
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Logger = testutil.NewTestLogger(t)
	return New(cfg)
}

func loadedEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	e := newTestEngine(t)
	require.NoError(t, e.LoadPair(context.Background(),
		testutil.WriteFileIn(t, dir, "orders.csv", ordersCSV),
		testutil.WriteFileIn(t, dir, "shipments.csv", shipmentsCSV)))
	return e
}

func TestParseSlot(t *testing.T) {
	s, err := ParseSlot("2")
	require.NoError(t, err)
	assert.Equal(t, Second, s)

	for _, bad := range []string{"0", "3", "x", ""} {
		_, err := ParseSlot(bad)
		assert.ErrorIs(t, err, ErrInvalidSlot, bad)
	}
}

func TestEngine_NotLoaded(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.DetectKeys()
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = e.ValidateKeys("a", "b")
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = e.Merge("a", "b", merge.JoinLeft)
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = e.Save(context.Background(), filepath.Join(t.TempDir(), "out.csv"))
	assert.ErrorIs(t, err, ErrNoResult)

	assert.Empty(t, e.Preview(5))
}

func TestEngine_LoadPair(t *testing.T) {
	e := loadedEngine(t)

	assert.True(t, e.Loaded())
	assert.Equal(t, "orders.csv", e.Dataset(First).Name)
	assert.Equal(t, "shipments.csv", e.Dataset(Second).Name)
	assert.Equal(t, "shipments.csv", filepath.Base(e.Source(Second)))
	assert.Nil(t, e.Dataset(Slot(3)))
}

func TestEngine_LoadPairFailureKeepsState(t *testing.T) {
	e := loadedEngine(t)
	before := e.Dataset(First)

	dir := t.TempDir()
	err := e.LoadPair(context.Background(),
		testutil.WriteFileIn(t, dir, "new.csv", "x\n1\n"),
		filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "second file")
	assert.True(t, IsPrecondition(err), "a missing file is a caller error")

	assert.Same(t, before, e.Dataset(First))
}

func TestEngine_LoadErrors(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	err := e.Load(ctx, First, testutil.WriteFile(t, "empty.csv", "a,b\n"))
	assert.ErrorIs(t, err, ErrEmptyDataset)
	assert.True(t, IsPrecondition(err))

	err = e.Load(ctx, First, "notes.pdf")
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))

	err = e.Load(ctx, Slot(7), "orders.csv")
	assert.ErrorIs(t, err, ErrInvalidSlot)

	assert.Nil(t, e.Dataset(First))
}

func TestEngine_DetectValidateMerge(t *testing.T) {
	e := loadedEngine(t)

	candidates, err := e.DetectKeys()
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	best, ok := e.BestCandidate()
	require.True(t, ok)
	assert.Equal(t, "order_id", best.ColumnA)
	assert.Equal(t, "id", best.ColumnB)
	assert.Equal(t, candidates, e.Candidates())

	report, err := e.ValidateKeys(best.ColumnA, best.ColumnB)
	require.NoError(t, err)
	assert.Equal(t, 4, report.File1Total)
	assert.Equal(t, 3, report.CommonValues)
	assert.Empty(t, report.Warnings)

	result, err := e.Merge(best.ColumnA, best.ColumnB, merge.JoinLeft)
	require.NoError(t, err)
	assert.Same(t, result, e.Result())
	assert.Equal(t, 4, result.Rows)
	assert.Equal(t, 3, result.Matched)
	assert.Equal(t, []string{"order_id", "customer", "status", "carrier", "status_right"}, result.Dataset.Columns)
	assert.Equal(t, "delivered", result.Dataset.Rows[0]["status_right"])
}

func TestEngine_MergeFailureKeepsResult(t *testing.T) {
	e := loadedEngine(t)

	first, err := e.Merge("order_id", "id", merge.JoinInner)
	require.NoError(t, err)

	_, err = e.Merge("order_id", "nope", merge.JoinLeft)
	require.ErrorIs(t, err, ErrColumnNotFound)
	assert.Contains(t, err.Error(), "Column 'nope' not found in second file")
	assert.True(t, IsPrecondition(err))

	_, err = e.Merge("order_id", "id", merge.JoinType("sideways"))
	require.ErrorIs(t, err, ErrUnknownJoinType)

	assert.Same(t, first, e.Result())
}

func TestEngine_InstallDropsDerivedState(t *testing.T) {
	e := loadedEngine(t)
	_, err := e.DetectKeys()
	require.NoError(t, err)
	_, err = e.Merge("order_id", "id", merge.JoinLeft)
	require.NoError(t, err)

	ds := dataset.New("inline", []dataset.Row{{"id": "A1"}})
	require.NoError(t, e.SetDataset(Second, ds, "inline"))

	assert.Nil(t, e.Result())
	assert.Nil(t, e.Candidates())
	assert.Same(t, ds, e.Dataset(Second))

	assert.ErrorIs(t, e.SetDataset(First, &dataset.Dataset{}, "empty"), ErrEmptyDataset)
}

func TestEngine_Preview(t *testing.T) {
	e := loadedEngine(t)

	previews := e.Preview(2)
	require.Len(t, previews, 2)
	assert.Equal(t, First, previews[0].Slot)
	assert.Equal(t, 4, previews[0].Rows)
	assert.Equal(t, 3, previews[0].Columns)
	assert.Equal(t, []string{"order_id", "customer", "status"}, previews[0].ColumnNames)
	assert.Len(t, previews[0].SampleRows, 2)
	assert.Equal(t, []any{"A1", "Rossi", "ok"}, previews[0].SampleRows[0])

	assert.Len(t, e.Preview(0)[1].SampleRows, 4)
}

func TestEngine_SaveAndReport(t *testing.T) {
	e := loadedEngine(t)
	_, err := e.Merge("order_id", "id", merge.JoinOuter)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "merged")
	written, err := e.Save(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, out+".xlsx", written)
	assert.FileExists(t, written)

	reportPath, err := e.SaveReport(written)
	require.NoError(t, err)
	assert.Equal(t, out+"_report.yaml", reportPath)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "join: outer")
	assert.Contains(t, string(data), "common_values: 3")
}

func TestEngine_Reset(t *testing.T) {
	e := loadedEngine(t)
	_, err := e.Merge("order_id", "id", merge.JoinLeft)
	require.NoError(t, err)

	e.Reset()

	assert.False(t, e.Loaded())
	assert.Nil(t, e.Result())
	assert.Empty(t, e.Source(First))
}

func TestEngine_ThresholdsFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Validation = validate.Options{MinUniqueness: 1.1, MinOverlap: 0}
	e := New(cfg)

	left := dataset.New("l", []dataset.Row{{"k": "1"}, {"k": "2"}})
	right := dataset.New("r", []dataset.Row{{"k": "1"}, {"k": "3"}})
	require.NoError(t, e.SetDataset(First, left, "l"))
	require.NoError(t, e.SetDataset(Second, right, "r"))

	report, err := e.ValidateKeys("k", "k")
	require.NoError(t, err)
	assert.Equal(t, []string{validate.WarnLowUniqueness}, report.Warnings)
}

func TestGuard(t *testing.T) {
	e := newTestEngine(t)

	err := func() (err error) {
		defer e.guard("explode", &err)
		panic("kaboom")
	}()

	var internal *InternalError
	require.ErrorAs(t, err, &internal)
	assert.Equal(t, "explode", internal.Op)
	assert.Contains(t, err.Error(), "kaboom")
	assert.False(t, IsPrecondition(err))
}
