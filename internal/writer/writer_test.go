package writer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapmerge/internal/loader"
	"github.com/leapstack-labs/leapmerge/internal/merge"
	"github.com/leapstack-labs/leapmerge/internal/testutil"
	"github.com/leapstack-labs/leapmerge/internal/validate"
	"github.com/leapstack-labs/leapmerge/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func merged() *dataset.Dataset {
	return &dataset.Dataset{
		Name:    "merged",
		Columns: []string{"order_id", "qty", "status"},
		Rows: []dataset.Row{
			{"order_id": "A1", "qty": int64(2), "status": "ok"},
			{"order_id": "A2", "qty": 1.5, "status": nil},
		},
	}
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"out.csv", "out.csv"},
		{"out.XLSX", "out.XLSX"},
		{"out.json", "out.json"},
		{"out.db", "out.db"},
		{"out.sqlite#orders", "out.sqlite#orders"},
		{"out.duckdb", "out.duckdb"},
		{"out", "out.xlsx"},
		{"out.txt", "out.txt.xlsx"},
		{"postgres://u@h/db#merged", "postgres://u@h/db#merged"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePath(tt.in))
		})
	}
}

func TestSave_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	got, err := New(testutil.NewTestLogger(t)).Save(context.Background(), path, merged())
	require.NoError(t, err)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "order_id,qty,status\nA1,2,ok\nA2,1.5,\n", string(data))
}

func TestSave_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	_, err := New(nil).Save(context.Background(), path, merged())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `[
  {"order_id": "A1", "qty": 2, "status": "ok"},
  {"order_id": "A2", "qty": 1.5, "status": null}
]
`, string(data))
}

func TestSave_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		target string
		source string
	}{
		{"excel", "out.xlsx", "out.xlsx"},
		{"default extension", "out", "out.xlsx"},
		{"sqlite", "out.db", "out.db"},
		{"sqlite named table", "out.sqlite#orders", "out.sqlite#orders"},
		{"duckdb", "out.duckdb", "out.duckdb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()

			got, err := New(nil).Save(ctx, filepath.Join(dir, tt.target), merged())
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, tt.source), got)

			ds, err := loader.New(nil).Load(ctx, got)
			require.NoError(t, err)
			assert.Equal(t, []string{"order_id", "qty", "status"}, ds.Columns)
			require.Equal(t, 2, ds.Len())
			assert.Equal(t, "A2", ds.Rows[1]["order_id"])
			assert.Equal(t, 1.5, ds.Rows[1]["qty"])
			assert.Nil(t, ds.Rows[1]["status"])
		})
	}
}

func TestSave_Nil(t *testing.T) {
	_, err := New(nil).Save(context.Background(), "out.csv", nil)
	assert.Error(t, err)
}

func TestReportPath(t *testing.T) {
	assert.Equal(t, "out/merged_report.yaml", ReportPath("out/merged.xlsx"))
	assert.Equal(t, "shop_report.yaml", ReportPath("shop.db#orders"))
	assert.Equal(t, "plain_report.yaml", ReportPath("plain"))
}

func TestSaveReport(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "result.xlsx")

	r := Report{
		Output: out,
		Left:   "orders.csv",
		Right:  "shipments.csv",
		Validation: &validate.Report{
			Valid:           true,
			File1Total:      3,
			MatchRatioFile1: 1,
			Warnings:        []string{},
		},
		Merge: &merge.Result{Key: "order_id", RightKey: "id", Join: merge.JoinLeft, Rows: 3},
	}

	path, err := New(nil).SaveReport(r)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "result_report.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "orders.csv", doc["left"])
	assert.Equal(t, "left", doc["merge"].(map[string]any)["join"])
	assert.Equal(t, "id", doc["merge"].(map[string]any)["right_key"])
	assert.Equal(t, 3, doc["validation"].(map[string]any)["file1_total"])
	assert.Contains(t, doc, "generated_at")
}

func TestSaveReport_RequiresMerge(t *testing.T) {
	_, err := New(nil).SaveReport(Report{Output: "x.csv"})
	assert.Error(t, err)
}
