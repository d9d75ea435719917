package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapmerge/internal/testutil"
	"github.com/leapstack-labs/leapmerge/pkg/adapter"
	"github.com/leapstack-labs/leapmerge/pkg/adapters/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
)

func TestLoad_CSVTyping(t *testing.T) {
	path := testutil.WriteFile(t, "orders.csv", "order_id,qty,price,note\nA1,3,1.5,first\nA2,,2,\n")

	ds, err := New(testutil.NewTestLogger(t)).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "orders.csv", ds.Name)
	assert.Equal(t, []string{"order_id", "qty", "price", "note"}, ds.Columns)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "A1", ds.Rows[0]["order_id"])
	assert.Equal(t, int64(3), ds.Rows[0]["qty"])
	assert.Nil(t, ds.Rows[1]["qty"])
	assert.Equal(t, 1.5, ds.Rows[0]["price"])
	assert.Equal(t, 2.0, ds.Rows[1]["price"])
	assert.Equal(t, "first", ds.Rows[0]["note"])
	assert.Nil(t, ds.Rows[1]["note"])
}

func TestLoad_CSVEncodings(t *testing.T) {
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte("id,name\n1,Café\n"))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"utf-8", []byte("id,name\n1,Café\n")},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("id,name\n1,Café\n")...)},
		{"windows-1252", []byte("id,name\n1,Caf\xe9\n")},
		{"utf-16le", utf16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "people.csv")
			require.NoError(t, os.WriteFile(path, tt.data, 0o600))

			ds, err := New(nil).Load(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, []string{"id", "name"}, ds.Columns)
			assert.Equal(t, "Café", ds.Rows[0]["name"])
		})
	}
}

func TestLoad_TabDelimited(t *testing.T) {
	for _, name := range []string{"data.txt", "data.tsv"} {
		t.Run(name, func(t *testing.T) {
			path := testutil.WriteFile(t, name, "code\tlabel\nX-1\tone\nX-2\ttwo\n")

			ds, err := New(nil).Load(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, []string{"code", "label"}, ds.Columns)
			assert.Equal(t, "X-2", ds.Rows[1]["code"])
		})
	}
}

func TestLoad_HeaderCleanup(t *testing.T) {
	path := testutil.WriteFile(t, "messy.csv", " id , ,name,name\n1,x,a,b\n")

	ds, err := New(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "Unnamed: 1", "name", "name.1"}, ds.Columns)
	assert.Equal(t, "b", ds.Rows[0]["name.1"])
}

func TestCleanHeader(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"untouched", []string{"a", "b"}, []string{"a", "b"}},
		{"trimmed", []string{" a", "b\t"}, []string{"a", "b"}},
		{"blank", []string{"", "b", " "}, []string{"Unnamed: 0", "b", "Unnamed: 2"}},
		{"duplicates", []string{"a", "a", "a"}, []string{"a", "a.1", "a.2"}},
		{"suffix already taken", []string{"a", "a.1", "a"}, []string{"a", "a.1", "a.2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanHeader(tt.in))
		})
	}
}

func TestLoad_Excel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"tracking", "qty"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"TRK1", 4}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"TRK2", 5}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	ds, err := New(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "book.xlsx", ds.Name)
	assert.Equal(t, []string{"tracking", "qty"}, ds.Columns)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "TRK2", ds.Rows[1]["tracking"])
	assert.Equal(t, int64(5), ds.Rows[1]["qty"])
}

func TestLoad_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shop.db")

	adp := sqlite.New(nil)
	require.NoError(t, adp.Connect(ctx, adapter.Config{Path: path}))
	require.NoError(t, adp.Exec(ctx, `CREATE TABLE orders (id TEXT, total REAL)`))
	require.NoError(t, adp.Exec(ctx, `INSERT INTO orders VALUES ('A1', 9.5)`))
	require.NoError(t, adp.Exec(ctx, `CREATE TABLE customers (cid TEXT)`))
	require.NoError(t, adp.Exec(ctx, `INSERT INTO customers VALUES ('C1'), ('C2')`))
	require.NoError(t, adp.Close())

	t.Run("first table", func(t *testing.T) {
		ds, err := New(nil).Load(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "orders", ds.Name)
		assert.Equal(t, 9.5, ds.Rows[0]["total"])
	})

	t.Run("named table", func(t *testing.T) {
		ds, err := New(nil).Load(ctx, path+"#customers")
		require.NoError(t, err)
		assert.Equal(t, "customers", ds.Name)
		assert.Equal(t, 2, ds.Len())
	})

	t.Run("empty table", func(t *testing.T) {
		rw := sqlite.New(nil)
		require.NoError(t, rw.Connect(ctx, adapter.Config{Path: path}))
		require.NoError(t, rw.Exec(ctx, `CREATE TABLE nothing (x TEXT)`))
		require.NoError(t, rw.Close())

		_, err := New(nil).Load(ctx, path+"#nothing")
		assert.ErrorIs(t, err, ErrEmptyDataset)
	})
}

func TestLoad_JSONViaDuckDB(t *testing.T) {
	path := testutil.WriteFile(t, "rows.json", `[{"id": "A1", "qty": 3}, {"id": "A2", "qty": 4}]`)

	ds, err := New(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "rows.json", ds.Name)
	assert.Equal(t, []string{"id", "qty"}, ds.Columns)
	assert.Equal(t, "A2", ds.Rows[1]["id"])
	assert.Equal(t, int64(4), ds.Rows[1]["qty"])
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := New(nil).Load(ctx, "report.pdf")
		var unsupported *UnsupportedFormatError
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, ".pdf", unsupported.Ext)
	})

	t.Run("missing extension", func(t *testing.T) {
		_, err := New(nil).Load(ctx, "README")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing extension")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := New(nil).Load(ctx, filepath.Join(t.TempDir(), "gone.csv"))
		assert.Error(t, err)
	})

	t.Run("header only", func(t *testing.T) {
		path := testutil.WriteFile(t, "empty.csv", "a,b\n")
		_, err := New(nil).Load(ctx, path)
		assert.ErrorIs(t, err, ErrEmptyDataset)
	})

	t.Run("zero bytes", func(t *testing.T) {
		path := testutil.WriteFile(t, "blank.csv", "")
		_, err := New(nil).Load(ctx, path)
		assert.ErrorIs(t, err, ErrEmptyDataset)
	})
}

func TestLoad_CSVLongNumericIDs(t *testing.T) {
	path := testutil.WriteFile(t, "parcels.csv", "tracking,weight\n9400111899223197428490,1.5\n9400111899223197428491,2\n")

	ds, err := New(testutil.NewTestLogger(t)).Load(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "9400111899223197428490", ds.Rows[0]["tracking"])
	assert.Equal(t, "9400111899223197428491", ds.Rows[1]["tracking"])
	assert.Equal(t, 1.5, ds.Rows[0]["weight"])
}

func TestLoad_HashInFileName(t *testing.T) {
	path := testutil.WriteFile(t, "orders#2024.csv", "id\nA1\n")

	ds, err := New(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "orders#2024.csv", ds.Name)
	assert.Equal(t, 1, ds.Len())
}

func TestTypeColumn(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  []any
	}{
		{"integers", []string{"1", "", "-3"}, []any{int64(1), nil, int64(-3)}},
		{"floats", []string{"1", "2.50"}, []any{1.0, 2.5}},
		{"overflowing digits stay text", []string{"12345678901234567890123", "7"}, []any{"12345678901234567890123", "7"}},
		{"wide int with decimals stays text", []string{"1234567890123456789", "1.5"}, []any{"1234567890123456789", "1.5"}},
		{"wide int alone is int", []string{"1234567890123456789"}, []any{int64(1234567890123456789)}},
		{"too precise for float", []string{"0.12345678901234567", "1.5"}, []any{"0.12345678901234567", "1.5"}},
		{"mixed text", []string{"1", "x"}, []any{"1", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, typeColumn(tt.cells))
		})
	}
}

func TestSplitSource(t *testing.T) {
	tests := []struct {
		in, path, table string
	}{
		{"a.csv", "a.csv", ""},
		{"shop.db#orders", "shop.db", "orders"},
		{"postgres://u@h/db#public.orders", "postgres://u@h/db", "public.orders"},
		{"orders#2024.csv", "orders#2024.csv", ""},
		{"q#1/shop.duckdb#items", "q#1/shop.duckdb", "items"},
		{"notes#draft", "notes#draft", ""},
	}
	for _, tt := range tests {
		path, table := SplitSource(tt.in)
		assert.Equal(t, tt.path, path)
		assert.Equal(t, tt.table, table)
	}
}
