package adapter

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{
		Type:      "fake_db",
		Available: []string{"duckdb", "postgres"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "fake_db")
	assert.Contains(t, msg, "duckdb")
}

func TestRegister(t *testing.T) {
	Register(Registration{
		Name:       "test_adapter_internal",
		Extensions: []string{".testdb"},
		Schemes:    []string{"testdb"},
		New:        func(_ *slog.Logger) Adapter { return nil },
	})

	assert.True(t, IsRegistered("test_adapter_internal"))
	assert.Contains(t, ListAdapters(), "test_adapter_internal")

	r, ok := Get("test_adapter_internal")
	assert.True(t, ok)
	assert.NotNil(t, r.New)
}

func TestForSource(t *testing.T) {
	Register(Registration{
		Name:       "test_source_adapter",
		Extensions: []string{".srcdb"},
		Schemes:    []string{"srcdb"},
		New:        func(_ *slog.Logger) Adapter { return nil },
	})

	tests := []struct {
		source string
		want   string
		ok     bool
	}{
		{"data/file.srcdb", "test_source_adapter", true},
		{"DATA/FILE.SRCDB", "test_source_adapter", true},
		{"srcdb://host/db", "test_source_adapter", true},
		{"SrcDB://host/db", "test_source_adapter", true},
		{"file.csv", "", false},
		{"noext", "", false},
		{"unknown://host/file.srcdb", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got, ok := ForSource(tt.source)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewAdapter_EmptyType(t *testing.T) {
	_, err := NewAdapter(Config{}, nil)
	require.Error(t, err)
	assert.Equal(t, "adapter type not specified", err.Error())
}

func TestNewAdapter_Unknown(t *testing.T) {
	_, err := NewAdapter(Config{Type: "nonexistent"}, nil)

	var unknown *UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nonexistent", unknown.Type)
}

func TestOpen_Unknown(t *testing.T) {
	_, err := Open(context.Background(), Config{Type: "nonexistent"}, nil)
	assert.Error(t, err)
}
