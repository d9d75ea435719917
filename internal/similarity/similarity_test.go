package similarity

import (
	"testing"

	"github.com/leapstack-labs/leapmerge/internal/normalize"
	"github.com/stretchr/testify/assert"
)

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"id", "id", 1},
		{"ID", "id", 1},
		{"", "", 1},
		{"abc", "xyz", 0},
		{"order_id", "orderid", 0.93},
		{"tracking", "track", 0.77},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.InDelta(t, tt.want, NameSimilarity(tt.a, tt.b), 1e-9)
			assert.InDelta(t, NameSimilarity(tt.a, tt.b), NameSimilarity(tt.b, tt.a), 1e-9, "symmetric")
		})
	}
}

func TestNewTokenSet(t *testing.T) {
	s := NewTokenSet(normalize.Default, []any{" a1", "A1", nil, "nan", "NULL", 2.0, "none"})

	assert.Equal(t, 2, s.Len())
	assert.Contains(t, s, "A1")
	assert.Contains(t, s, "2")
}

func TestValueOverlap(t *testing.T) {
	tests := []struct {
		name   string
		a, b   TokenSet
		want   float64
		wantOK bool
	}{
		{
			name:   "subset counts against smaller side",
			a:      TokenSet{"A": {}, "B": {}},
			b:      TokenSet{"A": {}, "B": {}, "C": {}, "D": {}},
			want:   1,
			wantOK: true,
		},
		{
			name:   "partial",
			a:      TokenSet{"A": {}, "B": {}, "C": {}, "D": {}},
			b:      TokenSet{"A": {}, "X": {}, "Y": {}, "Z": {}},
			want:   0.25,
			wantOK: true,
		},
		{
			name:   "disjoint",
			a:      TokenSet{"A": {}},
			b:      TokenSet{"B": {}},
			want:   0,
			wantOK: true,
		},
		{
			name: "empty side is undefined",
			a:    TokenSet{},
			b:    TokenSet{"B": {}},
		},
		{
			name: "only absent tokens is undefined",
			a:    TokenSet{"NAN": {}, "": {}},
			b:    TokenSet{"B": {}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ValueOverlap(tt.a, tt.b)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCombined(t *testing.T) {
	assert.InDelta(t, 1.0, Combined(1, 1), 1e-9)
	assert.InDelta(t, 0.7, Combined(0, 1), 1e-9)
	assert.InDelta(t, 0.3, Combined(1, 0), 1e-9)
}
