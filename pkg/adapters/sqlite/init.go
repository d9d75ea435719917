package sqlite

import (
	"log/slog"

	"github.com/leapstack-labs/leapmerge/pkg/adapter"
)

func init() {
	adapter.Register(adapter.Registration{
		Name:       "sqlite",
		Extensions: []string{".db", ".sqlite", ".sqlite3"},
		New:        func(logger *slog.Logger) adapter.Adapter { return New(logger) },
	})
}
