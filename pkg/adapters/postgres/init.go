package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/leapmerge/pkg/adapter"
)

func init() {
	adapter.Register(adapter.Registration{
		Name:    "postgres",
		Schemes: []string{"postgres", "postgresql"},
		New:     func(logger *slog.Logger) adapter.Adapter { return New(logger) },
	})
}
