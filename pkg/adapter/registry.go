package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registration describes an adapter implementation and the sources it
// handles.
type Registration struct {
	// Name is the adapter type used in Config.Type.
	Name string
	// Extensions are the lower-case file extensions, with the dot, of
	// database files the adapter opens.
	Extensions []string
	// Schemes are the URL schemes, without "://", the adapter connects to.
	Schemes []string
	// New creates an unconnected adapter.
	New func(*slog.Logger) Adapter
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register adds an adapter to the registry. Adapter packages call it from
// init. A later registration of the same name replaces the earlier one.
func Register(r Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[r.Name] = r
}

// Get retrieves a registration by adapter name.
func Get(name string) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[name]
	return r, ok
}

// ForSource returns the adapter type that handles source: a URL with a
// registered scheme, or a file with a registered extension. Any "#table"
// suffix must already be removed.
func ForSource(source string) (string, bool) {
	scheme, ext := "", ""
	if i := strings.Index(source, "://"); i > 0 {
		scheme = strings.ToLower(source[:i])
	} else {
		ext = strings.ToLower(filepath.Ext(source))
		if ext == "" {
			return "", false
		}
	}

	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, name := range sortedNames() {
		r := registry[name]
		if scheme != "" && contains(r.Schemes, scheme) || ext != "" && contains(r.Extensions, ext) {
			return name, true
		}
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// NewAdapter creates an unconnected adapter for cfg.Type.
// A nil logger makes the adapter discard its diagnostics.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}

	r, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{
			Type:      cfg.Type,
			Available: ListAdapters(),
		}
	}
	return r.New(logger), nil
}

// Open creates an adapter for cfg.Type and connects it.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Adapter, error) {
	a, err := NewAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAdapters returns all registered adapter names (sorted).
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return sortedNames()
}

// sortedNames expects registryMu to be held.
func sortedNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if an adapter type is registered.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// UnknownAdapterError is returned when an unknown adapter type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q\nAvailable adapters: %v\nHint: import the adapter package or check the source path", e.Type, e.Available)
}
