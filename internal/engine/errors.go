package engine

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/leapstack-labs/leapmerge/internal/loader"
	"github.com/leapstack-labs/leapmerge/internal/merge"
)

// Precondition errors. Operations that fail with one of these leave the
// engine state unchanged.
var (
	ErrNotLoaded       = errors.New("files not loaded")
	ErrColumnNotFound  = errors.New("column not found")
	ErrEmptyDataset    = loader.ErrEmptyDataset
	ErrNoResult        = errors.New("no merge result")
	ErrUnknownJoinType = merge.ErrUnknownJoinType
	ErrInvalidSlot     = errors.New("invalid dataset slot")
)

// InternalError reports an unexpected failure inside an engine operation.
type InternalError struct {
	Op    string
	Cause error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Cause)
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

// IsPrecondition reports whether err is a caller error (bad input, a
// missing file or wrong state) rather than an I/O or internal failure.
func IsPrecondition(err error) bool {
	for _, target := range []error{ErrNotLoaded, ErrColumnNotFound, ErrEmptyDataset, ErrNoResult, ErrUnknownJoinType, ErrInvalidSlot, fs.ErrNotExist} {
		if errors.Is(err, target) {
			return true
		}
	}
	var unsupported *loader.UnsupportedFormatError
	return errors.As(err, &unsupported)
}
