package h5features

import (
	"errors"
	"fmt"

	"github.com/bootphon/h5features-sub000/arraystore"
	"github.com/bootphon/h5features-sub000/blobstore"
	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// Error kinds. Every error returned by this package matches exactly one of
// them with errors.Is.
var (
	ErrInvalidArgument    = h5err.ErrInvalidArgument
	ErrSchemaMismatch     = h5err.ErrSchemaMismatch
	ErrNotFound           = h5err.ErrNotFound
	ErrOutOfRange         = h5err.ErrOutOfRange
	ErrUnsupportedVersion = h5err.ErrUnsupportedVersion
	ErrUnimplemented      = h5err.ErrUnimplemented
	ErrCorrupt            = h5err.ErrCorrupt
)

// ErrClosed is returned by calls on a closed Writer or Reader.
var ErrClosed = errors.New("h5features: handle is closed")

// Error is the typed error carried by failures. Use errors.As to inspect the
// failing operation and detail.
type Error = h5err.Error

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Already classified.
	var e *h5err.Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, ErrClosed) {
		return err
	}

	// Not found unification.
	switch {
	case errors.Is(err, arraystore.ErrNotFound),
		errors.Is(err, arraystore.ErrNotAContainer),
		errors.Is(err, arraystore.ErrGroupNotFound),
		errors.Is(err, arraystore.ErrColumnNotFound),
		errors.Is(err, blobstore.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	// Container state misuse.
	switch {
	case errors.Is(err, arraystore.ErrExists),
		errors.Is(err, arraystore.ErrReadOnly),
		errors.Is(err, arraystore.ErrClosed),
		errors.Is(err, arraystore.ErrTxDone):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return err
}
