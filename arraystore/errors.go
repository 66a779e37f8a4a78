package arraystore

import (
	"errors"

	"github.com/bootphon/h5features-sub000/internal/h5err"
)

var (
	// ErrNotFound is returned when opening an empty location for reading.
	ErrNotFound = errors.New("arraystore: container not found")
	// ErrNotAContainer is returned when a location holds blobs but no
	// container marker.
	ErrNotAContainer = errors.New("arraystore: not a container")
	// ErrExists is returned when creating a container or group that exists.
	ErrExists = errors.New("arraystore: already exists")
	// ErrGroupNotFound is returned for a missing group.
	ErrGroupNotFound = errors.New("arraystore: group not found")
	// ErrColumnNotFound is returned for a missing column.
	ErrColumnNotFound = errors.New("arraystore: column not found")
	// ErrReadOnly is returned when writing through a read-only container.
	ErrReadOnly = errors.New("arraystore: container is read-only")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("arraystore: container is closed")
	// ErrTxDone is returned when using a committed or rolled back transaction.
	ErrTxDone = errors.New("arraystore: transaction already finished")
	// ErrCorrupt matches every integrity failure.
	ErrCorrupt = h5err.ErrCorrupt
)
