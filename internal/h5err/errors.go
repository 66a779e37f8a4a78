// Package h5err defines the error taxonomy shared by every layer of the store.
//
// Errors carry a Kind so callers can branch with errors.Is against the kind
// sentinels, plus the failing operation and a human-readable detail naming the
// offending item, value or column.
package h5err

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// KindInvalidArgument is a wrong type, shape, empty item or duplicate name.
	KindInvalidArgument Kind = iota + 1
	// KindSchemaMismatch is a batch incompatible with an existing group.
	KindSchemaMismatch
	// KindNotFound is a missing container, group or item.
	KindNotFound
	// KindOutOfRange is a time bound outside an item or a reversed item interval.
	KindOutOfRange
	// KindUnsupportedVersion is an unknown format version tag.
	KindUnsupportedVersion
	// KindUnimplemented is a feature that always fails (sparse features).
	KindUnimplemented
	// KindCorrupt is persisted data failing an integrity check.
	KindCorrupt
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrSchemaMismatch     = errors.New("schema mismatch")
	ErrNotFound           = errors.New("not found")
	ErrOutOfRange         = errors.New("out of range")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrUnimplemented      = errors.New("unimplemented")
	ErrCorrupt            = errors.New("data corruption detected")
)

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindSchemaMismatch:
		return ErrSchemaMismatch
	case KindNotFound:
		return ErrNotFound
	case KindOutOfRange:
		return ErrOutOfRange
	case KindUnsupportedVersion:
		return ErrUnsupportedVersion
	case KindUnimplemented:
		return ErrUnimplemented
	case KindCorrupt:
		return ErrCorrupt
	default:
		return nil
	}
}

// String returns the kind name as used in error messages.
func (k Kind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure.
//
// The underlying cause (if any) can be accessed via errors.Unwrap.
type Error struct {
	Kind   Kind
	Op     string
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// New creates a classified error with a formatted detail.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// Wrap classifies cause. It returns nil if cause is nil.
func Wrap(cause error, kind Kind, op, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the kind of the first classified error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, k := range []Kind{KindInvalidArgument, KindSchemaMismatch, KindNotFound, KindOutOfRange,
		KindUnsupportedVersion, KindUnimplemented, KindCorrupt} {
		if errors.Is(err, k.sentinel()) {
			return k
		}
	}
	return 0
}

// Invalid is shorthand for New(KindInvalidArgument, ...).
func Invalid(op, format string, args ...any) *Error {
	return New(KindInvalidArgument, op, format, args...)
}

// Mismatch is shorthand for New(KindSchemaMismatch, ...).
func Mismatch(op, format string, args ...any) *Error {
	return New(KindSchemaMismatch, op, format, args...)
}

// NotFound is shorthand for New(KindNotFound, ...).
func NotFound(op, format string, args ...any) *Error {
	return New(KindNotFound, op, format, args...)
}

// OutOfRange is shorthand for New(KindOutOfRange, ...).
func OutOfRange(op, format string, args ...any) *Error {
	return New(KindOutOfRange, op, format, args...)
}
