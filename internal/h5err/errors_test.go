package h5err

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsKind(t *testing.T) {
	err := Invalid("write", "duplicate name %q", "a")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, `write: invalid argument: duplicate name "a"`, err.Error())

	wrapped := fmt.Errorf("outer: %w", err)
	assert.ErrorIs(t, wrapped, ErrInvalidArgument)
	assert.Equal(t, KindInvalidArgument, KindOf(wrapped))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, KindNotFound, "open", "x"))

	cause := errors.New("disk gone")
	err := Wrap(cause, KindNotFound, "open", "container %s", "/tmp/x")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestKindOfSentinel(t *testing.T) {
	assert.Equal(t, KindOutOfRange, KindOf(fmt.Errorf("x: %w", ErrOutOfRange)))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.Equal(t, "kind(99)", Kind(99).String())
}
