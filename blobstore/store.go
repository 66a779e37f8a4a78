package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNotFound is returned when a blob does not exist. It aliases
// os.ErrNotExist so that errors.Is works for filesystem errors too.
var ErrNotFound = os.ErrNotExist

// BlobStore is a namespace of blobs. Implementations must be safe for
// concurrent use.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Put atomically creates or replaces a blob.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a blob.
type Blob interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	Size() int64
	io.Closer
}

// Mappable is implemented by blobs whose content is already in memory.
type Mappable interface {
	// Bytes returns the content, valid until the Blob is closed.
	Bytes() ([]byte, error)
}

// ReadAll returns the whole content of a blob.
func ReadAll(ctx context.Context, s BlobStore, name string) ([]byte, error) {
	b, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()
	return ReadRange(ctx, b, 0, b.Size())
}

// ReadRange reads length bytes at off into a new buffer.
func ReadRange(ctx context.Context, b Blob, off, length int64) ([]byte, error) {
	if off < 0 || length < 0 || off+length > b.Size() {
		return nil, fmt.Errorf("blobstore: range [%d, %d) outside blob of %d bytes", off, off+length, b.Size())
	}
	if m, ok := b.(Mappable); ok {
		data, err := m.Bytes()
		if err != nil {
			return nil, err
		}
		out := make([]byte, length)
		copy(out, data[off:off+length])
		return out, nil
	}
	out := make([]byte, length)
	n, err := b.ReadAt(ctx, out, off)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) == length) {
		return nil, err
	}
	if int64(n) != length {
		return nil, io.ErrUnexpectedEOF
	}
	return out, nil
}

// Exists reports whether a blob exists.
func Exists(ctx context.Context, s BlobStore, name string) (bool, error) {
	b, err := s.Open(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, b.Close()
}

// ValidName rejects names that could escape a store's root.
func ValidName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return fmt.Errorf("blobstore: invalid blob name %q", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("blobstore: invalid blob name %q", name)
		}
	}
	return nil
}

// bytesBlob serves a blob from a byte slice.
type bytesBlob struct {
	data []byte
}

// NewBytesBlob wraps data as a Blob.
func NewBytesBlob(data []byte) Blob { return &bytesBlob{data: data} }

func (b *bytesBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("blobstore: negative offset %d", off)
	}
	if off >= int64(len(b.data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *bytesBlob) Size() int64            { return int64(len(b.data)) }
func (b *bytesBlob) Close() error           { return nil }
func (b *bytesBlob) Bytes() ([]byte, error) { return b.data, nil }
