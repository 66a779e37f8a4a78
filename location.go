package h5features

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bootphon/h5features-sub000/blobstore"
	"github.com/bootphon/h5features-sub000/blobstore/sqlite"
	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// Location names where a container lives: a local directory, a single
// SQLite file or any blob store.
type Location struct {
	name string
	open func(ctx context.Context, write bool) (blobstore.BlobStore, io.Closer, error)
}

// String returns a human-readable form of the location.
func (l Location) String() string { return l.name }

func (l Location) store(ctx context.Context, write bool) (blobstore.BlobStore, io.Closer, error) {
	if l.open == nil {
		return nil, nil, h5err.Invalid("h5features.Location", "zero location")
	}
	return l.open(ctx, write)
}

// Local stores the container in directory dir. The directory is created by
// the first write; its parent must exist.
func Local(dir string, opts ...blobstore.LocalOption) Location {
	return Location{
		name: "file://" + dir,
		open: func(_ context.Context, write bool) (blobstore.BlobStore, io.Closer, error) {
			const op = "h5features.Local"
			if dir == "" {
				return nil, nil, h5err.Invalid(op, "empty directory")
			}
			if err := checkParent(op, dir); err != nil {
				return nil, nil, err
			}
			if fi, err := os.Stat(dir); err == nil && !fi.IsDir() {
				return nil, nil, h5err.Invalid(op, "%s is not a directory", dir)
			}
			return blobstore.NewLocalStore(dir, opts...), nil, nil
		},
	}
}

// SQLite stores the container in the single database file path.
func SQLite(path string) Location {
	return Location{
		name: "sqlite://" + path,
		open: func(_ context.Context, write bool) (blobstore.BlobStore, io.Closer, error) {
			const op = "h5features.SQLite"
			if path == "" {
				return nil, nil, h5err.Invalid(op, "empty database path")
			}
			if err := checkParent(op, path); err != nil {
				return nil, nil, err
			}
			if !write {
				if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
					return nil, nil, h5err.NotFound(op, "no container at %s", path)
				}
			}
			s, err := sqlite.Open(path)
			if err != nil {
				return nil, nil, err
			}
			return s, s, nil
		},
	}
}

// Remote stores the container in store, for example an S3 or MinIO bucket.
// The caller keeps ownership of store.
func Remote(store blobstore.BlobStore) Location {
	return Location{
		name: fmt.Sprintf("remote://%T", store),
		open: func(context.Context, bool) (blobstore.BlobStore, io.Closer, error) {
			if store == nil {
				return nil, nil, h5err.Invalid("h5features.Remote", "nil store")
			}
			return store, nil, nil
		},
	}
}

func checkParent(op, path string) error {
	parent := filepath.Dir(filepath.Clean(path))
	fi, err := os.Stat(parent)
	if errors.Is(err, os.ErrNotExist) {
		return h5err.NotFound(op, "directory %s does not exist", parent)
	}
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return h5err.Invalid(op, "%s is not a directory", parent)
	}
	return nil
}
