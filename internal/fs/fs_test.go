package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "g", "CURRENT")

	require.NoError(t, WriteFileAtomic(Default, path, []byte("MANIFEST-1")))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "MANIFEST-1", string(got))

	require.NoError(t, WriteFileAtomic(Default, path, []byte("MANIFEST-2")))
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "MANIFEST-2", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not linger")
}

func TestWriteFileAtomicKeepsOldContentOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "CURRENT")
	require.NoError(t, WriteFileAtomic(Default, path, []byte("old")))

	for name, fault := range map[string]Fault{
		"write":  {FailAfterBytes: 1},
		"sync":   {FailAfterBytes: -1, FailOnSync: true},
		"rename": {FailAfterBytes: -1, FailOnRename: true},
	} {
		t.Run(name, func(t *testing.T) {
			ffs := NewFaultyFS(nil)
			ffs.AddRule("CURRENT", fault)

			err := WriteFileAtomic(ffs, path, []byte("new content"))
			assert.ErrorIs(t, err, ErrInjected)

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "old", string(got))

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

func TestFaultyFSReset(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("x", Fault{FailOnRemove: true})

	path := filepath.Join(dir, "x")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	assert.ErrorIs(t, ffs.Remove(path), ErrInjected)

	ffs.Reset()
	assert.NoError(t, ffs.Remove(path))
}
