package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bootphon/h5features-sub000"
	"github.com/bootphon/h5features-sub000/data"
)

func fixture(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "feats")
	w, err := h5features.NewWriter(t.Context(), h5features.Local(dir), "mfcc")
	require.NoError(t, err)
	for _, name := range []string{"utt1", "utt2"} {
		f, err := data.NewFeatures([][]float32{{1, 2}, {3, 4}, {5, 6}})
		require.NoError(t, err)
		it, err := data.NewItem(name, f, data.CenterTimes([]float64{0, 1, 2}), data.Properties{"speaker": name})
		require.NoError(t, err)
		require.NoError(t, w.Write(t.Context(), it))
	}
	require.NoError(t, w.Close())
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "h5features v"+version)
}

func TestGroupsAndLs(t *testing.T) {
	dir := fixture(t)

	out, err := run(t, "groups", dir)
	require.NoError(t, err)
	assert.Equal(t, "mfcc\n", out)

	out, err = run(t, "ls", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"utt1", "utt2"}, strings.Fields(out))
}

func TestInfo(t *testing.T) {
	dir := fixture(t)
	out, err := run(t, "info", dir, "--group", "mfcc")
	require.NoError(t, err)

	var doc infoDoc
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "mfcc", doc.Group)
	assert.Equal(t, 2, doc.Items)
	assert.Equal(t, int64(6), doc.Rows)
	assert.Equal(t, "float32", doc.Dtype)
	assert.True(t, doc.HasProperties)
}

func TestRead(t *testing.T) {
	dir := fixture(t)
	out, err := run(t, "read", dir, "utt1", "--from", "1")
	require.NoError(t, err)

	var doc struct {
		Name       string         `json:"name"`
		Times      []float64      `json:"times"`
		Features   [][]float64    `json:"features"`
		Properties map[string]any `json:"properties"`
	}
	require.NoError(t, gojson.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "utt1", doc.Name)
	assert.Equal(t, []float64{1, 2}, doc.Times)
	assert.Equal(t, [][]float64{{3, 4}, {5, 6}}, doc.Features)
	assert.Equal(t, "utt1", doc.Properties["speaker"])

	out, err = run(t, "read", dir, "utt1", "--to-item", "utt2", "--to", "0", "--ignore-properties", "--format", "yaml")
	require.NoError(t, err)
	var docs []itemDoc
	require.NoError(t, yaml.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 2)
	assert.Len(t, docs[1].Features, 1)
	assert.Nil(t, docs[0].Properties)

	_, err = run(t, "read", dir, "utt1", "--to=-1")
	assert.ErrorIs(t, err, h5features.ErrOutOfRange)
}

func TestVerifyAndVacuum(t *testing.T) {
	dir := fixture(t)
	out, err := run(t, "verify", dir)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	stray := filepath.Join(dir, "mfcc", "features", "99999999.chk")
	require.NoError(t, os.WriteFile(stray, []byte("junk"), 0o644))
	out, err = run(t, "vacuum", dir, "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "mfcc/features/99999999.chk")
	_, err = os.Stat(stray)
	assert.True(t, os.IsNotExist(err))
}

func TestConfigLayers(t *testing.T) {
	dir := fixture(t)
	cfgFile := filepath.Join(t.TempDir(), "h5f.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("store:\n  backend: sqlite\n"), 0o644))

	// a directory is not a database file
	_, err := run(t, "--config", cfgFile, "groups", dir)
	assert.Error(t, err)

	// flags win over the file
	out, err := run(t, "--config", cfgFile, "--backend", "local", "groups", dir)
	require.NoError(t, err)
	assert.Equal(t, "mfcc\n", out)

	t.Setenv("H5F_STORE_BACKEND", "ftp")
	_, err = run(t, "groups", dir)
	assert.Error(t, err)
	t.Setenv("H5F_STORE_BACKEND", "local")

	t.Setenv("H5F_LOG_LEVEL", "loud")
	_, err = run(t, "groups", dir)
	assert.Error(t, err)
}
