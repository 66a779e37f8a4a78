package h5features_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bootphon/h5features-sub000"
	"github.com/bootphon/h5features-sub000/blobstore"
	"github.com/bootphon/h5features-sub000/data"
)

func makeItem(t *testing.T, name string, rows int, t0 float64, props data.Properties) data.Item {
	t.Helper()
	vals := make([]float64, 2*rows)
	for i := range vals {
		vals[i] = t0 + float64(i)
	}
	f, err := data.NewFeaturesFlat(2, vals)
	require.NoError(t, err)
	times := make([]float64, rows)
	for i := range times {
		times[i] = t0 + float64(i)
	}
	it, err := data.NewItem(name, f, data.CenterTimes(times), props)
	require.NoError(t, err)
	return it
}

func write(t *testing.T, loc h5features.Location, group string, items []data.Item, opts ...h5features.Option) {
	t.Helper()
	w, err := h5features.NewWriter(t.Context(), loc, group, opts...)
	require.NoError(t, err)
	require.NoError(t, w.WriteBatch(t.Context(), data.BatchOf(items...)))
	require.NoError(t, w.Close())
}

func TestWriteReadLocations(t *testing.T) {
	dir := t.TempDir()
	locations := map[string]h5features.Location{
		"local":  h5features.Local(filepath.Join(dir, "feats")),
		"sqlite": h5features.SQLite(filepath.Join(dir, "feats.db")),
		"remote": h5features.Remote(blobstore.NewMemoryStore()),
	}
	for name, loc := range locations {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			items := []data.Item{
				makeItem(t, "a", 5, 0, data.Properties{"speaker": "s1"}),
				makeItem(t, "b", 3, 0, data.Properties{"speaker": "s2"}),
			}
			write(t, loc, "mfcc", items, h5features.WithCompression("zstd"), h5features.WithChunkRows(2))

			r, err := h5features.Open(ctx, loc, "")
			require.NoError(t, err)
			defer r.Close()

			assert.Equal(t, "mfcc", r.Group())
			assert.Equal(t, []string{"a", "b"}, r.Items())
			info := r.Info()
			assert.Equal(t, 2, info.Items)
			assert.Equal(t, int64(8), info.Rows)
			assert.Equal(t, "zstd", info.Compression)

			got, err := r.ReadAll(ctx)
			require.NoError(t, err)
			require.Len(t, got, 2)
			for i := range items {
				assert.True(t, items[i].Equal(got[i]), "item %s", items[i].Name)
			}
		})
	}
}

func TestReadWindow(t *testing.T) {
	ctx := t.Context()
	loc := h5features.Remote(blobstore.NewMemoryStore())
	write(t, loc, "g", []data.Item{makeItem(t, "a", 9, 0, nil), makeItem(t, "b", 4, 0, nil)})

	r, err := h5features.Open(ctx, loc, "g")
	require.NoError(t, err)
	defer r.Close()

	it, err := r.Read(ctx, "a", h5features.Between(2, 5))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4, 5}, it.Times.Values())

	it, err = r.Read(ctx, "a", h5features.From(2.5))
	require.NoError(t, err)
	assert.Equal(t, 3.0, it.Times.Start(0))

	_, err = r.Read(ctx, "a", h5features.To(-1))
	assert.ErrorIs(t, err, h5features.ErrOutOfRange)

	items, err := r.ReadRange(ctx, "a", "b", h5features.From(7), h5features.To(1))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].Rows())
	assert.Equal(t, 2, items[1].Rows())

	_, err = r.ReadRange(ctx, "b", "a")
	assert.ErrorIs(t, err, h5features.ErrOutOfRange)

	_, err = r.Read(ctx, "missing")
	assert.ErrorIs(t, err, h5features.ErrNotFound)
}

func TestAllIterator(t *testing.T) {
	ctx := t.Context()
	loc := h5features.Remote(blobstore.NewMemoryStore())
	write(t, loc, "g", []data.Item{makeItem(t, "a", 2, 0, nil), makeItem(t, "b", 3, 0, nil), makeItem(t, "c", 1, 0, nil)})

	r, err := h5features.Open(ctx, loc, "g")
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for it, err := range r.All(ctx) {
		require.NoError(t, err)
		names = append(names, it.Name)
		if it.Name == "b" {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, names)

	var errs []error
	for _, err := range r.All(ctx, h5features.From(1)) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], h5features.ErrInvalidArgument)

	n := 0
	for it, err := range r.All(ctx, h5features.IgnoreProperties()) {
		require.NoError(t, err)
		assert.Nil(t, it.Properties)
		n++
	}
	assert.Equal(t, 3, n)
}

func TestContinuationAcrossWriters(t *testing.T) {
	ctx := t.Context()
	loc := h5features.Local(filepath.Join(t.TempDir(), "feats"))
	write(t, loc, "g", []data.Item{makeItem(t, "a", 3, 0, nil), makeItem(t, "b", 2, 0, nil)})
	write(t, loc, "g", []data.Item{makeItem(t, "b", 2, 2, nil), makeItem(t, "c", 1, 0, nil)})

	r, err := h5features.Open(ctx, loc, "g")
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []string{"a", "b", "c"}, r.Items())
	b, err := r.Read(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3}, b.Times.Values())

	w, err := h5features.NewWriter(ctx, loc, "g")
	require.NoError(t, err)
	defer w.Close()
	err = w.Write(ctx, makeItem(t, "a", 1, 10, nil))
	assert.ErrorIs(t, err, h5features.ErrInvalidArgument)
}

func TestOverwrite(t *testing.T) {
	ctx := t.Context()
	loc := h5features.Remote(blobstore.NewMemoryStore())
	write(t, loc, "g", []data.Item{makeItem(t, "a", 3, 0, nil)}, h5features.WithVersion("1.0"))

	w, err := h5features.NewWriter(ctx, loc, "g", h5features.WithOverwrite())
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, makeItem(t, "x", 2, 0, nil)))
	// later writes of the same writer append
	require.NoError(t, w.Write(ctx, makeItem(t, "y", 2, 0, nil)))
	require.NoError(t, w.Close())

	r, err := h5features.Open(ctx, loc, "g")
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []string{"x", "y"}, r.Items())
	assert.Equal(t, "1.0", r.Info().Version.String())
}

func TestOpenErrors(t *testing.T) {
	ctx := t.Context()
	dir := t.TempDir()

	_, err := h5features.Open(ctx, h5features.Local(filepath.Join(dir, "none")), "")
	assert.ErrorIs(t, err, h5features.ErrNotFound)

	_, err = h5features.NewWriter(ctx, h5features.Local(filepath.Join(dir, "no", "such", "dir")), "g")
	assert.ErrorIs(t, err, h5features.ErrNotFound)

	_, err = h5features.Open(ctx, h5features.SQLite(filepath.Join(dir, "none.db")), "")
	assert.ErrorIs(t, err, h5features.ErrNotFound)

	junk := filepath.Join(dir, "junk")
	require.NoError(t, os.MkdirAll(junk, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(junk, "file.txt"), []byte("x"), 0o644))
	_, err = h5features.Open(ctx, h5features.Local(junk), "")
	assert.ErrorIs(t, err, h5features.ErrNotFound)

	_, err = h5features.NewWriter(ctx, h5features.Remote(blobstore.NewMemoryStore()), "g", h5features.WithVersion("2.0"))
	assert.ErrorIs(t, err, h5features.ErrUnsupportedVersion)

	_, err = h5features.NewWriter(ctx, h5features.Remote(blobstore.NewMemoryStore()), "g", h5features.WithCompression("gzip"))
	assert.ErrorIs(t, err, h5features.ErrInvalidArgument)

	loc := h5features.Remote(blobstore.NewMemoryStore())
	write(t, loc, "g1", []data.Item{makeItem(t, "a", 1, 0, nil)})
	write(t, loc, "g2", []data.Item{makeItem(t, "a", 1, 0, nil)})
	_, err = h5features.Open(ctx, loc, "")
	assert.ErrorIs(t, err, h5features.ErrInvalidArgument)
	_, err = h5features.Open(ctx, loc, "g3")
	assert.ErrorIs(t, err, h5features.ErrNotFound)

	groups, err := h5features.Groups(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, groups)
}

func TestClosedHandles(t *testing.T) {
	ctx := t.Context()
	loc := h5features.Remote(blobstore.NewMemoryStore())
	w, err := h5features.NewWriter(ctx, loc, "g")
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, makeItem(t, "a", 1, 0, nil)))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Write(ctx, makeItem(t, "b", 1, 0, nil)), h5features.ErrClosed)

	r, err := h5features.Open(ctx, loc, "g")
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	_, err = r.Read(ctx, "a")
	assert.ErrorIs(t, err, h5features.ErrClosed)
}

func TestMetricsAndVerify(t *testing.T) {
	ctx := t.Context()
	loc := h5features.Remote(blobstore.NewMemoryStore())
	metrics := &h5features.BasicMetricsCollector{}

	w, err := h5features.NewWriter(ctx, loc, "g", h5features.WithMetricsCollector(metrics))
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, makeItem(t, "a", 4, 0, nil)))
	require.NoError(t, w.Write(ctx, makeItem(t, "a", 2, 4, nil)))
	require.Error(t, w.Write(ctx, makeItem(t, "a", 2, 0, nil)))
	require.NoError(t, w.Close())

	stats := metrics.GetStats()
	assert.Equal(t, int64(3), stats.WriteCount)
	assert.Equal(t, int64(1), stats.WriteErrors)
	assert.Equal(t, int64(6), stats.WriteRows)
	assert.Equal(t, int64(2), stats.CommitCount)
	assert.Equal(t, int64(1), stats.Continuations)

	r, err := h5features.Open(ctx, loc, "g", h5features.WithMetricsCollector(metrics))
	require.NoError(t, err)
	_, err = r.Read(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, int64(6), metrics.GetStats().ReadRows)

	require.NoError(t, h5features.Verify(ctx, loc, ""))
	_, err = h5features.Vacuum(ctx, loc, "g")
	require.NoError(t, err)
	_, err = h5features.Vacuum(ctx, loc, "missing")
	assert.ErrorIs(t, err, h5features.ErrNotFound)
}
