package format

import (
	"testing"

	"github.com/bootphon/h5features-sub000/internal/h5err"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	v, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, Default, v)

	v, err = Parse(" 1.0 ")
	require.NoError(t, err)
	assert.Equal(t, V1_0, v)

	_, err = Parse("2.0")
	require.Error(t, err)
	assert.ErrorIs(t, err, h5err.ErrUnsupportedVersion)
	assert.Contains(t, err.Error(), `"2.0"`)
}

func TestSupportedOrder(t *testing.T) {
	assert.Equal(t, []Version{V0_1, V1_0, V1_1}, Supported())
	assert.True(t, V0_1.Less(V1_0))
	assert.True(t, V1_0.Less(V1_1))
	assert.False(t, V1_1.Less(V1_1))
}

func TestLayout(t *testing.T) {
	legacy := V0_1.Layout()
	assert.Equal(t, "file_index", legacy.IndexColumn)
	assert.False(t, legacy.IntervalTimes)
	assert.False(t, legacy.Properties)

	cur := V1_1.Layout()
	assert.Equal(t, "index", cur.IndexColumn)
	assert.True(t, cur.Properties)
	assert.False(t, cur.SharedChunking)
	assert.Equal(t, []string{"items", "times", "features", "index"}, cur.Columns())

	assert.Panics(t, func() { Version("9").Layout() })
}

func TestCheckCompatible(t *testing.T) {
	assert.NoError(t, V1_1.CheckCompatible(V1_1))

	err := V1_1.CheckCompatible(V1_0)
	assert.ErrorIs(t, err, h5err.ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "newer than group version 1.0")

	err = V0_1.CheckCompatible(V1_1)
	assert.ErrorIs(t, err, h5err.ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "older than group version 1.1")

	err = V1_1.CheckCompatible(Version("0.0"))
	assert.ErrorIs(t, err, h5err.ErrUnsupportedVersion)
}
