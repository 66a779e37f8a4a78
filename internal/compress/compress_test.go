package compress

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, a := range Algorithms() {
		got, err := Parse(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	got, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, None, got)

	_, err = Parse("brotli")
	assert.Error(t, err)
	assert.False(t, Algorithm(99).Valid())
}

func TestRoundTrip(t *testing.T) {
	src := bytes.Repeat([]byte("feature rows compress well "), 200)
	for _, a := range Algorithms() {
		t.Run(a.String(), func(t *testing.T) {
			enc, err := Encode(a, src)
			require.NoError(t, err)
			if a != None {
				assert.Less(t, len(enc), len(src))
			}
			dec, err := Decode(a, enc, len(src))
			require.NoError(t, err)
			assert.Equal(t, src, dec)
		})
	}
}

func TestEncodeBlockFallsBack(t *testing.T) {
	src := make([]byte, 4096)
	_, err := rand.Read(src)
	require.NoError(t, err)

	for _, a := range Algorithms() {
		used, out, err := EncodeBlock(a, src)
		require.NoError(t, err)
		assert.Equal(t, None, used, a.String())
		assert.Equal(t, src, out)
	}
}

func TestDecodeSizeMismatch(t *testing.T) {
	src := bytes.Repeat([]byte{1, 2, 3, 4}, 256)
	enc, err := Encode(Zstd, src)
	require.NoError(t, err)
	_, err = Decode(Zstd, enc, len(src)+1)
	assert.Error(t, err)

	_, err = Decode(Snappy, []byte{0xff, 0xff}, 10)
	assert.Error(t, err)
}
