package capture

import (
	"bytes"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexRead(t *testing.T) {
	got, err := Read(bytes.NewReader([]byte("0x00 01\n0a:0B ff\n")), Options{Hex: true})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 0x0A, 0x0B, 0xFF}, got)

	_, err = Read(bytes.NewReader([]byte("abc")), Options{Hex: true})
	require.ErrorIs(t, err, ErrHex)
	_, err = Read(bytes.NewReader([]byte("zz")), Options{Hex: true})
	require.ErrorIs(t, err, ErrHex)
}

func TestRoundTrip(t *testing.T) {
	for _, opts := range []Options{
		{},
		{Hex: true},
		{Compression: CompZstd},
		{Hex: true, Compression: CompZstd},
	} {
		f := func(data []byte) bool {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, data, opts))
			got, err := Read(&buf, opts)
			require.NoError(t, err)
			return bytes.Equal(data, got)
		}
		require.NoError(t, quick.Check(f, nil), "%+v", opts)
	}
}

func TestDetect(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []byte("payload"), Options{Compression: CompZstd}))
	assert.Equal(t, CompZstd, Detect("capture.bin", buf.Bytes()))
	assert.Equal(t, CompZstd, Detect("capture.bin.zst", nil))
	assert.Equal(t, CompRaw, Detect("capture.bin", []byte("payload")))
}
