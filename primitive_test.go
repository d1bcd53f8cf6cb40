package netorder

import (
	"math"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireEncodes(t *testing.T, v any, want []byte) {
	t.Helper()
	b := &Buffer{}
	n, err := SerializeTo(v, b)
	require.NoError(t, err)
	require.Equal(t, len(want), n)
	require.Equal(t, want, b.Bytes())
}

func TestPrimitiveEncode(t *testing.T) {
	requireEncodes(t, uint8(0xFF), []byte{0xFF})
	requireEncodes(t, uint16(0x1234), []byte{0x12, 0x34})
	requireEncodes(t, uint32(0x12345678), []byte{0x12, 0x34, 0x56, 0x78})
	requireEncodes(t, uint64(0x1234567812345678), []byte{0x12, 0x34, 0x56, 0x78, 0x12, 0x34, 0x56, 0x78})
	requireEncodes(t, int8(-1), []byte{0xFF})
	requireEncodes(t, int16(-2), []byte{0xFF, 0xFE})
	requireEncodes(t, int32(-2), []byte{0xFF, 0xFF, 0xFF, 0xFE})
	requireEncodes(t, int64(1), []byte{0, 0, 0, 0, 0, 0, 0, 1})
	requireEncodes(t, true, []byte{1})
	requireEncodes(t, float32(math.Pi), []byte{0x40, 0x49, 0x0f, 0xdb})
	requireEncodes(t, math.Pi, []byte{0x40, 0x09, 0x21, 0xfb, 0x54, 0x44, 0x2d, 0x18})
	requireEncodes(t, Char('💯'), []byte{0, 1, 0xF4, 0xAF})
}

func TestPrimitiveDecode(t *testing.T) {
	var u16 uint16
	require.NoError(t, Unmarshal([]byte{0x12, 0x34}, &u16))
	assert.Equal(t, uint16(0x1234), u16)

	var i32 int32
	require.NoError(t, Unmarshal([]byte{0xFF, 0xFF, 0xFF, 0xFE}, &i32))
	assert.Equal(t, int32(-2), i32)

	var f32 float32
	require.NoError(t, Unmarshal([]byte{0x40, 0x49, 0x0f, 0xdb}, &f32))
	assert.Equal(t, float32(math.Pi), f32)

	var f64 float64
	require.NoError(t, Unmarshal([]byte{0x40, 0x09, 0x21, 0xfb, 0x54, 0x44, 0x2d, 0x18}, &f64))
	assert.Equal(t, math.Pi, f64)

	var c Char
	require.NoError(t, Unmarshal([]byte{0, 1, 0xF4, 0xAF}, &c))
	assert.Equal(t, Char('💯'), c)
}

func TestPrimitiveShortInput(t *testing.T) {
	var u32 uint32
	err := Unmarshal([]byte{1, 2, 3}, &u32)
	require.ErrorIs(t, err, ErrUnexpectedEOF)

	var u8 uint8
	require.ErrorIs(t, Unmarshal(nil, &u8), ErrUnexpectedEOF)
}

func TestInvalidScalars(t *testing.T) {
	var c Char
	require.ErrorIs(t, Unmarshal([]byte{0, 0, 0xD8, 0x00}, &c), ErrInvalidScalar, "surrogate half")
	require.ErrorIs(t, Unmarshal([]byte{0, 0x11, 0, 0}, &c), ErrInvalidScalar, "past U+10FFFF")
	require.ErrorIs(t, Unmarshal([]byte{0xFF, 0xFF, 0xFF, 0xFF}, &c), ErrInvalidScalar)

	_, err := Marshal(Char(0xD800))
	require.ErrorIs(t, err, ErrInvalidScalar)

	var b bool
	require.ErrorIs(t, Unmarshal([]byte{2}, &b), ErrInvalidScalar)
}

func TestFloatBitsPreserved(t *testing.T) {
	for _, f := range []float64{0, math.Copysign(0, -1), math.Inf(1), math.SmallestNonzeroFloat64, math.MaxFloat64} {
		data, err := Marshal(f)
		require.NoError(t, err)
		var got float64
		require.NoError(t, Unmarshal(data, &got))
		assert.Equal(t, math.Float64bits(f), math.Float64bits(got))
	}
}

func TestPrimitiveRoundTrip(t *testing.T) {
	type fixed struct {
		Int1  uint8
		Int2  int8
		Int3  uint16
		Int4  int16
		Int5  uint32
		Int6  int32
		Int7  uint64
		Int9  int64
		Flt3  float32
		Flt6  float64
		Const bool
	}
	condition := func(z fixed) bool {
		data, err := Marshal(z)
		require.NoError(t, err)
		require.Len(t, data, 1+1+2+2+4+4+8+8+4+8+1)
		res := &fixed{}
		require.NoError(t, Unmarshal(data, res))
		return assert.ObjectsAreEqual(z, *res)
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}
