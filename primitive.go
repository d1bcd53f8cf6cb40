package netorder

import (
	"reflect"
	"unicode/utf8"

	"github.com/rawbytedev/netorder/internal/common"
)

// Char is a Unicode scalar value. It travels as its 32-bit code point;
// surrogate halves and values past U+10FFFF are rejected.
type Char rune

var charType = reflect.TypeOf(Char(0))

// primitiveCodec handles bool, sized integers and floats.
type primitiveCodec struct {
	size int
}

func newPrimitiveCodec(k reflect.Kind) *primitiveCodec {
	return &primitiveCodec{size: common.FixedSize(k)}
}

func (p *primitiveCodec) encode(v reflect.Value, b *Buffer) (int, error) {
	b.buf = common.AppendFixed(b.buf, v)
	return p.size, nil
}

func (p *primitiveCodec) decode(v reflect.Value, c *Cursor) error {
	raw, err := c.Read(p.size)
	if err != nil {
		return err
	}
	if !common.SetFixed(v, raw) {
		return ErrInvalidScalar
	}
	return nil
}

func (p *primitiveCodec) greedy() bool    { return false }
func (p *primitiveCodec) zeroWidth() bool { return false }

type charCodec struct{}

func (charCodec) encode(v reflect.Value, b *Buffer) (int, error) {
	r := rune(v.Int())
	if !utf8.ValidRune(r) {
		return 0, ErrInvalidScalar
	}
	b.buf = append(b.buf, byte(r>>24), byte(r>>16), byte(r>>8), byte(r))
	return 4, nil
}

func (charCodec) decode(v reflect.Value, c *Cursor) error {
	raw, err := c.Read(4)
	if err != nil {
		return err
	}
	u := uint32(raw[0])<<24 | uint32(raw[1])<<16 | uint32(raw[2])<<8 | uint32(raw[3])
	if u > utf8.MaxRune || !utf8.ValidRune(rune(u)) {
		return ErrInvalidScalar
	}
	v.SetInt(int64(u))
	return nil
}

func (charCodec) greedy() bool    { return false }
func (charCodec) zeroWidth() bool { return false }
