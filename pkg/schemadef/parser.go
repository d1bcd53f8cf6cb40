package schemadef

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/rawbytedev/netorder"
)

var scalarTypes = map[string]reflect.Type{
	"u8":     reflect.TypeOf(uint8(0)),
	"u16":    reflect.TypeOf(uint16(0)),
	"u32":    reflect.TypeOf(uint32(0)),
	"u64":    reflect.TypeOf(uint64(0)),
	"i8":     reflect.TypeOf(int8(0)),
	"i16":    reflect.TypeOf(int16(0)),
	"i32":    reflect.TypeOf(int32(0)),
	"i64":    reflect.TypeOf(int64(0)),
	"f32":    reflect.TypeOf(float32(0)),
	"f64":    reflect.TypeOf(float64(0)),
	"bool":   reflect.TypeOf(false),
	"char":   reflect.TypeOf(netorder.Char(0)),
	"ipv4":   reflect.TypeOf(netorder.IPv4{}),
	"ipv6":   reflect.TypeOf(netorder.IPv6{}),
	"bytes":  reflect.TypeOf([]byte(nil)),
	"string": reflect.TypeOf(""),
	"unit":   reflect.TypeOf(netorder.Unit{}),
}

// optionTypes holds the Option instantiations a description can name;
// generic types cannot be instantiated through reflect.
var optionTypes = map[string]reflect.Type{
	"u8":     reflect.TypeOf(netorder.Option[uint8]{}),
	"u16":    reflect.TypeOf(netorder.Option[uint16]{}),
	"u32":    reflect.TypeOf(netorder.Option[uint32]{}),
	"u64":    reflect.TypeOf(netorder.Option[uint64]{}),
	"i8":     reflect.TypeOf(netorder.Option[int8]{}),
	"i16":    reflect.TypeOf(netorder.Option[int16]{}),
	"i32":    reflect.TypeOf(netorder.Option[int32]{}),
	"i64":    reflect.TypeOf(netorder.Option[int64]{}),
	"f32":    reflect.TypeOf(netorder.Option[float32]{}),
	"f64":    reflect.TypeOf(netorder.Option[float64]{}),
	"bool":   reflect.TypeOf(netorder.Option[bool]{}),
	"char":   reflect.TypeOf(netorder.Option[netorder.Char]{}),
	"ipv4":   reflect.TypeOf(netorder.Option[netorder.IPv4]{}),
	"ipv6":   reflect.TypeOf(netorder.Option[netorder.IPv6]{}),
	"bytes":  reflect.TypeOf(netorder.Option[[]byte]{}),
	"string": reflect.TypeOf(netorder.Option[string]{}),
}

// parseType resolves a type expression:
//
//	scalar      u8 .. u64, i8 .. i64, f32, f64, bool, char, ipv4, ipv6,
//	            bytes, string, unit
//	[N]T        fixed array
//	[]T         sequence, read until the input is exhausted
//	?scalar     optional value
//	name        a record declared earlier
func (s *Schema) parseType(expr string) (reflect.Type, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == "":
		return nil, fmt.Errorf("%w: empty type", ErrUnknownType)
	case strings.HasPrefix(expr, "?"):
		t, ok := optionTypes[strings.TrimSpace(expr[1:])]
		if !ok {
			return nil, fmt.Errorf("%w: %q (options hold scalars only)", ErrUnknownType, expr)
		}
		return t, nil
	case strings.HasPrefix(expr, "[]"):
		elem, err := s.parseType(expr[2:])
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elem), nil
	case strings.HasPrefix(expr, "["):
		end := strings.IndexByte(expr, ']')
		if end < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownType, expr)
		}
		n, err := strconv.Atoi(strings.TrimSpace(expr[1:end]))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: bad array length in %q", ErrUnknownType, expr)
		}
		elem, err := s.parseType(expr[end+1:])
		if err != nil {
			return nil, err
		}
		return reflect.ArrayOf(n, elem), nil
	}
	if t, ok := scalarTypes[expr]; ok {
		return t, nil
	}
	if r, ok := s.records[expr]; ok {
		return r.Type, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, expr)
}
