// Package common holds the fixed-width kind tables and the big-endian
// bit layout shared by the codec and the schema loader.
package common

import (
	"encoding/binary"
	"math"
	"reflect"
)

// IsFixedKind reports whether k is a fixed-size primitive kind.
func IsFixedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// FixedSize returns the byte width for fixed-size primitive kinds, -1 otherwise.
func FixedSize(k reflect.Kind) int {
	switch k {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return 8
	default:
		return -1
	}
}

// AppendFixed appends v most-significant byte first.
// It panics if v is not a fixed kind.
func AppendFixed(dst []byte, v reflect.Value) []byte {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return append(dst, 1)
		}
		return append(dst, 0)
	case reflect.Int8:
		return append(dst, byte(v.Int()))
	case reflect.Uint8:
		return append(dst, byte(v.Uint()))
	case reflect.Int16:
		return binary.BigEndian.AppendUint16(dst, uint16(v.Int()))
	case reflect.Uint16:
		return binary.BigEndian.AppendUint16(dst, uint16(v.Uint()))
	case reflect.Int32:
		return binary.BigEndian.AppendUint32(dst, uint32(v.Int()))
	case reflect.Uint32:
		return binary.BigEndian.AppendUint32(dst, uint32(v.Uint()))
	case reflect.Int64:
		return binary.BigEndian.AppendUint64(dst, uint64(v.Int()))
	case reflect.Uint64:
		return binary.BigEndian.AppendUint64(dst, v.Uint())
	case reflect.Float32:
		return binary.BigEndian.AppendUint32(dst, float32Bits(v))
	case reflect.Float64:
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(v.Float()))
	default:
		panic("common: not a fixed kind: " + v.Kind().String())
	}
}

// SetFixed decodes a big-endian primitive from b into dst. b must hold
// exactly FixedSize(dst.Kind()) bytes. It returns false when the bytes do
// not form a valid value of the kind (a bool other than 0 or 1).
func SetFixed(dst reflect.Value, b []byte) bool {
	switch dst.Kind() {
	case reflect.Bool:
		if b[0] > 1 {
			return false
		}
		dst.SetBool(b[0] == 1)
	case reflect.Int8:
		dst.SetInt(int64(int8(b[0])))
	case reflect.Uint8:
		dst.SetUint(uint64(b[0]))
	case reflect.Int16:
		dst.SetInt(int64(int16(binary.BigEndian.Uint16(b))))
	case reflect.Uint16:
		dst.SetUint(uint64(binary.BigEndian.Uint16(b)))
	case reflect.Int32:
		dst.SetInt(int64(int32(binary.BigEndian.Uint32(b))))
	case reflect.Uint32:
		dst.SetUint(uint64(binary.BigEndian.Uint32(b)))
	case reflect.Int64:
		dst.SetInt(int64(binary.BigEndian.Uint64(b)))
	case reflect.Uint64:
		dst.SetUint(binary.BigEndian.Uint64(b))
	case reflect.Float32:
		setFloat32Bits(dst, binary.BigEndian.Uint32(b))
	case reflect.Float64:
		dst.SetFloat(math.Float64frombits(binary.BigEndian.Uint64(b)))
	default:
		panic("common: not a fixed kind: " + dst.Kind().String())
	}
	return true
}

// float32Bits reads the bits of a float32 in place when it can, as the
// trip through float64 quiets signaling NaNs.
func float32Bits(v reflect.Value) uint32 {
	if v.CanAddr() {
		return *(*uint32)(v.Addr().UnsafePointer())
	}
	return math.Float32bits(float32(v.Float()))
}

func setFloat32Bits(dst reflect.Value, u uint32) {
	if dst.CanSet() {
		*(*uint32)(dst.Addr().UnsafePointer()) = u
		return
	}
	dst.SetFloat(float64(math.Float32frombits(u)))
}

// Discriminant reads an integer-kinded value as a uint64 bit pattern,
// sign-extended for signed kinds.
func Discriminant(v reflect.Value) uint64 {
	switch v.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(v.Int())
	default:
		return v.Uint()
	}
}
