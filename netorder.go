// Package netorder maps Go values to and from a canonical big-endian
// byte layout for binary network protocols.
//
// The layout of a struct is derived from its exported fields in
// declaration order. Nothing but the field values reaches the wire: no
// tags, counts or lengths are added.
//
//	Go type                     wire form
//	bool, intN, uintN, floatN   N/8 bytes, most significant first
//	Char                        32-bit code point
//	[N]T                        N elements back to back
//	[]T                         elements back to back, read until exhausted;
//	                            elements must not read to the end
//	[]byte, string              raw bytes, read until exhausted
//	*T, Cell[T]                 same as T
//	Option[T]                   1 byte presence flag, then T when present
//	Phantom[T], Unit, struct{}  nothing
//	IPv4, IPv6                  4 or 16 address bytes
//	Either[L, R]                the held side (serialize only)
//	interface field             the dynamic value; decoding needs a
//	                            pointer to a concrete value in place,
//	                            and a field before others must hold a
//	                            value of fixed length
//	enum (see RegisterEnum)     discriminant of the underlying width
//
// Types implementing Serializer or Deserializer are encoded by their own
// methods. Field directives in `netorder` struct tags change how a field
// is read back; see Directive.
package netorder

import (
	"fmt"
	"reflect"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Serializer is implemented by types that write their own wire form.
type Serializer interface {
	// SerializeTo appends the encoding to b and returns the bytes written.
	SerializeTo(b *Buffer) (int, error)
}

// Deserializer is implemented by types that read their own wire form.
type Deserializer interface {
	// DeserializeFrom overwrites the receiver from c, advancing c past the
	// bytes consumed.
	DeserializeFrom(c *Cursor) error
}

var logger atomic.Value

func init() {
	SetLogger(log.StandardLogger())
}

// SetLogger sets where debug directives are traced. The default is the
// logrus standard logger.
func SetLogger(l log.FieldLogger) {
	logger.Store(&l)
}

func currentLogger() log.FieldLogger {
	return *logger.Load().(*log.FieldLogger)
}

// SerializeTo appends the encoding of v to b and returns the number of
// bytes written. v may be a value or a pointer to one. On error the bytes
// already appended stay in b.
func SerializeTo(v any, b *Buffer) (int, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return 0, ErrNilPointer
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return 0, ErrNilPointer
		}
		rv = rv.Elem()
	} else {
		rv = addressable(rv)
	}
	c, err := codecFor(rv.Type())
	if err != nil {
		return 0, err
	}
	return c.encode(rv, b)
}

// DeserializeFrom overwrites the value v points to from c.
func DeserializeFrom(v any, c *Cursor) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w, got %T", ErrNotPointer, v)
	}
	rv = rv.Elem()
	cd, err := codecFor(rv.Type())
	if err != nil {
		return err
	}
	return cd.decode(rv, c)
}

// Marshal returns the encoding of v.
func Marshal(v any) ([]byte, error) {
	b := &Buffer{}
	if _, err := SerializeTo(v, b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Unmarshal decodes data into the value v points to. Bytes left over
// after the last field are not an error.
func Unmarshal(data []byte, v any) error {
	return DeserializeFrom(v, NewCursor(data))
}
