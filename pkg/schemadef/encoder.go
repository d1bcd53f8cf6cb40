package schemadef

import (
	"fmt"
	"reflect"

	"github.com/rawbytedev/netorder"
)

// Encode returns the wire form of v, which must be a value of the record
// type or a pointer to one.
func (r *Record) Encode(v any) ([]byte, error) {
	b := &netorder.Buffer{}
	if _, err := r.EncodeTo(v, b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// EncodeTo appends the wire form of v to b.
func (r *Record) EncodeTo(v any, b *netorder.Buffer) (int, error) {
	t := reflect.TypeOf(v)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != r.Type {
		return 0, fmt.Errorf("%w %s: got %T", ErrWrongRecord, r.Name, v)
	}
	return netorder.SerializeTo(v, b)
}
