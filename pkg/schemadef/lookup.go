package schemadef

import (
	"fmt"
	"reflect"

	"github.com/rawbytedev/netorder"
)

// Schema is a compiled description. It is immutable and safe for
// concurrent use.
type Schema struct {
	records map[string]*Record
	order   []string
}

// Record is one compiled record.
type Record struct {
	Name string
	// Type is the struct type built for the record.
	Type   reflect.Type
	Fields []FieldDef
	layout *netorder.RecordSchema
}

// Lookup returns the record called name.
func (s *Schema) Lookup(name string) (*Record, error) {
	r, ok := s.records[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecord, name)
	}
	return r, nil
}

// Names returns the record names in declaration order.
func (s *Schema) Names() []string {
	return append([]string(nil), s.order...)
}

// Layout returns the wire layout the codec derived for the record.
func (r *Record) Layout() *netorder.RecordSchema {
	l := *r.layout
	l.Fields = append([]netorder.FieldDescriptor(nil), r.layout.Fields...)
	return &l
}

// New returns a pointer to a zero value of the record.
func (r *Record) New() any {
	return reflect.New(r.Type).Interface()
}
