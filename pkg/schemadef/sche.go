// Package schemadef builds netorder record types from YAML schema
// descriptions, for layouts that are only known at run time.
//
// A description lists records in order; a record may use any record
// declared before it:
//
//	records:
//	  - name: header
//	    fields:
//	      - {name: id, type: u16}
//	      - {name: flags, type: u16, directive: debug}
//	  - name: message
//	    fields:
//	      - {name: header, type: header}
//	      - {name: ttl, type: "?u32"}
//	      - {name: payload, type: bytes}
package schemadef

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"io"
	"os"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/netorder"
)

var (
	ErrUnknownType   = errors.New("schemadef: unknown type")
	ErrInvalidName   = errors.New("schemadef: invalid name")
	ErrDuplicate     = errors.New("schemadef: duplicate name")
	ErrDirective     = errors.New("schemadef: unsupported directive")
	ErrWrongRecord   = errors.New("schemadef: value is not of the record type")
	ErrUnknownRecord = errors.New("schemadef: unknown record")
)

// File is a schema description document.
type File struct {
	Records []RecordDef `yaml:"records"`
}

// RecordDef declares one record.
type RecordDef struct {
	Name   string     `yaml:"name"`
	Fields []FieldDef `yaml:"fields"`
}

// FieldDef declares one field of a record, in wire order.
type FieldDef struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	// Directive is empty, "ignore" or "debug".
	Directive string `yaml:"directive,omitempty"`
}

// LoadFile reads and compiles the description at path.
func LoadFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Parse compiles a description held in memory.
func Parse(data []byte) (*Schema, error) {
	return Load(bytes.NewReader(data))
}

// Load reads a YAML description from r and compiles it. Unknown keys are
// rejected.
func Load(r io.Reader) (*Schema, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("schemadef: %w", err)
	}
	return Compile(f)
}

// Compile turns the record declarations of f into Go types. Every record
// is checked against the codec's layout rules, so a Schema that compiles
// can encode and decode its records.
func Compile(f File) (*Schema, error) {
	s := &Schema{records: make(map[string]*Record, len(f.Records))}
	for _, def := range f.Records {
		if !validName(def.Name) {
			return nil, fmt.Errorf("%w: record %q", ErrInvalidName, def.Name)
		}
		if _, ok := s.records[def.Name]; ok {
			return nil, fmt.Errorf("%w: record %q", ErrDuplicate, def.Name)
		}
		rec, err := s.compileRecord(def)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", def.Name, err)
		}
		s.records[def.Name] = rec
		s.order = append(s.order, def.Name)
	}
	return s, nil
}

func (s *Schema) compileRecord(def RecordDef) (*Record, error) {
	fields := make([]reflect.StructField, 0, len(def.Fields))
	goNames := make(map[string]bool, len(def.Fields))
	for _, fd := range def.Fields {
		goName := exported(fd.Name)
		if !validName(fd.Name) || !token.IsIdentifier(goName) || !token.IsExported(goName) {
			return nil, fmt.Errorf("%w: field %q", ErrInvalidName, fd.Name)
		}
		if goNames[goName] {
			return nil, fmt.Errorf("%w: field %q", ErrDuplicate, fd.Name)
		}
		goNames[goName] = true

		t, err := s.parseType(fd.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fd.Name, err)
		}
		tag := fmt.Sprintf(`yaml:%q cbor:%q msgpack:%q`, fd.Name, fd.Name, fd.Name)
		switch fd.Directive {
		case "":
		case "ignore", "debug":
			tag += fmt.Sprintf(` netorder:%q`, fd.Directive)
		default:
			return nil, fmt.Errorf("field %s: %w %q", fd.Name, ErrDirective, fd.Directive)
		}
		fields = append(fields, reflect.StructField{
			Name: goName,
			Type: t,
			Tag:  reflect.StructTag(tag),
		})
	}
	t := reflect.StructOf(fields)
	layout, err := netorder.SchemaOf(t)
	if err != nil {
		return nil, err
	}
	return &Record{Name: def.Name, Type: t, Fields: append([]FieldDef(nil), def.Fields...), layout: layout}, nil
}

func validName(name string) bool {
	if name == "" || strings.TrimSpace(name) != name {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}

// exported upper-cases the first rune so reflect.StructOf accepts the
// field.
func exported(name string) string {
	r, n := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r)) + name[n:]
}
