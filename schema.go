package netorder

import (
	"fmt"
	"reflect"
	"strings"
)

// DirectiveKind selects how a field is deserialized.
type DirectiveKind int

const (
	// DirectiveNone decodes the field from the wire.
	DirectiveNone DirectiveKind = iota
	// DirectiveIgnore leaves the field untouched and consumes nothing.
	DirectiveIgnore
	// DirectiveDebug decodes the field then logs its value.
	DirectiveDebug
	// DirectiveCall runs a method of the record instead of reading the wire.
	DirectiveCall
	// DirectiveInject runs a method of the record right before the field is
	// decoded.
	DirectiveInject
)

func (k DirectiveKind) String() string {
	switch k {
	case DirectiveNone:
		return "none"
	case DirectiveIgnore:
		return "ignore"
	case DirectiveDebug:
		return "debug"
	case DirectiveCall:
		return "fn"
	case DirectiveInject:
		return "code"
	default:
		return fmt.Sprintf("DirectiveKind(%d)", int(k))
	}
}

// Directive is the deserialization directive of a field, read from its
// `netorder` struct tag:
//
//	netorder:"-"          field is not part of the schema at all
//	netorder:"ignore"     serialized, but never read back
//	netorder:"debug"      decoded, then traced at debug level
//	netorder:"fn=Method"  (*T).Method is called instead of decoding
//	netorder:"code=Method" (*T).Method is called before decoding
//
// Methods may have the forms func(), func() error, func(*Cursor) and
// func(*Cursor) error.
type Directive struct {
	Kind DirectiveKind
	// Method is the method name for DirectiveCall and DirectiveInject.
	Method string
}

func (d Directive) String() string {
	if d.Method != "" {
		return d.Kind.String() + "=" + d.Method
	}
	return d.Kind.String()
}

// FieldDescriptor describes one wire field of a record.
type FieldDescriptor struct {
	Name      string
	Type      reflect.Type
	Directive Directive
}

// RecordSchema is the ordered field list of a struct type. Field order is
// wire order in both directions.
type RecordSchema struct {
	Type   reflect.Type
	Fields []FieldDescriptor
}

// SchemaOf returns the schema of struct type t (or pointer to one),
// building and caching its codec on first use.
func SchemaOf(t reflect.Type) (*RecordSchema, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrUnsupported, t)
	}
	c, err := codecFor(t)
	if err != nil {
		return nil, err
	}
	r, ok := unwrapLazy(c).(*recordCodec)
	if !ok {
		// struct types with a custom codec have no derived schema
		return nil, fmt.Errorf("%w: %s has its own codec", ErrUnsupported, t)
	}
	s := *r.schema
	s.Fields = append([]FieldDescriptor(nil), r.schema.Fields...)
	return &s, nil
}

const tagName = "netorder"

// parseDirective reads a `netorder` tag. skip reports the "-" form.
func parseDirective(tag string) (d Directive, skip bool, err error) {
	tag = strings.TrimSpace(tag)
	switch {
	case tag == "":
		return Directive{}, false, nil
	case tag == "-":
		return Directive{}, true, nil
	case tag == "ignore":
		return Directive{Kind: DirectiveIgnore}, false, nil
	case tag == "debug":
		return Directive{Kind: DirectiveDebug}, false, nil
	}
	key, method, ok := strings.Cut(tag, "=")
	method = strings.TrimSpace(method)
	if !ok || method == "" {
		return Directive{}, false, fmt.Errorf("%w: %q", ErrBadDirective, tag)
	}
	switch strings.TrimSpace(key) {
	case "fn":
		return Directive{Kind: DirectiveCall, Method: method}, false, nil
	case "code":
		return Directive{Kind: DirectiveInject, Method: method}, false, nil
	}
	return Directive{}, false, fmt.Errorf("%w: %q", ErrBadDirective, tag)
}

// hookFunc runs a directive method against the record held in target.
type hookFunc func(target reflect.Value, c *Cursor) error

var (
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
	cursorType = reflect.TypeOf((*Cursor)(nil))
)

// resolveHook binds a directive method of *t once, when the schema is
// built.
func resolveHook(t reflect.Type, name string) (hookFunc, error) {
	m, ok := reflect.PointerTo(t).MethodByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no method %s", ErrBadDirective, reflect.PointerTo(t), name)
	}
	mt := m.Type
	// first In is the receiver
	withCursor := false
	switch mt.NumIn() {
	case 1:
	case 2:
		if mt.In(1) != cursorType {
			return nil, fmt.Errorf("%w: %s.%s must take *netorder.Cursor", ErrBadDirective, t, name)
		}
		withCursor = true
	default:
		return nil, fmt.Errorf("%w: %s.%s has too many parameters", ErrBadDirective, t, name)
	}
	switch {
	case mt.NumOut() == 0:
	case mt.NumOut() == 1 && mt.Out(0) == errorType:
	default:
		return nil, fmt.Errorf("%w: %s.%s may only return error", ErrBadDirective, t, name)
	}

	fn := m.Func
	return func(target reflect.Value, c *Cursor) error {
		args := []reflect.Value{target.Addr()}
		if withCursor {
			args = append(args, reflect.ValueOf(c))
		}
		out := fn.Call(args)
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}, nil
}
