package netorder

import (
	"fmt"
	"reflect"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/rawbytedev/netorder/internal/common"
)

// codec is the compiled serialize/deserialize pair of one Go type. v is
// always addressable.
type codec interface {
	encode(v reflect.Value, b *Buffer) (int, error)
	decode(v reflect.Value, c *Cursor) error
	// greedy reports whether decoding reads until the view is exhausted.
	greedy() bool
	// zeroWidth reports whether the type never touches the wire.
	zeroWidth() bool
}

// plans caches one codec per type. Entries are immutable once stored.
var plans = struct {
	mu     sync.RWMutex
	codecs map[reflect.Type]codec
}{codecs: make(map[reflect.Type]codec)}

func codecFor(t reflect.Type) (codec, error) {
	plans.mu.RLock()
	if c, ok := plans.codecs[t]; ok {
		plans.mu.RUnlock()
		return c, nil
	}
	plans.mu.RUnlock()

	plans.mu.Lock()
	defer plans.mu.Unlock()

	// Double-check
	if c, ok := plans.codecs[t]; ok {
		return c, nil
	}
	b := &builder{seen: make(map[reflect.Type]codec)}
	c, err := b.build(t)
	if err != nil {
		return nil, err
	}
	for _, check := range b.deferred {
		if err := check(); err != nil {
			return nil, err
		}
	}
	for typ, built := range b.seen {
		plans.codecs[typ] = built
	}
	return c, nil
}

// builder compiles the codec of a type and of everything it contains.
// It runs with plans.mu held.
type builder struct {
	seen map[reflect.Type]codec
	// deferred holds element checks on records still being compiled.
	deferred []func() error
}

var (
	serializerType   = reflect.TypeOf((*Serializer)(nil)).Elem()
	deserializerType = reflect.TypeOf((*Deserializer)(nil)).Elem()
	byteType         = reflect.TypeOf(byte(0))
)

func (b *builder) build(t reflect.Type) (codec, error) {
	if c, ok := plans.codecs[t]; ok {
		return c, nil
	}
	if c, ok := b.seen[t]; ok {
		return c, nil
	}
	c, err := b.compile(t)
	if err != nil {
		return nil, err
	}
	if _, ok := b.seen[t]; !ok {
		b.seen[t] = c
	}
	return c, nil
}

func (b *builder) compile(t reflect.Type) (codec, error) {
	pt := reflect.PointerTo(t)
	switch {
	case pt.Implements(serializerType) || pt.Implements(deserializerType):
		return &customCodec{
			canEncode: pt.Implements(serializerType),
			canDecode: pt.Implements(deserializerType),
		}, nil
	case pt.Implements(optionalType):
		_, inner := reflect.New(t).Interface().(optional).optionParts()
		ic, err := b.build(inner.Type())
		if err != nil {
			return nil, err
		}
		return &optionCodec{inner: ic}, nil
	case pt.Implements(cellType):
		inner, unlock := reflect.New(t).Interface().(cell).cellParts()
		unlock()
		ic, err := b.build(inner.Type())
		if err != nil {
			return nil, err
		}
		return &cellCodec{inner: ic}, nil
	case pt.Implements(eitherType):
		lt, rt := reflect.New(t).Interface().(either).eitherTypes()
		lc, err := b.build(lt)
		if err != nil {
			return nil, err
		}
		rc, err := b.build(rt)
		if err != nil {
			return nil, err
		}
		return &eitherCodec{left: lc, right: rc}, nil
	case t == charType:
		return charCodec{}, nil
	}

	if info, ok := lookupEnum(t); ok {
		return &enumCodec{info: info, prim: newPrimitiveCodec(t.Kind())}, nil
	}

	k := t.Kind()
	if common.IsFixedKind(k) {
		return newPrimitiveCodec(k), nil
	}
	switch k {
	case reflect.String:
		return stringCodec{}, nil
	case reflect.Slice:
		if t.Elem() == byteType {
			return bytesCodec{}, nil
		}
		ec, err := b.build(t.Elem())
		if err != nil {
			return nil, err
		}
		if ec.zeroWidth() {
			return nil, fmt.Errorf("%w: sequence of zero-width %s", ErrUnsupported, t.Elem())
		}
		if ec, err = b.checkElems(t, ec); err != nil {
			return nil, err
		}
		return &sequenceCodec{elem: ec}, nil
	case reflect.Array:
		if t.Elem() == byteType {
			return &byteArrayCodec{n: t.Len()}, nil
		}
		ec, err := b.build(t.Elem())
		if err != nil {
			return nil, err
		}
		if t.Len() > 1 {
			if ec, err = b.checkElems(t, ec); err != nil {
				return nil, err
			}
		}
		return &arrayCodec{n: t.Len(), elem: ec}, nil
	case reflect.Pointer:
		ec, err := b.build(t.Elem())
		if err != nil {
			return nil, err
		}
		return &pointerCodec{elem: ec}, nil
	case reflect.Interface:
		return boxedCodec{}, nil
	case reflect.Struct:
		return b.record(t)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, t)
}

// checkElems rejects elements that read to the end of input, since only
// the last of them would see any bytes. A record still being compiled is
// checked once the build completes; boxed elements are checked per value.
func (b *builder) checkElems(t reflect.Type, ec codec) (codec, error) {
	check := func() error {
		if ec.greedy() {
			return fmt.Errorf("%w: elements of %s read to the end of input", ErrSequenceNotLast, t)
		}
		return nil
	}
	if _, ok := ec.(boxedCodec); ok {
		return boxedCodec{fixed: true}, nil
	}
	if l, ok := ec.(*lazyCodec); ok && l.c == nil {
		b.deferred = append(b.deferred, check)
		return ec, nil
	}
	return ec, check()
}

// lazyCodec stands in for a record while its fields are compiled, so
// self-referencing types terminate.
type lazyCodec struct {
	c codec
}

func (l *lazyCodec) encode(v reflect.Value, b *Buffer) (int, error) { return l.c.encode(v, b) }
func (l *lazyCodec) decode(v reflect.Value, c *Cursor) error        { return l.c.decode(v, c) }

func (l *lazyCodec) greedy() bool {
	if l.c == nil {
		return false
	}
	return l.c.greedy()
}

func (l *lazyCodec) zeroWidth() bool {
	if l.c == nil {
		return false
	}
	return l.c.zeroWidth()
}

func unwrapLazy(c codec) codec {
	if l, ok := c.(*lazyCodec); ok {
		return l.c
	}
	return c
}

type recordField struct {
	FieldDescriptor
	index int
	codec codec
	hook  hookFunc
}

type recordCodec struct {
	schema   *RecordSchema
	fields   []recordField
	isGreedy bool
	isEmpty  bool
}

func (b *builder) record(t reflect.Type) (codec, error) {
	lazy := &lazyCodec{}
	b.seen[t] = lazy

	r := &recordCodec{schema: &RecordSchema{Type: t}}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue // skip unexported
		}
		dir, skip, err := parseDirective(sf.Tag.Get(tagName))
		if err != nil {
			delete(b.seen, t)
			return nil, fmt.Errorf("%s.%s: %w", t, sf.Name, err)
		}
		if skip {
			continue
		}
		fc, err := b.build(sf.Type)
		if err != nil {
			delete(b.seen, t)
			return nil, fmt.Errorf("%s.%s: %w", t, sf.Name, err)
		}
		f := recordField{
			FieldDescriptor: FieldDescriptor{Name: sf.Name, Type: sf.Type, Directive: dir},
			index:           i,
			codec:           fc,
		}
		if dir.Kind == DirectiveCall || dir.Kind == DirectiveInject {
			if f.hook, err = resolveHook(t, dir.Method); err != nil {
				delete(b.seen, t)
				return nil, fmt.Errorf("%s.%s: %w", t, sf.Name, err)
			}
		}
		r.fields = append(r.fields, f)
		r.schema.Fields = append(r.schema.Fields, f.FieldDescriptor)
	}
	if err := r.checkLayout(); err != nil {
		delete(b.seen, t)
		return nil, err
	}

	lazy.c = r
	b.seen[t] = r
	return r, nil
}

// checkLayout rejects an unbounded field followed by another field that
// reads the wire: nothing would be left for the later one. A field with
// an inject directive may bound itself through Cursor.Limit.
func (r *recordCodec) checkLayout() error {
	var pending *recordField
	r.isEmpty = true
	for i := range r.fields {
		f := &r.fields[i]
		if _, ok := f.codec.(boxedCodec); ok && f.Directive.Kind != DirectiveInject && r.consumesAfter(i) {
			f.codec = boxedCodec{fixed: true}
		}
		if !f.codec.zeroWidth() {
			r.isEmpty = false
		}
		if f.Directive.Kind == DirectiveIgnore || f.Directive.Kind == DirectiveCall || f.codec.zeroWidth() {
			continue
		}
		if pending != nil {
			return fmt.Errorf("%s.%s: %w (followed by %s)", r.schema.Type, pending.Name, ErrSequenceNotLast, f.Name)
		}
		if f.codec.greedy() && f.Directive.Kind != DirectiveInject {
			pending = f
		}
	}
	r.isGreedy = pending != nil
	return nil
}

// consumesAfter reports whether a field past i reads the wire.
func (r *recordCodec) consumesAfter(i int) bool {
	for _, f := range r.fields[i+1:] {
		if f.Directive.Kind == DirectiveIgnore || f.Directive.Kind == DirectiveCall || f.codec.zeroWidth() {
			continue
		}
		return true
	}
	return false
}

func (r *recordCodec) encode(v reflect.Value, b *Buffer) (int, error) {
	total := 0
	for i := range r.fields {
		n, err := r.fields[i].codec.encode(v.Field(r.fields[i].index), b)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (r *recordCodec) decode(v reflect.Value, c *Cursor) error {
	for i := range r.fields {
		f := &r.fields[i]
		switch f.Directive.Kind {
		case DirectiveIgnore:
			continue
		case DirectiveCall:
			if err := f.hook(v, c); err != nil {
				return err
			}
			c.limit = -1
			continue
		case DirectiveInject:
			if err := f.hook(v, c); err != nil {
				return err
			}
		}
		src, err := c.bounded()
		if err != nil {
			return err
		}
		fv := v.Field(f.index)
		if err := f.codec.decode(fv, src); err != nil {
			return err
		}
		if f.Directive.Kind == DirectiveDebug {
			currentLogger().WithFields(log.Fields{
				"record": r.schema.Type.String(),
				"field":  f.Name,
				"offset": c.Offset(),
			}).Debugf("decoded %v", fv.Interface())
		}
	}
	return nil
}

func (r *recordCodec) greedy() bool    { return r.isGreedy }
func (r *recordCodec) zeroWidth() bool { return r.isEmpty }

// sequenceCodec writes elements back to back and reads until the view is
// exhausted.
type sequenceCodec struct {
	elem codec
}

func (s *sequenceCodec) encode(v reflect.Value, b *Buffer) (int, error) {
	total := 0
	for i := 0; i < v.Len(); i++ {
		n, err := s.elem.encode(v.Index(i), b)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *sequenceCodec) decode(v reflect.Value, c *Cursor) error {
	out := reflect.MakeSlice(v.Type(), 0, 0)
	for c.Remaining() > 0 {
		start := c.Offset()
		elem := reflect.New(v.Type().Elem()).Elem()
		if err := s.elem.decode(elem, c); err != nil {
			return err
		}
		if c.Offset() == start {
			return fmt.Errorf("%w: element %s consumed no input", ErrUnsupported, elem.Type())
		}
		out = reflect.Append(out, elem)
	}
	v.Set(out)
	return nil
}

func (s *sequenceCodec) greedy() bool    { return true }
func (s *sequenceCodec) zeroWidth() bool { return false }

type arrayCodec struct {
	n    int
	elem codec
}

func (a *arrayCodec) encode(v reflect.Value, b *Buffer) (int, error) {
	total := 0
	for i := 0; i < a.n; i++ {
		n, err := a.elem.encode(v.Index(i), b)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (a *arrayCodec) decode(v reflect.Value, c *Cursor) error {
	for i := 0; i < a.n; i++ {
		if err := a.elem.decode(v.Index(i), c); err != nil {
			return err
		}
	}
	return nil
}

func (a *arrayCodec) greedy() bool    { return a.n > 0 && a.elem.greedy() }
func (a *arrayCodec) zeroWidth() bool { return a.n == 0 || a.elem.zeroWidth() }

// byteArrayCodec copies [N]byte verbatim, which covers IPv4 and IPv6.
type byteArrayCodec struct {
	n int
}

func (a *byteArrayCodec) encode(v reflect.Value, b *Buffer) (int, error) {
	b.buf = append(b.buf, v.Slice(0, a.n).Bytes()...)
	return a.n, nil
}

func (a *byteArrayCodec) decode(v reflect.Value, c *Cursor) error {
	p, err := c.Read(a.n)
	if err != nil {
		return err
	}
	reflect.Copy(v, reflect.ValueOf(p))
	return nil
}

func (a *byteArrayCodec) greedy() bool    { return false }
func (a *byteArrayCodec) zeroWidth() bool { return a.n == 0 }

// bytesCodec writes a byte slice verbatim and reads back every remaining
// byte into a fresh buffer.
type bytesCodec struct{}

func (bytesCodec) encode(v reflect.Value, b *Buffer) (int, error) {
	p := v.Bytes()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (bytesCodec) decode(v reflect.Value, c *Cursor) error {
	p, _ := c.Read(c.Remaining())
	v.SetBytes(append(make([]byte, 0, len(p)), p...))
	return nil
}

func (bytesCodec) greedy() bool    { return true }
func (bytesCodec) zeroWidth() bool { return false }

type stringCodec struct{}

func (stringCodec) encode(v reflect.Value, b *Buffer) (int, error) {
	s := v.String()
	b.buf = append(b.buf, s...)
	return len(s), nil
}

func (stringCodec) decode(v reflect.Value, c *Cursor) error {
	p, _ := c.Read(c.Remaining())
	v.SetString(string(p))
	return nil
}

func (stringCodec) greedy() bool    { return true }
func (stringCodec) zeroWidth() bool { return false }

// pointerCodec is transparent; decoding allocates a nil pointer.
type pointerCodec struct {
	elem codec
}

func (p *pointerCodec) encode(v reflect.Value, b *Buffer) (int, error) {
	if v.IsNil() {
		return 0, ErrNilPointer
	}
	return p.elem.encode(v.Elem(), b)
}

func (p *pointerCodec) decode(v reflect.Value, c *Cursor) error {
	if v.IsNil() {
		v.Set(reflect.New(v.Type().Elem()))
	}
	return p.elem.decode(v.Elem(), c)
}

func (p *pointerCodec) greedy() bool    { return p.elem.greedy() }
func (p *pointerCodec) zeroWidth() bool { return p.elem.zeroWidth() }

// boxedCodec handles interface fields. The concrete type is found at run
// time; decoding needs a pointer to a concrete value already in place.
// A fixed box sits before other wire fields and refuses dynamic values
// that read to the end of input.
type boxedCodec struct {
	fixed bool
}

func (x boxedCodec) dynamic(t reflect.Type) (codec, error) {
	c, err := codecFor(t)
	if err != nil {
		return nil, err
	}
	if x.fixed && c.greedy() {
		return nil, fmt.Errorf("%w: boxed %s", ErrSequenceNotLast, t)
	}
	return c, nil
}

func (x boxedCodec) encode(v reflect.Value, b *Buffer) (int, error) {
	if v.IsNil() {
		return 0, ErrNilPointer
	}
	inner := addressable(v.Elem())
	c, err := x.dynamic(inner.Type())
	if err != nil {
		return 0, err
	}
	return c.encode(inner, b)
}

func (x boxedCodec) decode(v reflect.Value, c *Cursor) error {
	if v.IsNil() {
		return ErrNoConcreteTarget
	}
	inner := v.Elem()
	if inner.Kind() != reflect.Pointer || inner.IsNil() {
		return ErrNoConcreteTarget
	}
	ic, err := x.dynamic(inner.Type().Elem())
	if err != nil {
		return err
	}
	return ic.decode(inner.Elem(), c)
}

func (boxedCodec) greedy() bool    { return false }
func (boxedCodec) zeroWidth() bool { return false }

// customCodec defers to the type's own Serializer / Deserializer.
type customCodec struct {
	canEncode, canDecode bool
}

func (cc *customCodec) encode(v reflect.Value, b *Buffer) (int, error) {
	if !cc.canEncode {
		return 0, fmt.Errorf("%w: %s cannot be serialized", ErrUnsupported, v.Type())
	}
	return v.Addr().Interface().(Serializer).SerializeTo(b)
}

func (cc *customCodec) decode(v reflect.Value, c *Cursor) error {
	if !cc.canDecode {
		return ErrSerializeOnly
	}
	return v.Addr().Interface().(Deserializer).DeserializeFrom(c)
}

func (cc *customCodec) greedy() bool    { return false }
func (cc *customCodec) zeroWidth() bool { return false }

// addressable returns v itself when it can be addressed, else a copy
// that can.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	p := reflect.New(v.Type()).Elem()
	p.Set(v)
	return p
}
