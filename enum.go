package netorder

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/rawbytedev/netorder/internal/common"
)

// Integer is the set of fixed-width integer kinds an enum can be
// declared over.
type Integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Variant names one enum discriminant.
type Variant[T Integer] struct {
	Name  string
	Value T
}

// EnumSchema is the ordered variant list of a unit-like enum. It is
// built once by RegisterEnum and never changes afterwards.
type EnumSchema[T Integer] struct {
	typ      reflect.Type
	variants []Variant[T]
	index    map[uint64]int
}

// RegisterEnum declares the variants of the enum type T. Values of T are
// then encoded as their discriminant and decoding rejects anything not
// listed. Call it from a package-level var or init, before T is first
// encoded or decoded. It panics on an empty list, a duplicate
// discriminant or a second registration of T.
func RegisterEnum[T Integer](variants ...Variant[T]) *EnumSchema[T] {
	t := reflect.TypeOf(T(0))
	if len(variants) == 0 {
		panic(fmt.Sprintf("netorder: enum %s has no variants", t))
	}
	s := &EnumSchema[T]{
		typ:      t,
		variants: append([]Variant[T](nil), variants...),
		index:    make(map[uint64]int, len(variants)),
	}
	for i, v := range variants {
		d := common.Discriminant(reflect.ValueOf(v.Value))
		if j, dup := s.index[d]; dup {
			panic(fmt.Sprintf("netorder: enum %s: variants %s and %s share discriminant %d",
				t, variants[j].Name, v.Name, v.Value))
		}
		s.index[d] = i
	}

	enums.mu.Lock()
	defer enums.mu.Unlock()
	if _, ok := enums.byType[t]; ok {
		panic(fmt.Sprintf("netorder: enum %s registered twice", t))
	}
	enums.byType[t] = s
	return s
}

// Variants returns the variants in declaration order.
func (s *EnumSchema[T]) Variants() []Variant[T] {
	return append([]Variant[T](nil), s.variants...)
}

// Name returns the variant name of v.
func (s *EnumSchema[T]) Name(v T) (string, bool) {
	i, ok := s.index[common.Discriminant(reflect.ValueOf(v))]
	if !ok {
		return "", false
	}
	return s.variants[i].Name, true
}

// Parse returns the variant called name.
func (s *EnumSchema[T]) Parse(name string) (T, bool) {
	for _, v := range s.variants {
		if v.Name == name {
			return v.Value, true
		}
	}
	return 0, false
}

func (s *EnumSchema[T]) known(d uint64) bool {
	_, ok := s.index[d]
	return ok
}

type enumInfo interface {
	known(d uint64) bool
}

var enums = struct {
	mu     sync.RWMutex
	byType map[reflect.Type]enumInfo
}{byType: make(map[reflect.Type]enumInfo)}

func lookupEnum(t reflect.Type) (enumInfo, bool) {
	enums.mu.RLock()
	defer enums.mu.RUnlock()
	e, ok := enums.byType[t]
	return e, ok
}

type enumCodec struct {
	info enumInfo
	prim *primitiveCodec
}

func (e *enumCodec) encode(v reflect.Value, b *Buffer) (int, error) {
	if !e.info.known(common.Discriminant(v)) {
		return 0, ErrUnknownDiscriminant
	}
	return e.prim.encode(v, b)
}

func (e *enumCodec) decode(v reflect.Value, c *Cursor) error {
	tmp := reflect.New(v.Type()).Elem()
	if err := e.prim.decode(tmp, c); err != nil {
		return err
	}
	if !e.info.known(common.Discriminant(tmp)) {
		return ErrUnknownDiscriminant
	}
	v.Set(tmp)
	return nil
}

func (e *enumCodec) greedy() bool    { return false }
func (e *enumCodec) zeroWidth() bool { return false }
