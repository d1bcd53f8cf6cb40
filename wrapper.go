package netorder

import (
	"reflect"
	"sync"
)

// Option is a value that may be absent. On the wire it is a one byte
// presence flag followed by the value when the flag is 1.
type Option[T any] struct {
	Value T
	Valid bool
}

// Some returns a present Option holding v.
func Some[T any](v T) Option[T] { return Option[T]{Value: v, Valid: true} }

// None returns an absent Option.
func None[T any]() Option[T] { return Option[T]{} }

// Get returns the value and whether it is present.
func (o Option[T]) Get() (T, bool) { return o.Value, o.Valid }

func (o *Option[T]) optionParts() (*bool, reflect.Value) {
	return &o.Valid, reflect.ValueOf(&o.Value).Elem()
}

type optional interface {
	optionParts() (*bool, reflect.Value)
}

// Cell is a value guarded by a mutex so it can be updated through a
// shared pointer. It is encoded exactly like the value it holds.
type Cell[T any] struct {
	mu sync.Mutex
	v  T
}

// NewCell returns a Cell holding v.
func NewCell[T any](v T) *Cell[T] { return &Cell[T]{v: v} }

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

// Set replaces the current value.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

// cellParts locks the cell and returns the held value with the unlock func.
func (c *Cell[T]) cellParts() (reflect.Value, func()) {
	c.mu.Lock()
	return reflect.ValueOf(&c.v).Elem(), c.mu.Unlock
}

type cell interface {
	cellParts() (reflect.Value, func())
}

// Phantom marks a type parameter without storing anything. It takes no
// bytes on the wire.
type Phantom[T any] struct{}

// Unit is the empty value. It takes no bytes on the wire.
type Unit struct{}

// Either holds a value of one of two types. It can only be serialized:
// the wire carries no tag telling the sides apart.
type Either[L, R any] struct {
	left    L
	right   R
	isRight bool
}

// Left returns an Either holding l.
func Left[L, R any](l L) Either[L, R] { return Either[L, R]{left: l} }

// Right returns an Either holding r.
func Right[L, R any](r R) Either[L, R] { return Either[L, R]{right: r, isRight: true} }

// IsRight reports whether the right side is held.
func (e Either[L, R]) IsRight() bool { return e.isRight }

// LeftValue returns the left side and whether it is held.
func (e Either[L, R]) LeftValue() (L, bool) { return e.left, !e.isRight }

// RightValue returns the right side and whether it is held.
func (e Either[L, R]) RightValue() (R, bool) { return e.right, e.isRight }

func (e *Either[L, R]) eitherParts() (reflect.Value, bool) {
	if e.isRight {
		return reflect.ValueOf(&e.right).Elem(), true
	}
	return reflect.ValueOf(&e.left).Elem(), false
}

func (e *Either[L, R]) eitherTypes() (reflect.Type, reflect.Type) {
	return reflect.TypeOf(&e.left).Elem(), reflect.TypeOf(&e.right).Elem()
}

type either interface {
	eitherParts() (reflect.Value, bool)
	eitherTypes() (reflect.Type, reflect.Type)
}

var (
	optionalType = reflect.TypeOf((*optional)(nil)).Elem()
	cellType     = reflect.TypeOf((*cell)(nil)).Elem()
	eitherType   = reflect.TypeOf((*either)(nil)).Elem()
)

type optionCodec struct {
	inner codec
}

func (o *optionCodec) encode(v reflect.Value, b *Buffer) (int, error) {
	valid, inner := v.Addr().Interface().(optional).optionParts()
	if !*valid {
		b.buf = append(b.buf, 0)
		return 1, nil
	}
	b.buf = append(b.buf, 1)
	n, err := o.inner.encode(inner, b)
	return n + 1, err
}

func (o *optionCodec) decode(v reflect.Value, c *Cursor) error {
	flag, err := c.ReadByte()
	if err != nil {
		return err
	}
	valid, inner := v.Addr().Interface().(optional).optionParts()
	switch flag {
	case 0:
		*valid = false
		inner.SetZero()
		return nil
	case 1:
		if err := o.inner.decode(inner, c); err != nil {
			return err
		}
		*valid = true
		return nil
	default:
		return ErrInvalidScalar
	}
}

func (o *optionCodec) greedy() bool    { return o.inner.greedy() }
func (o *optionCodec) zeroWidth() bool { return false }

type cellCodec struct {
	inner codec
}

func (cc *cellCodec) encode(v reflect.Value, b *Buffer) (int, error) {
	inner, unlock := v.Addr().Interface().(cell).cellParts()
	defer unlock()
	return cc.inner.encode(inner, b)
}

func (cc *cellCodec) decode(v reflect.Value, c *Cursor) error {
	inner, unlock := v.Addr().Interface().(cell).cellParts()
	defer unlock()
	return cc.inner.decode(inner, c)
}

func (cc *cellCodec) greedy() bool    { return cc.inner.greedy() }
func (cc *cellCodec) zeroWidth() bool { return cc.inner.zeroWidth() }

type eitherCodec struct {
	left, right codec
}

func (e *eitherCodec) encode(v reflect.Value, b *Buffer) (int, error) {
	held, isRight := v.Addr().Interface().(either).eitherParts()
	if isRight {
		return e.right.encode(held, b)
	}
	return e.left.encode(held, b)
}

func (e *eitherCodec) decode(reflect.Value, *Cursor) error {
	return ErrSerializeOnly
}

func (e *eitherCodec) greedy() bool    { return e.left.greedy() || e.right.greedy() }
func (e *eitherCodec) zeroWidth() bool { return e.left.zeroWidth() && e.right.zeroWidth() }
