package netorder

import (
	"errors"
	"reflect"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnoreDirective(t *testing.T) {
	type withIgnored struct {
		X uint16
		Y uint16 `netorder:"ignore"`
	}
	data, err := Marshal(withIgnored{X: 7, Y: 9})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 7, 0, 9}, data)

	var out withIgnored
	c := NewCursor(data)
	require.NoError(t, DeserializeFrom(&out, c))
	assert.Equal(t, withIgnored{X: 7}, out)
	assert.Equal(t, 2, c.Offset())
}

func TestSkipTag(t *testing.T) {
	type withSkipped struct {
		A     uint8
		Cache map[string]int `netorder:"-"`
		B     uint8
	}
	requireEncodes(t, withSkipped{A: 1, Cache: map[string]int{"x": 1}, B: 2}, []byte{1, 2})

	out := withSkipped{Cache: map[string]int{"kept": 1}}
	require.NoError(t, Unmarshal([]byte{3, 4}, &out))
	assert.Equal(t, withSkipped{A: 3, Cache: map[string]int{"kept": 1}, B: 4}, out)

	s, err := SchemaOf(reflect.TypeOf(withSkipped{}))
	require.NoError(t, err)
	require.Len(t, s.Fields, 2)
}

type sum struct {
	X      uint8
	Y      uint8
	Z      uint8 `netorder:"fn=Update"`
	W      uint8
	offset int
}

func (s *sum) Update(c *Cursor) {
	s.Z = s.X + s.Y
	s.offset = c.Offset()
}

func TestCallDirective(t *testing.T) {
	requireEncodes(t, sum{X: 1, Y: 2, Z: 0xAA, W: 4}, []byte{1, 2, 0xAA, 4})

	var out sum
	c := NewCursor([]byte{1, 2, 4, 0xEE})
	require.NoError(t, DeserializeFrom(&out, c))
	assert.Equal(t, uint8(3), out.Z)
	assert.Equal(t, uint8(4), out.W)
	assert.Equal(t, 2, out.offset)
	assert.Equal(t, 3, c.Offset())
}

type seeded struct {
	Kind  uint8
	Value uint16 `netorder:"code=Seed"`
	seen  uint16
}

func (s *seeded) Seed() {
	s.seen = s.Value
}

func TestInjectDirective(t *testing.T) {
	out := seeded{Value: 77}
	require.NoError(t, Unmarshal([]byte{1, 0, 5}, &out))
	// the hook runs before the field is overwritten
	assert.Equal(t, uint16(77), out.seen)
	assert.Equal(t, uint16(5), out.Value)
}

type framed struct {
	Len     uint8
	Body    []uint16 `netorder:"code=Bound"`
	Trailer uint8
}

func (f *framed) Bound(c *Cursor) {
	c.Limit(int(f.Len))
}

func TestInjectBoundsSequence(t *testing.T) {
	in := framed{Len: 4, Body: []uint16{0x0102, 0x0304}, Trailer: 9}
	data, err := Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 1, 2, 3, 4, 9}, data)

	var out framed
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)

	// a budget past the end of input fails
	require.ErrorIs(t, Unmarshal([]byte{8, 1, 2, 9}, &out), ErrUnexpectedEOF)
	// a partial element inside the budget fails
	require.ErrorIs(t, Unmarshal([]byte{3, 1, 2, 3, 9}, &out), ErrUnexpectedEOF)
}

var errRejected = errors.New("rejected")

type guarded struct {
	Version uint8
	Body    uint16 `netorder:"code=Check"`
}

func (g *guarded) Check() error {
	if g.Version != 1 {
		return errRejected
	}
	return nil
}

func TestHookError(t *testing.T) {
	var out guarded
	require.NoError(t, Unmarshal([]byte{1, 0, 2}, &out))
	assert.Equal(t, uint16(2), out.Body)
	require.ErrorIs(t, Unmarshal([]byte{2, 0, 2}, &out), errRejected)
}

type narrowed struct {
	Mark  struct{} `netorder:"fn=Narrow"`
	Value uint16
}

func (n *narrowed) Narrow(c *Cursor) {
	c.Limit(1)
}

func TestCallHookLimitDiscarded(t *testing.T) {
	var out narrowed
	require.NoError(t, Unmarshal([]byte{0, 7}, &out))
	assert.Equal(t, uint16(7), out.Value)
}

func TestDebugDirective(t *testing.T) {
	type traced struct {
		A uint8
		B uint16 `netorder:"debug"`
	}
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	SetLogger(logger)
	defer SetLogger(log.StandardLogger())

	var out traced
	require.NoError(t, Unmarshal([]byte{1, 0x01, 0x00}, &out))
	assert.Equal(t, traced{A: 1, B: 256}, out)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.DebugLevel, entry.Level)
	assert.Equal(t, "B", entry.Data["field"])
	assert.Equal(t, 3, entry.Data["offset"])
	assert.Equal(t, "decoded 256", entry.Message)
}

func TestSequenceExhaustion(t *testing.T) {
	var s []uint16
	c := NewCursor([]byte{0, 1, 0, 2})
	require.NoError(t, DeserializeFrom(&s, c))
	assert.Equal(t, []uint16{1, 2}, s)
	assert.Equal(t, 0, c.Remaining())

	c = NewCursor([]byte{0, 1, 0})
	require.ErrorIs(t, DeserializeFrom(&s, c), ErrUnexpectedEOF)
}

type layoutOK struct {
	Head uint8
	Tail []uint8
	Skip uint8   `netorder:"ignore"`
	Zero Unit
	Calc uint8 `netorder:"fn=Compute"`
}

func (l *layoutOK) Compute() { l.Calc = l.Head }

func TestLayoutRules(t *testing.T) {
	type seqNotLast struct {
		Items []uint16
		After uint8
	}
	type nestedNotLast struct {
		Inner struct {
			A uint8
			B string
		}
		After uint8
	}
	type optionNotLast struct {
		Tail  Option[[]byte]
		After uint8
	}
	type seqOfGreedy struct {
		Items []struct {
			Tag  uint8
			Rest []uint8
		}
	}
	type arrayOfSeq struct {
		A [2][]uint16
	}
	for _, v := range []any{&seqNotLast{}, &nestedNotLast{}, &optionNotLast{}, &seqOfGreedy{}, &arrayOfSeq{}, &branch{}} {
		require.ErrorIs(t, Unmarshal(nil, v), ErrSequenceNotLast, "%T", v)
		_, err := Marshal(v)
		require.ErrorIs(t, err, ErrSequenceNotLast, "%T", v)
	}

	var out layoutOK
	require.NoError(t, Unmarshal([]byte{5, 1, 2}, &out))
	assert.Equal(t, layoutOK{Head: 5, Tail: []uint8{1, 2}, Calc: 5}, out)

	// a single trailing greedy element is still fine
	type lastOfOne struct {
		Head uint8
		A    [1][]uint8
	}
	var one lastOfOne
	require.NoError(t, Unmarshal([]byte{5, 1, 2}, &one))
	assert.Equal(t, lastOfOne{Head: 5, A: [1][]uint8{{1, 2}}}, one)
}

// branch ends in a sequence of itself, so each element reads to the end.
type branch struct {
	V    uint8
	Kids []branch
}

type noMethod struct {
	A uint8 `netorder:"fn=Missing"`
}

type badParam struct {
	A uint8 `netorder:"code=Hook"`
}

func (b *badParam) Hook(n int) {}

type badResult struct {
	A uint8 `netorder:"fn=Hook"`
}

func (b *badResult) Hook() int { return 0 }

func TestBadDirectives(t *testing.T) {
	type unknownTag struct {
		A uint8 `netorder:"bogus"`
	}
	type emptyMethod struct {
		A uint8 `netorder:"fn="`
	}
	for _, v := range []any{&noMethod{}, &badParam{}, &badResult{}, &unknownTag{}, &emptyMethod{}} {
		require.ErrorIs(t, Unmarshal([]byte{1}, v), ErrBadDirective, "%T", v)
	}
}

func TestUnsupportedTypes(t *testing.T) {
	type withInt struct{ A int }
	type withMap struct{ M map[string]uint8 }
	type withChan struct{ C chan uint8 }
	for _, v := range []any{&withInt{}, &withMap{}, &withChan{}, new(uint), new(complex64)} {
		_, err := Marshal(v)
		require.ErrorIs(t, err, ErrUnsupported, "%T", v)
	}
}

func TestSchemaOf(t *testing.T) {
	s, err := SchemaOf(reflect.TypeOf(&sum{}))
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(sum{}), s.Type)

	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"X", "Y", "Z", "W"}, names)
	assert.Equal(t, Directive{Kind: DirectiveCall, Method: "Update"}, s.Fields[2].Directive)
	assert.Equal(t, "fn=Update", s.Fields[2].Directive.String())
	assert.Equal(t, "none", s.Fields[0].Directive.String())

	// callers get a copy
	s.Fields[0].Name = "changed"
	again, err := SchemaOf(reflect.TypeOf(sum{}))
	require.NoError(t, err)
	assert.Equal(t, "X", again.Fields[0].Name)

	_, err = SchemaOf(reflect.TypeOf(uint8(0)))
	require.ErrorIs(t, err, ErrUnsupported)
	_, err = SchemaOf(reflect.TypeOf(uint24(0)))
	require.ErrorIs(t, err, ErrUnsupported)
}
