package netorder

// Buffer is the append-only byte sink of a serialize pass. The zero
// value is ready to use.
type Buffer struct {
	buf []byte
}

// NewBuffer returns a Buffer with room for size bytes.
func NewBuffer(size int) *Buffer {
	return &Buffer{buf: make([]byte, 0, size)}
}

// Write appends p. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// WriteByte appends c.
func (b *Buffer) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// Bytes returns the bytes written so far. The slice aliases the buffer
// until the next write.
func (b *Buffer) Bytes() []byte { return b.buf }

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int { return len(b.buf) }

// Cursor is a bounds-checked read view over an immutable byte slice.
// A Cursor belongs to one deserialize pass.
type Cursor struct {
	data  []byte
	off   int
	limit int // pending budget for the next field, -1 when unset
}

// NewCursor returns a Cursor positioned at the start of data. data is
// borrowed, never copied or modified.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data, limit: -1}
}

// Len returns the length of the underlying slice.
func (c *Cursor) Len() int { return len(c.data) }

// Offset returns the number of bytes consumed so far.
func (c *Cursor) Offset() int { return c.off }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.data) - c.off }

// Read returns the next n bytes and advances past them. The returned
// slice aliases the underlying data.
func (c *Cursor) Read(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, ErrUnexpectedEOF
	}
	p := c.data[c.off : c.off+n : c.off+n]
	c.off += n
	return p, nil
}

// ReadByte returns the next byte.
func (c *Cursor) ReadByte() (byte, error) {
	if c.off >= len(c.data) {
		return 0, ErrUnexpectedEOF
	}
	b := c.data[c.off]
	c.off++
	return b, nil
}

// Limit bounds the view seen by the next decoded field to n bytes. It is
// meant to be called from an inject directive placed on a field whose
// length the wire carries elsewhere, such as a length-prefixed sequence.
// Bytes of the budget left unread by that field are skipped. A budget set
// from a fn directive is dropped once the hook returns.
func (c *Cursor) Limit(n int) {
	c.limit = n
}

// bounded consumes the pending budget, if any, and returns the cursor the
// next field must decode from.
func (c *Cursor) bounded() (*Cursor, error) {
	if c.limit < 0 {
		return c, nil
	}
	n := c.limit
	c.limit = -1
	p, err := c.Read(n)
	if err != nil {
		return nil, err
	}
	return NewCursor(p), nil
}
