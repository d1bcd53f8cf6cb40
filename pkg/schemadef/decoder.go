package schemadef

import "github.com/rawbytedev/netorder"

// Decode reads a record from data and returns a pointer to it. Bytes
// after the record are ignored.
func (r *Record) Decode(data []byte) (any, error) {
	return r.DecodeFrom(netorder.NewCursor(data))
}

// DecodeFrom reads a record from c.
func (r *Record) DecodeFrom(c *netorder.Cursor) (any, error) {
	v := r.New()
	if err := netorder.DeserializeFrom(v, c); err != nil {
		return nil, err
	}
	return v, nil
}
