// Package capture reads and writes the byte captures the netorder tool
// works on: raw or hex text, optionally zstd-compressed.
package capture

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/klauspost/compress/zstd"
)

// Compression identifies how a capture is compressed.
type Compression int

const (
	CompRaw Compression = iota
	CompZstd
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

var ErrHex = errors.New("capture: malformed hex input")

// Options controls how a capture is read or written.
type Options struct {
	// Hex treats the capture as hex text. Whitespace, colons and a 0x
	// prefix are ignored when reading.
	Hex bool
	// Compression applies to the bytes on disk, after hex encoding.
	Compression Compression
}

// Detect picks the compression of data from its name and magic bytes.
func Detect(name string, data []byte) Compression {
	if strings.HasSuffix(name, ".zst") || bytes.HasPrefix(data, zstdMagic) {
		return CompZstd
	}
	return CompRaw
}

// Read loads a whole capture from r.
func Read(r io.Reader, opts Options) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data, err = decompress(opts.Compression, data)
	if err != nil {
		return nil, err
	}
	if !opts.Hex {
		return data, nil
	}
	return decodeHex(data)
}

// Write stores data to w.
func Write(w io.Writer, data []byte, opts Options) error {
	if opts.Hex {
		data = []byte(hex.EncodeToString(data) + "\n")
	}
	out, err := compress(opts.Compression, data)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func decodeHex(text []byte) ([]byte, error) {
	clean := make([]byte, 0, len(text))
	for _, f := range strings.FieldsFunc(string(text), func(r rune) bool {
		return unicode.IsSpace(r) || r == ':'
	}) {
		f = strings.TrimPrefix(strings.TrimPrefix(f, "0x"), "0X")
		clean = append(clean, f...)
	}
	out := make([]byte, hex.DecodedLen(len(clean)))
	if _, err := hex.Decode(out, clean); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHex, err)
	}
	return out, nil
}

func compress(c Compression, raw []byte) ([]byte, error) {
	switch c {
	case CompRaw:
		return raw, nil
	case CompZstd:
		bestLevel := zstd.WithEncoderLevel(zstd.SpeedBetterCompression)
		enc, err := zstd.NewWriter(nil, bestLevel)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(raw, nil), nil
	default:
		return nil, fmt.Errorf("capture: unknown compression %d", c)
	}
}

func decompress(c Compression, data []byte) ([]byte, error) {
	switch c {
	case CompRaw:
		return data, nil
	case CompZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	default:
		return nil, fmt.Errorf("capture: unknown compression %d", c)
	}
}
