// Package transcode renders decoded netorder values in self-describing
// formats and builds values back from them.
package transcode

import (
	"errors"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownFormat = errors.New("transcode: unknown format")
	ErrMismatch      = errors.New("transcode: value does not fit the target type")
)

// Format encodes plain data trees.
type Format interface {
	// Marshal serializes a tree built by ToTree.
	Marshal(tree any) ([]byte, error)
	// Unmarshal parses data into a tree FromTree accepts.
	Unmarshal(data []byte) (any, error)
	// Name returns the format identifier.
	Name() string
}

var formats = map[string]Format{
	"yaml":    YAML{},
	"cbor":    CBOR{},
	"msgpack": MsgPack{},
}

// Lookup returns the format called name.
func Lookup(name string) (Format, error) {
	f, ok := formats[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return f, nil
}

// Names returns the known format names, sorted.
func Names() []string {
	names := make([]string, 0, len(formats))
	for n := range formats {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// YAML keeps record fields in wire order.
type YAML struct{}

func (YAML) Marshal(tree any) ([]byte, error) { return yaml.Marshal(tree) }

func (YAML) Unmarshal(data []byte) (any, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func (YAML) Name() string { return "yaml" }

// cborEnc uses Core Deterministic Encoding, so record keys come out
// sorted rather than in wire order.
var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("transcode: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflectMapType,
	}.DecMode()
	if err != nil {
		panic("transcode: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBOR encodes trees as deterministic CBOR.
type CBOR struct{}

func (CBOR) Marshal(tree any) ([]byte, error) { return cborEnc.Marshal(tree) }

func (CBOR) Unmarshal(data []byte) (any, error) {
	var tree any
	if err := cborDec.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func (CBOR) Name() string { return "cbor" }

// MsgPack keeps record fields in wire order.
type MsgPack struct{}

func (MsgPack) Marshal(tree any) ([]byte, error) { return msgpack.Marshal(tree) }

func (MsgPack) Unmarshal(data []byte) (any, error) {
	var tree any
	if err := msgpack.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func (MsgPack) Name() string { return "msgpack" }
