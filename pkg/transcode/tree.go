package transcode

import (
	"fmt"
	"math"
	"net/netip"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/netorder"
)

// Entry is one field of a Map.
type Entry struct {
	Key   string
	Value any
}

// Map is a record rendered as plain data, fields in wire order.
type Map []Entry

// Get returns the value stored under key.
func (m Map) Get(key string) (any, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func (m Map) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range m {
		var k, v yaml.Node
		if err := k.Encode(e.Key); err != nil {
			return nil, err
		}
		if err := v.Encode(e.Value); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &k, &v)
	}
	return node, nil
}

var _ msgpack.CustomEncoder = Map(nil)

func (m Map) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(m)); err != nil {
		return err
	}
	for _, e := range m {
		if err := enc.EncodeString(e.Key); err != nil {
			return err
		}
		if err := enc.Encode(e.Value); err != nil {
			return err
		}
	}
	return nil
}

func (m Map) MarshalCBOR() ([]byte, error) {
	plain := make(map[string]any, len(m))
	for _, e := range m {
		plain[e.Key] = e.Value
	}
	return cborEnc.Marshal(plain)
}

var (
	reflectMapType = reflect.TypeOf(map[string]any(nil))
	charType       = reflect.TypeOf(netorder.Char(0))
	ipv4Type       = reflect.TypeOf(netorder.IPv4{})
	ipv6Type       = reflect.TypeOf(netorder.IPv6{})
	netorderPkg    = reflect.TypeOf(netorder.Unit{}).PkgPath()
)

// generic reports whether t is an instantiation of the netorder generic
// type called name.
func generic(t reflect.Type, name string) bool {
	return t.PkgPath() == netorderPkg && strings.HasPrefix(t.Name(), name+"[")
}

// ToTree converts v to plain data: records become Maps, addresses and
// chars become strings, absent options and nil pointers become nil.
func ToTree(v any) (any, error) {
	return toTree(reflect.ValueOf(v))
}

func toTree(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	t := v.Type()
	switch {
	case t == charType:
		return string(rune(v.Int())), nil
	case t == ipv4Type, t == ipv6Type:
		return v.Interface().(fmt.Stringer).String(), nil
	case generic(t, "Option"):
		if !v.FieldByName("Valid").Bool() {
			return nil, nil
		}
		return toTree(v.FieldByName("Value"))
	case generic(t, "Cell"):
		return toTree(addressable(v).Addr().MethodByName("Get").Call(nil)[0])
	case generic(t, "Either"):
		side := "LeftValue"
		if v.MethodByName("IsRight").Call(nil)[0].Bool() {
			side = "RightValue"
		}
		return toTree(v.MethodByName(side).Call(nil)[0])
	}

	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), nil
	case reflect.Float32:
		return float32(v.Float()), nil
	case reflect.Float64:
		return v.Float(), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(b), v)
			return b, nil
		}
		list := make([]any, v.Len())
		for i := range list {
			e, err := toTree(v.Index(i))
			if err != nil {
				return nil, err
			}
			list[i] = e
		}
		return list, nil
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return toTree(v.Elem())
	case reflect.Struct:
		m := Map{}
		for i := 0; i < t.NumField(); i++ {
			key, ok := fieldKey(t.Field(i))
			if !ok {
				continue
			}
			e, err := toTree(v.Field(i))
			if err != nil {
				return nil, err
			}
			m = append(m, Entry{Key: key, Value: e})
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: cannot render %s", ErrMismatch, t)
}

// fieldKey names a struct field in trees: its yaml tag name, else its Go
// name. Unexported and netorder:"-" fields have no key.
func fieldKey(sf reflect.StructField) (string, bool) {
	if !sf.IsExported() || sf.Tag.Get("netorder") == "-" {
		return "", false
	}
	name, _, _ := strings.Cut(sf.Tag.Get("yaml"), ",")
	switch name {
	case "-":
		return "", false
	case "":
		return sf.Name, true
	}
	return name, true
}

func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	p := reflect.New(v.Type()).Elem()
	p.Set(v)
	return p
}

// FromTree fills the value dst points to from plain data as produced by
// a Format's Unmarshal. Record keys missing from the tree leave their
// field untouched; unknown keys are an error.
func FromTree(tree any, dst any) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("%w: need a non-nil pointer, got %T", ErrMismatch, dst)
	}
	return fromTree(tree, v.Elem(), "")
}

func mismatch(path string, t reflect.Type, tree any) error {
	if path == "" {
		path = "value"
	}
	return fmt.Errorf("%w: %s: cannot use %#v as %s", ErrMismatch, path, tree, t)
}

func fromTree(tree any, v reflect.Value, path string) error {
	t := v.Type()
	switch {
	case t == charType:
		s, ok := tree.(string)
		r, n := utf8.DecodeRuneInString(s)
		if !ok || n == 0 || n != len(s) || r == utf8.RuneError {
			return mismatch(path, t, tree)
		}
		v.SetInt(int64(r))
		return nil
	case t == ipv4Type, t == ipv6Type:
		s, _ := tree.(string)
		a, err := netip.ParseAddr(s)
		if err != nil {
			return mismatch(path, t, tree)
		}
		if t == ipv6Type {
			v.Set(reflect.ValueOf(netorder.IPv6From(a)))
			return nil
		}
		ip, ok := netorder.IPv4From(a)
		if !ok {
			return mismatch(path, t, tree)
		}
		v.Set(reflect.ValueOf(ip))
		return nil
	case generic(t, "Option"):
		if tree == nil {
			v.SetZero()
			return nil
		}
		if err := fromTree(tree, v.FieldByName("Value"), path); err != nil {
			return err
		}
		v.FieldByName("Valid").SetBool(true)
		return nil
	case generic(t, "Cell"):
		get := v.Addr().MethodByName("Get")
		inner := reflect.New(get.Type().Out(0)).Elem()
		if err := fromTree(tree, inner, path); err != nil {
			return err
		}
		v.Addr().MethodByName("Set").Call([]reflect.Value{inner})
		return nil
	case generic(t, "Either"):
		return fmt.Errorf("%w: %s: %s has no way to pick a side", ErrMismatch, path, t)
	}

	switch v.Kind() {
	case reflect.Bool:
		b, ok := tree.(bool)
		if !ok {
			return mismatch(path, t, tree)
		}
		v.SetBool(b)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := toInt64(tree)
		if !ok || v.OverflowInt(n) {
			return mismatch(path, t, tree)
		}
		v.SetInt(n)
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := toUint64(tree)
		if !ok || v.OverflowUint(n) {
			return mismatch(path, t, tree)
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, ok := toFloat64(tree)
		if !ok || v.OverflowFloat(f) {
			return mismatch(path, t, tree)
		}
		v.SetFloat(f)
	case reflect.String:
		s, ok := tree.(string)
		if !ok {
			return mismatch(path, t, tree)
		}
		v.SetString(s)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			b, ok := toBytes(tree)
			if !ok {
				return mismatch(path, t, tree)
			}
			out := reflect.MakeSlice(t, len(b), len(b))
			reflect.Copy(out, reflect.ValueOf(b))
			v.Set(out)
			return nil
		}
		list, ok := tree.([]any)
		if !ok {
			return mismatch(path, t, tree)
		}
		out := reflect.MakeSlice(t, len(list), len(list))
		for i, e := range list {
			if err := fromTree(e, out.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		v.Set(out)
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			b, ok := toBytes(tree)
			if !ok || len(b) != t.Len() {
				return mismatch(path, t, tree)
			}
			reflect.Copy(v, reflect.ValueOf(b))
			return nil
		}
		list, ok := tree.([]any)
		if !ok || len(list) != t.Len() {
			return mismatch(path, t, tree)
		}
		for i, e := range list {
			if err := fromTree(e, v.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case reflect.Pointer:
		if tree == nil {
			v.SetZero()
			return nil
		}
		if v.IsNil() {
			v.Set(reflect.New(t.Elem()))
		}
		return fromTree(tree, v.Elem(), path)
	case reflect.Struct:
		return fromMap(tree, v, path)
	default:
		return mismatch(path, t, tree)
	}
	return nil
}

func fromMap(tree any, v reflect.Value, path string) error {
	if tree == nil {
		return nil
	}
	m, ok := toMap(tree)
	if !ok {
		return mismatch(path, v.Type(), tree)
	}
	t := v.Type()
	known := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		key, ok := fieldKey(t.Field(i))
		if !ok {
			continue
		}
		known[key] = true
		e, present := m[key]
		if !present {
			continue
		}
		sub := key
		if path != "" {
			sub = path + "." + key
		}
		if err := fromTree(e, v.Field(i), sub); err != nil {
			return err
		}
	}
	for k := range m {
		if !known[k] {
			return fmt.Errorf("%w: %s: unknown field %q", ErrMismatch, path, k)
		}
	}
	return nil
}

func toMap(tree any) (map[string]any, bool) {
	switch m := tree.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[s] = v
		}
		return out, true
	case Map:
		out := make(map[string]any, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	}
	return nil, false
}

func toInt64(tree any) (int64, bool) {
	rv := reflect.ValueOf(tree)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return 0, false
		}
		return int64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

func toUint64(tree any) (uint64, bool) {
	rv := reflect.ValueOf(tree)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Int() < 0 {
			return 0, false
		}
		return uint64(rv.Int()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
			return 0, false
		}
		return uint64(f), true
	}
	return 0, false
}

func toFloat64(tree any) (float64, bool) {
	rv := reflect.ValueOf(tree)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}

func toBytes(tree any) ([]byte, bool) {
	switch b := tree.(type) {
	case []byte:
		return b, true
	case string:
		return []byte(b), true
	case []any:
		out := make([]byte, len(b))
		for i, e := range b {
			n, ok := toUint64(e)
			if !ok || n > math.MaxUint8 {
				return nil, false
			}
			out[i] = byte(n)
		}
		return out, true
	}
	return nil, false
}
