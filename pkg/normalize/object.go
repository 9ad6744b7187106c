package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Object is a decoded JSON object that keeps its members in document order.
// A repeated key keeps its first position and takes the last value.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject returns an empty Object
func NewObject() *Object {
	return &Object{values: map[string]any{}}
}

// Set adds or replaces a member
func (o *Object) Set(key string, v any) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Get returns the member stored under key
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the member names in document order
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Len returns the number of members
func (o *Object) Len() int {
	return len(o.keys)
}

// Map returns the members as a plain map. Nested objects stay ordered.
func (o *Object) Map() map[string]any {
	m := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		m[k] = o.values[k]
	}
	return m
}

// MarshalJSON encodes the members in document order
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf, o, layout{itemSep: ",", keySep: ":"}, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeValue reads one JSON value from dec, building *Object for objects
// and []any for arrays. dec must have UseNumber set.
func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, isDelim := tok.(json.Delim)
	if !isDelim {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := NewObject()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(key, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

// layout describes how containers are laid out. An empty indent writes
// everything on one line.
type layout struct {
	indent  string
	itemSep string
	keySep  string
}

var (
	// json.dumps(v, indent=2)
	prettyLayout = layout{indent: indent, itemSep: ",", keySep: ": "}
	// json.dumps(v)
	compactLayout = layout{itemSep: ", ", keySep: ": "}
)

func (l layout) newline(buf *bytes.Buffer, depth int) {
	if l.indent == "" {
		return
	}
	buf.WriteByte('\n')
	buf.WriteString(strings.Repeat(l.indent, depth))
}

func write(buf *bytes.Buffer, v any, l layout, depth int) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case *Object:
		if val == nil {
			buf.WriteString("null")
			return nil
		}
		return writeObject(buf, val.keys, val.Get, l, depth)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return writeObject(buf, keys, func(k string) (any, bool) {
			x, ok := val[k]
			return x, ok
		}, l, depth)
	case []any:
		if len(val) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteString(l.itemSep)
			}
			l.newline(buf, depth+1)
			if err := write(buf, item, l, depth+1); err != nil {
				return err
			}
		}
		l.newline(buf, depth)
		buf.WriteByte(']')
		return nil
	default:
		return writeOther(buf, v, l, depth)
	}
}

func writeObject(buf *bytes.Buffer, keys []string, get func(string) (any, bool), l layout, depth int) error {
	if len(keys) == 0 {
		buf.WriteString("{}")
		return nil
	}
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteString(l.itemSep)
		}
		l.newline(buf, depth+1)
		if err := writeScalar(buf, k); err != nil {
			return err
		}
		buf.WriteString(l.keySep)
		v, _ := get(k)
		if err := write(buf, v, l, depth+1); err != nil {
			return err
		}
	}
	l.newline(buf, depth)
	buf.WriteByte('}')
	return nil
}

// writeOther encodes any other Go value. Containers produced by a custom
// marshaler or a struct are decoded again so they follow the layout.
func writeOther(buf *bytes.Buffer, v any, l layout, depth int) error {
	var tmp bytes.Buffer
	if err := writeScalar(&tmp, v); err != nil {
		return err
	}
	if b := tmp.Bytes(); len(b) > 0 && (b[0] == '{' || b[0] == '[') {
		dec := json.NewDecoder(&tmp)
		dec.UseNumber()
		parsed, err := decodeValue(dec)
		if err != nil {
			return err
		}
		return write(buf, parsed, l, depth)
	}
	_, err := io.Copy(buf, &tmp)
	return err
}

// writeScalar writes v as compact JSON without HTML escaping
func writeScalar(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
