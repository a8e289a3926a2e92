// Package value defines the dynamic values that flow through expression
// evaluation, together with the coercions the function library relies on.
//
// Values are plain Go values drawn from a small closed set:
//
//	nil, bool, float64, string, []any, *Dict
//
// plus domain types from other packages (schedules, periods, transactions)
// that opt into the Keyed, Lister and Lener interfaces below.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Keyed is implemented by values that support d["key"] lookups.
type Keyed interface {
	Get(key string) (any, bool)
}

// Lister is implemented by values that can be viewed as a list.
type Lister interface {
	List() []any
}

// Lener is implemented by values with a length.
type Lener interface {
	Len() int
}

// Dict is an insertion-ordered string-keyed map.
// Column declarations and schedule rows depend on the order being kept.
type Dict struct {
	keys []string
	m    map[string]any
}

// NewDict creates an empty Dict.
func NewDict() *Dict {
	return &Dict{m: make(map[string]any)}
}

// DictOf builds a Dict from alternating key/value arguments.
func DictOf(kv ...any) *Dict {
	d := NewDict()
	for i := 0; i+1 < len(kv); i += 2 {
		d.Set(fmt.Sprint(kv[i]), kv[i+1])
	}
	return d
}

// Set inserts or replaces a key. Replacing keeps the original position.
func (d *Dict) Set(key string, v any) {
	if _, ok := d.m[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.m[key] = v
}

// SetDefault sets key only when it is not present yet.
func (d *Dict) SetDefault(key string, v any) {
	if _, ok := d.m[key]; !ok {
		d.Set(key, v)
	}
}

// Get returns the value for key.
func (d *Dict) Get(key string) (any, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.m[key]
	return v, ok
}

// Lookup returns the value for key or nil.
func (d *Dict) Lookup(key string) any {
	v, _ := d.Get(key)
	return v
}

// Has reports whether key is present.
func (d *Dict) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Delete removes key.
func (d *Dict) Delete(key string) {
	if _, ok := d.m[key]; !ok {
		return
	}
	delete(d.m, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len returns the number of entries.
func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Clone returns a shallow copy.
func (d *Dict) Clone() *Dict {
	c := &Dict{keys: make([]string, len(d.keys)), m: make(map[string]any, len(d.m))}
	copy(c.keys, d.keys)
	for k, v := range d.m {
		c.m[k] = v
	}
	return c
}

// Map returns the entries as a plain map (order is lost).
func (d *Dict) Map() map[string]any {
	out := make(map[string]any, d.Len())
	for _, k := range d.Keys() {
		out[k] = d.m[k]
	}
	return out
}

// Range calls fn for each entry in order until fn returns false.
func (d *Dict) Range(fn func(key string, v any) bool) {
	if d == nil {
		return
	}
	for _, k := range d.keys {
		if !fn(k, d.m[k]) {
			return
		}
	}
}

// MarshalJSON encodes the Dict as a JSON object keeping key order.
func (d *Dict) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(d.m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the Dict as a YAML mapping keeping key order.
func (d *Dict) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range d.keys {
		var kn, vn yaml.Node
		if err := kn.Encode(k); err != nil {
			return nil, err
		}
		if err := vn.Encode(d.m[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &kn, &vn)
	}
	return node, nil
}

// TypeName returns the name used for a value in error messages.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case float64, float32, int, int64, int32:
		return "float"
	case string:
		return "str"
	case []any:
		return "list"
	case *Dict, map[string]any:
		return "dict"
	}
	if _, ok := v.(Lister); ok {
		return "list"
	}
	if _, ok := v.(Keyed); ok {
		return "dict"
	}
	return fmt.Sprintf("%T", v)
}

// Truthy reports the truth value of v.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case Lener:
		return x.Len() > 0
	}
	return true
}
