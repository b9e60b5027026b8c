package formkit

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Kind identifies which variant a Value holds
type Kind uint8

const (
	KindInvalid Kind = iota
	KindText
	KindFile
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFile:
		return "file"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Value is one entry of a decoded Record: a text field, a file, a list of
// scalars or a nested Record. The zero Value is KindInvalid.
type Value struct {
	kind Kind
	text string
	file *File
	list []Value
	rec  *Record
}

// Text returns a text Value
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// FileValue returns a file Value
func FileValue(f *File) Value {
	return Value{kind: KindFile, file: f}
}

// List returns a list Value holding vs in order
func List(vs ...Value) Value {
	return Value{kind: KindList, list: vs}
}

// Map returns a Value wrapping a nested record
func Map(r *Record) Value {
	return Value{kind: KindMap, rec: r}
}

// Kind reports the variant held by v
func (v Value) Kind() Kind {
	return v.kind
}

// IsScalar reports whether v is text or a file
func (v Value) IsScalar() bool {
	return v.kind == KindText || v.kind == KindFile
}

// AsText returns the text held by v
func (v Value) AsText() (string, bool) {
	return v.text, v.kind == KindText
}

// AsFile returns the file held by v
func (v Value) AsFile() (*File, bool) {
	return v.file, v.kind == KindFile
}

// AsList returns a copy of the list held by v
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return slices.Clone(v.list), true
}

// AsMap returns the nested record held by v
func (v Value) AsMap() (*Record, bool) {
	return v.rec, v.kind == KindMap
}

// Len returns the number of elements of a list or keys of a map, 1 for a
// scalar and 0 for an invalid Value.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return v.rec.Len()
	case KindText, KindFile:
		return 1
	default:
		return 0
	}
}

// Files returns every file held by v, depth first.
func (v Value) Files() []*File {
	switch v.kind {
	case KindFile:
		return []*File{v.file}
	case KindList:
		var files []*File
		for _, item := range v.list {
			files = append(files, item.Files()...)
		}
		return files
	case KindMap:
		return v.rec.Files()
	default:
		return nil
	}
}

// String returns the text of a text Value and the full name of a file.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindFile:
		return v.file.FullName
	default:
		return "<" + v.kind.String() + ">"
	}
}

// MarshalJSON encodes text as a string, files as their metadata, lists as
// arrays and maps as objects in key order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindFile:
		return json.Marshal(v.file)
	case KindList:
		return json.Marshal(v.list)
	case KindMap:
		return v.rec.MarshalJSON()
	default:
		return []byte("null"), nil
	}
}

// Record is an ordered mapping of field names to values. Keys keep the order
// in which they first arrived.
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord returns an empty record
func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// Len returns the number of keys
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Keys returns the keys in first-arrival order
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.keys)
}

// Get returns the value stored under key
func (r *Record) Get(key string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Lookup walks nested records along path.
func (r *Record) Lookup(path ...string) (Value, bool) {
	if len(path) == 0 {
		return Value{}, false
	}
	cur := r
	for _, key := range path[:len(path)-1] {
		v, ok := cur.Get(key)
		if !ok || v.kind != KindMap {
			return Value{}, false
		}
		cur = v.rec
	}
	return cur.Get(path[len(path)-1])
}

// LookupField resolves a raw form field name such as "user[avatar]".
func (r *Record) LookupField(name string) (Value, bool) {
	segments, _ := ParseFieldName(name)
	return r.Lookup(segments...)
}

// Files returns every file in the record, depth first in key order.
func (r *Record) Files() []*File {
	if r == nil {
		return nil
	}
	var files []*File
	for _, key := range r.keys {
		files = append(files, r.values[key].Files()...)
	}
	return files
}

func (r *Record) set(key string, v Value) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// MarshalJSON encodes the record as a JSON object preserving key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := r.values[key].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
