package table

import (
	"bytes"
	"encoding/json"
)

// Row is a projected row: output column values in column order, plus the
// memoization marker and a back-reference to the raw row it came from.
type Row struct {
	keys      []string
	values    map[string]any
	processed bool
	original  any // lookup only; the row does not own it
}

// NewRow returns an empty, unprocessed row.
func NewRow() *Row {
	return &Row{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (r *Row) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Value returns the value stored under key, or nil.
func (r *Row) Value(key string) any {
	return r.values[key]
}

// Set stores v under key, appending key on first use.
func (r *Row) Set(key string, v any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Keys returns the row's keys in insertion order.
func (r *Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r *Row) Len() int { return len(r.keys) }

// Processed reports whether the row has been through Project.
func (r *Row) Processed() bool { return r.processed }

// Original is the raw row this row was projected from.
func (r *Row) Original() any { return r.original }

// Map returns a copy of the row's values.
func (r *Row) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// MarshalJSON encodes the row as an object with keys in column order.
func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
