package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Params is an insertion-ordered parameter table: the exact binding set for
// the $name placeholders of a native query.
//
// The zero value is ready to use. Params is not safe for concurrent
// mutation; each compile call owns its own table.
type Params struct {
	keys   []string
	values map[string]any
}

// NewParams creates an empty parameter table.
func NewParams() *Params {
	return &Params{values: make(map[string]any)}
}

// Set binds name to value. Re-binding an existing name keeps its position.
func (p *Params) Set(name string, value any) {
	if p.values == nil {
		p.values = make(map[string]any)
	}
	if _, exists := p.values[name]; !exists {
		p.keys = append(p.keys, name)
	}
	p.values[name] = value
}

// Get returns the value bound to name.
func (p *Params) Get(name string) (any, bool) {
	if p == nil || p.values == nil {
		return nil, false
	}
	v, ok := p.values[name]
	return v, ok
}

// Has reports whether name is bound.
func (p *Params) Has(name string) bool {
	_, ok := p.Get(name)
	return ok
}

// Len returns the number of bound parameters.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Keys returns parameter names in insertion order.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

// Map returns a copy of the table as a plain map, the shape query drivers take.
func (p *Params) Map() map[string]any {
	out := make(map[string]any, p.Len())
	if p == nil {
		return out
	}
	for _, k := range p.keys {
		out[k] = p.values[k]
	}
	return out
}

// Merge copies every binding of other into p, in other's order.
func (p *Params) Merge(other *Params) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		p.Set(k, other.values[k])
	}
}

// Clone returns an independent copy of the table.
func (p *Params) Clone() *Params {
	out := NewParams()
	out.Merge(p)
	return out
}

// MarshalJSON encodes the table as a JSON object preserving insertion order.
func (p *Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", k, err)
		}
		val, err := json.Marshal(p.values[k])
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
