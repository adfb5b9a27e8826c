package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/roach88/graphpush/internal/ir"
)

// paramEntry is one binding of a stored parameter table.
type paramEntry struct {
	Name  string `msgpack:"n"`
	Value any    `msgpack:"v"`
}

// marshalParams encodes p as a MessagePack array of name/value pairs.
func marshalParams(p *ir.Params) ([]byte, error) {
	entries := make([]paramEntry, 0, p.Len())
	for _, k := range p.Keys() {
		v, _ := p.Get(k)
		entries = append(entries, paramEntry{Name: k, Value: v})
	}
	data, err := msgpack.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return data, nil
}

// unmarshalParams decodes a blob written by marshalParams. Numbers come back
// as int64 or float64 whatever width they were encoded with.
func unmarshalParams(data []byte) (*ir.Params, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)

	var entries []paramEntry
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}

	p := ir.NewParams()
	for _, e := range entries {
		p.Set(e.Name, normalizeValue(e.Value))
	}
	return p, nil
}

func normalizeValue(v any) any {
	switch n := v.(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return float64(n)
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}

func marshalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalMapping(data string) (map[string]string, error) {
	out := map[string]string{}
	if data == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal variable mapping: %w", err)
	}
	return out, nil
}

func unmarshalColumns(data string) ([]string, error) {
	out := []string{}
	if data == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal columns: %w", err)
	}
	return out, nil
}
