package docstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Normalize converts arbitrary Go values into the JSON value model by
// round-tripping through encoding/json.
func Normalize(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	return Document{ID: d.ID, Data: cloneMap(d.Data), Version: d.Version}
}

// Lookup returns the value at a dotted field path.
func (d Document) Lookup(field string) (any, bool) {
	if field == IDField {
		return d.ID, true
	}
	return lookup(d.Data, field)
}

// String returns the first of the named fields holding a non-empty
// string. Numbers are formatted without trailing zeros.
func (d Document) String(fields ...string) string {
	for _, f := range fields {
		v, ok := d.Lookup(f)
		if !ok || v == nil {
			continue
		}
		switch x := v.(type) {
		case string:
			if x != "" {
				return x
			}
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(x)
		}
	}
	return ""
}

// Number returns the field as a float64, accepting numeric strings.
func (d Document) Number(field string) (float64, bool) {
	v, ok := d.Lookup(field)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// Strings returns the field as a string slice. A plain string yields a
// one-element slice unless it is empty.
func (d Document) Strings(field string) ([]string, bool) {
	v, ok := d.Lookup(field)
	if !ok || v == nil {
		return nil, false
	}
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil, true
		}
		return []string{x}, true
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out, true
	case []string:
		return append([]string(nil), x...), true
	}
	return nil, false
}

// Time parses an RFC 3339 timestamp field.
func (d Document) Time(field string) time.Time {
	s, _ := d.Lookup(field)
	str, ok := s.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, str)
	if err != nil {
		return time.Time{}
	}
	return t
}

func lookup(data map[string]any, field string) (any, bool) {
	var cur any = data
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
