// Package normalizer turns provider raw analyzer responses into typed
// extraction records. The provider response is an opaque nested structure;
// a fields map is located by trying the content-list path, the top-level
// path, then treating the response itself as flat fields.
package normalizer

import (
	"strconv"
	"strings"
)

func locateFields(raw map[string]any) map[string]any {
	if raw == nil {
		return nil
	}
	if result, ok := raw["result"].(map[string]any); ok {
		if contents, ok := result["contents"].([]any); ok && len(contents) > 0 {
			if first, ok := contents[0].(map[string]any); ok {
				if fields, ok := first["fields"].(map[string]any); ok {
					return fields
				}
			}
		}
	}
	if fields, ok := raw["fields"].(map[string]any); ok {
		return fields
	}
	return raw
}

// fieldString coerces one field out of its typed value slot. Flat string
// values are accepted as-is for the fallback path.
func fieldString(fields map[string]any, name string) string {
	value, ok := fields[name]
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		for _, slot := range []string{"valueString", "valueDate", "value"} {
			if s, ok := v[slot].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func fieldNumber(fields map[string]any, name string) (float64, bool) {
	value, ok := fields[name]
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case map[string]any:
		if n, ok := v["valueNumber"].(float64); ok {
			return n, true
		}
		if s, ok := v["valueString"].(string); ok {
			return parseNumber(s)
		}
	case string:
		return parseNumber(v)
	}
	return 0, false
}

func fieldBool(fields map[string]any, name string) (bool, bool) {
	value, ok := fields[name]
	if !ok {
		return false, false
	}
	switch v := value.(type) {
	case bool:
		return v, true
	case map[string]any:
		if b, ok := v["valueBoolean"].(bool); ok {
			return b, true
		}
	}
	return false, false
}

func fieldArray(fields map[string]any, name string) []any {
	value, ok := fields[name]
	if !ok {
		return nil
	}
	switch v := value.(type) {
	case []any:
		return v
	case map[string]any:
		if arr, ok := v["valueArray"].([]any); ok {
			return arr
		}
	}
	return nil
}

func fieldStringList(fields map[string]any, name string) []string {
	var out []string
	for _, item := range fieldArray(fields, name) {
		switch v := item.(type) {
		case string:
			out = append(out, strings.TrimSpace(v))
		case map[string]any:
			if s, ok := v["valueString"].(string); ok {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

// fieldObjectList flattens an array of object slots into plain maps so the
// per-type normalizers can reuse the scalar coercers on each element.
func fieldObjectList(fields map[string]any, name string) []map[string]any {
	var out []map[string]any
	for _, item := range fieldArray(fields, name) {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if inner, ok := obj["valueObject"].(map[string]any); ok {
			out = append(out, inner)
			continue
		}
		out = append(out, obj)
	}
	return out
}

func parseNumber(s string) (float64, bool) {
	cleaned := strings.TrimSpace(strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', ' ':
			return -1
		}
		return r
	}, s))
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
