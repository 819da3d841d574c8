package render

import (
	"encoding/json"
	"strconv"
	"strings"
)

// The helpers below read untyped JSON values (as produced by encoding/json
// into any) with the same loose rules the response format relies on:
// missing, null, "", 0 and false count as absent.

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// truthy mirrors JSON-ish truthiness: objects and arrays are always present,
// even when empty.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}

// display turns a JSON value into display text.
func display(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = display(e)
		}
		return strings.Join(parts, ",")
	default:
		return encodeJSON(t, "")
	}
}

// orDefault returns display(v) when v is truthy, def otherwise.
func orDefault(v any, def string) string {
	if truthy(v) {
		return display(v)
	}
	return def
}

// firstTruthy returns the first truthy value, or nil.
func firstTruthy(vs ...any) any {
	for _, v := range vs {
		if truthy(v) {
			return v
		}
	}
	return nil
}

// stringList converts a JSON array to display strings; non-arrays yield nil.
func stringList(v any) []string {
	s, ok := asSlice(v)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(s))
	for _, e := range s {
		out = append(out, display(e))
	}
	return out
}

// parseJSONString attempts to decode s as JSON. ok is false when s is not JSON.
func parseJSONString(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

// prettyJSON renders v with two-space indentation.
func prettyJSON(v any) string {
	return encodeJSON(v, "  ")
}

// encodeJSON marshals without HTML escaping; escaping is the template's job.
func encodeJSON(v any, indent string) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// cssToken reduces s to characters safe inside a class name.
func cssToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}
