package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
)

// Lookup walks nested maps and slices. Numeric path elements index slices.
func Lookup(raw ingest.RawPayload, path ...string) (any, bool) {
	var cur any = map[string]any(raw)
	for _, key := range path {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = next
		case ingest.RawPayload:
			next, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

// String returns the value at path rendered as a trimmed string. Numbers are
// rendered without exponent; missing values yield "".
func String(raw ingest.RawPayload, path ...string) string {
	v, ok := Lookup(raw, path...)
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}

// Float returns the numeric value at path, parsing numeric strings.
func Float(raw ingest.RawPayload, path ...string) (float64, bool) {
	v, ok := Lookup(raw, path...)
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool returns the boolean at path. Missing values are false.
func Bool(raw ingest.RawPayload, path ...string) bool {
	v, ok := Lookup(raw, path...)
	if !ok {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		return err == nil && b
	case float64:
		return val != 0
	default:
		return false
	}
}

// Slice returns the list at path as payload maps, skipping non-object items.
func Slice(raw ingest.RawPayload, path ...string) []ingest.RawPayload {
	v, ok := Lookup(raw, path...)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]ingest.RawPayload, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, ingest.RawPayload(m))
		}
	}
	return out
}

// Strings returns the list at path as strings, skipping non-string items.
func Strings(raw ingest.RawPayload, path ...string) []string {
	v, ok := Lookup(raw, path...)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// RequireID returns the first non-empty string among the given paths.
func RequireID(raw ingest.RawPayload, paths ...[]string) (string, error) {
	for _, p := range paths {
		if id := String(raw, p...); id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: tried %d paths", ErrMissingSourceID, len(paths))
}
