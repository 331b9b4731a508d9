// Package jsonutil tolerates the loose typing of model-generated JSON:
// fields documented as strings routinely come back as numbers, booleans,
// or null.
package jsonutil

import (
	"encoding/json"
	"strconv"
)

// FlexibleStringValue renders a raw JSON value as a string. Numbers and
// booleans are formatted, null and empty input become "", and anything
// unparseable falls back to its raw text.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}

	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		// Arrays and objects keep their raw JSON text.
		return string(raw)
	}
}

// FlexibleStringMap converts a map of raw values with the same tolerance.
// Entries that resolve to the empty string are dropped; an empty result
// is nil.
func FlexibleStringMap(raw map[string]json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for key, value := range raw {
		if s := FlexibleStringValue(value); s != "" {
			out[key] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
