// Package attrs reads slog-style key-value slices, the shape services pass to
// their audit helpers.
package attrs

// ExtractString extracts a string value from a key-value attribute slice.
// The slice should be formatted as [key1, value1, key2, value2, ...].
// Returns empty string if the key is not found or the value is not a string.
func ExtractString(attrs []any, key string) string {
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok {
			continue
		}
		if k == key {
			if v, ok := attrs[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}

// ToMap collects the pairs into a map, skipping the given keys and any pair
// whose key is not a string. Returns nil when nothing remains.
func ToMap(attrs []any, skip ...string) map[string]any {
	var out map[string]any
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok || contains(skip, k) {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = attrs[i+1]
	}
	return out
}

func contains(keys []string, k string) bool {
	for _, s := range keys {
		if s == k {
			return true
		}
	}
	return false
}
