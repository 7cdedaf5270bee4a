package conversion

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Properties are the flat key/value pairs sent with a lead or sale.
type Properties map[string]any

// scalar reports whether v serializes to a JSON string, number, boolean or
// null.
func scalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// sanitize returns a copy of props holding only scalar values together with
// the sorted keys that were dropped.
func sanitize(props Properties) (Properties, []string) {
	out := make(Properties, len(props))
	var dropped []string
	for k, v := range props {
		if scalar(v) {
			out[k] = v
			continue
		}
		dropped = append(dropped, k)
	}
	sort.Strings(dropped)
	return out, dropped
}

func invalidKeys(keys []string) error {
	return fmt.Errorf("%w: %v", ErrInvalidProperty, keys)
}
