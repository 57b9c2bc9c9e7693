package exchange

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

func decodeAny(body []byte) (any, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// tupleFrom builds a tuple when the rate field is present and parseable.
func tupleFrom(symbol string, rate any, next any) (Tuple, bool) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return Tuple{}, false
	}
	r, ok := floatFromAny(rate)
	if !ok {
		return Tuple{}, false
	}
	t := Tuple{Symbol: symbol, Rate: r}
	if ts, ok := timeFromAny(next); ok {
		t.NextSettlement = ts
		t.HasNextSettlement = true
	}
	return t, true
}

func toMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func toSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

func stringFromMap(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s := stringFromAny(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func stringFromAny(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// firstPresent returns the first non-nil value among keys.
func firstPresent(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
				continue
			}
			return v
		}
	}
	return nil
}

func floatFromAny(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// timeFromAny accepts seconds, milliseconds or nanoseconds since epoch.
func timeFromAny(v any) (time.Time, bool) {
	f, ok := floatFromAny(v)
	if !ok || f <= 0 {
		return time.Time{}, false
	}
	ts := int64(f)
	switch {
	case ts > 1e15:
		return time.Unix(0, ts).UTC(), true
	case ts > 1e12:
		return time.UnixMilli(ts).UTC(), true
	default:
		return time.Unix(ts, 0).UTC(), true
	}
}
