package whmcs

import (
	"encoding/json"
	"strconv"
	"strings"
)

// The remote API is loose about scalar types: numeric fields arrive as
// strings or numbers depending on the action and version. These readers
// coerce whatever shows up.

func readString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	value, ok := m[key]
	if !ok {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(typed, 10)
	case int:
		return strconv.Itoa(typed)
	case bool:
		return strconv.FormatBool(typed)
	}
	return ""
}

func readInt64(m map[string]any, key string) int64 {
	raw := readString(m, key)
	if raw == "" {
		return 0
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func readFloat(m map[string]any, key string) float64 {
	raw := readString(m, key)
	if raw == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func formatInt(value int64) string {
	return strconv.FormatInt(value, 10)
}

func readMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	value, ok := m[key]
	if !ok {
		return nil
	}
	typed, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	return typed
}

func readStringMap(m map[string]any, key string) map[string]string {
	inner := readMap(m, key)
	if inner == nil {
		return nil
	}
	out := make(map[string]string, len(inner))
	for innerKey := range inner {
		out[innerKey] = readString(inner, innerKey)
	}
	return out
}
