package fallback

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Stringify normalizes a loosely typed settings value into a plain string.
// Strings are trimmed, numbers and booleans formatted, objects reduced to their
// value/label/name field and lists joined with ", ". Anything else yields "".
func Stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case map[string]interface{}:
		for _, key := range []string{"value", "label", "name", "id"} {
			if s := Stringify(v[key]); s != "" {
				return s
			}
		}
		return ""
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := Stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	}
	return ""
}

// SafeString returns a trimmed string or the provided fallback.
func SafeString(value interface{}, fallback string) string {
	if s, ok := value.(string); ok {
		s = strings.TrimSpace(s)
		if s != "" {
			return s
		}
	}
	return fallback
}

// SafeInt converts common number shapes into a positive int with a fallback.
func SafeInt(value interface{}, fallback int) int {
	switch v := value.(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case float32:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	case int64:
		if v > 0 {
			return int(v)
		}
	case json.Number:
		if n, err := strconv.Atoi(v.String()); err == nil && n > 0 {
			return n
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// Page parses page/limit query values: page >= 1, 1 <= limit <= maxLimit.
func Page(pageRaw, limitRaw string, defaultLimit, maxLimit int) (page, limit int) {
	page = SafeInt(pageRaw, 1)
	limit = SafeInt(limitRaw, defaultLimit)
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
