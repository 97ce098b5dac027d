package common

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AccountFromArgs returns the "account" argument. Empty selects the
// service's default account.
func AccountFromArgs(args map[string]any) string {
	return String(args, "account")
}

// String returns a trimmed string argument, or "" when absent.
func String(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

// RequiredString returns a non-empty string argument.
func RequiredString(args map[string]any, key string) (string, error) {
	v := String(args, key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// Bool returns a boolean argument, accepting "true"/"false" strings.
func Bool(args map[string]any, key string, def bool) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// OptionalBool returns a boolean argument, or nil when absent.
func OptionalBool(args map[string]any, key string) *bool {
	if _, ok := args[key]; !ok {
		return nil
	}
	b := Bool(args, key, false)
	return &b
}

// Int returns a numeric argument. JSON numbers arrive as float64.
func Int(args map[string]any, key string, def int) (int, error) {
	switch v := args[key].(type) {
	case nil:
		return def, nil
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return def, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be a number", key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}

// Float returns a numeric argument and whether it was given.
func Float(args map[string]any, key string) (float64, bool, error) {
	switch v := args[key].(type) {
	case nil:
		return 0, false, nil
	case float64:
		return v, true, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false, fmt.Errorf("%s must be a number", key)
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("%s must be a number", key)
	}
}

// StringList returns a list argument given either as an array of strings or
// as a comma-separated string. Empty items are dropped.
func StringList(args map[string]any, key string) ([]string, error) {
	var out []string
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case string:
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	case []any:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", key, i)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	default:
		return nil, fmt.Errorf("%s must be a string or an array of strings", key)
	}
	return out, nil
}

// Time parses an RFC 3339 timestamp or a YYYY-MM-DD date argument. The zero
// time is returned when the argument is absent.
func Time(args map[string]any, key string) (time.Time, error) {
	v := String(args, key)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%s must be an RFC 3339 timestamp or a YYYY-MM-DD date", key)
}

// IsDate reports whether the argument is a bare YYYY-MM-DD date.
func IsDate(args map[string]any, key string) bool {
	_, err := time.Parse(time.DateOnly, String(args, key))
	return err == nil
}

// RawJSON returns an argument that carries JSON. Objects and arrays are
// re-encoded; strings must hold JSON text.
func RawJSON(args map[string]any, key string) (json.RawMessage, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, nil
		}
		if !json.Valid([]byte(v)) {
			return nil, fmt.Errorf("%s must be valid JSON", key)
		}
		return json.RawMessage(v), nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return raw, nil
	}
}

// Decode unmarshals a JSON argument into out. It reports whether the
// argument was present.
func Decode(args map[string]any, key string, out any) (bool, error) {
	raw, err := RawJSON(args, key)
	if err != nil || raw == nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("%s has an invalid shape: %w", key, err)
	}
	return true, nil
}
