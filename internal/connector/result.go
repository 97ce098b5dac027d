package connector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Result is the outcome of a use case. On success the payload's fields are
// flattened next to "success" when serialized, so a payload struct with an
// `id` field renders as {"success":true,"id":"..."}.
type Result[T any] struct {
	Success bool
	Error   string
	Value   T
}

// Ok wraps a successful payload.
func Ok[T any](v T) Result[T] {
	return Result[T]{Success: true, Value: v}
}

// Fail builds a failure Result for operation op.
func Fail[T any](op string, err error) Result[T] {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Result[T]{Error: fmt.Sprintf("%s failed: %s", op, msg)}
}

// Run executes fn and converts any error or panic into a failure Result.
func Run[T any](op string, fn func() (T, error)) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("use case panicked", "operation", op, "panic", r, "stack", string(debug.Stack()))
			res = Result[T]{Error: fmt.Sprintf("%s failed: internal error: %v", op, r)}
		}
	}()
	v, err := fn()
	if err != nil {
		return Fail[T](op, err)
	}
	return Ok(v)
}

// MarshalJSON flattens object payloads; other payloads go under "data".
func (r Result[T]) MarshalJSON() ([]byte, error) {
	out := map[string]json.RawMessage{}
	if r.Success {
		raw, err := json.Marshal(r.Value)
		if err != nil {
			return nil, err
		}
		trimmed := bytes.TrimSpace(raw)
		switch {
		case bytes.HasPrefix(trimmed, []byte("{")):
			if err := json.Unmarshal(trimmed, &out); err != nil {
				return nil, err
			}
		case bytes.Equal(trimmed, []byte("null")):
		default:
			out["data"] = trimmed
		}
	}
	out["success"] = json.RawMessage(fmt.Sprintf("%t", r.Success))
	if r.Error != "" {
		msg, err := json.Marshal(r.Error)
		if err != nil {
			return nil, err
		}
		out["error"] = msg
	}
	return json.Marshal(out)
}
