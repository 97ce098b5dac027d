package batch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teemow/connectorhub/internal/connector"
)

// Result is the outcome of a single item in a batch.
type Result struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Value   json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// BatchResult aggregates the outcomes of a batch. Success is true only when
// every item succeeded.
type BatchResult struct {
	Success    bool     `json:"success"`
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseStringOrArray parses a parameter that can be either a single string or an array of strings
func ParseStringOrArray(param any, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	var result []string

	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		// Some clients send arrays as JSON text.
		var list []any
		if strings.HasPrefix(v, "[") && json.Unmarshal([]byte(v), &list) == nil {
			return ParseStringOrArray(list, paramName)
		}
		result = []string{v}
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			if str == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
			result = append(result, str)
		}
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	return result, nil
}

// Process runs one use case per id, in order, and collects the outcomes.
// A failing item does not stop the batch.
func Process[T any](ids []string, fn func(id string) connector.Result[T]) BatchResult {
	br := BatchResult{Total: len(ids), Results: make([]Result, 0, len(ids))}
	for _, id := range ids {
		res := fn(id)
		item := Result{ID: id, Success: res.Success, Error: res.Error}
		if res.Success {
			if raw, err := json.Marshal(res.Value); err == nil {
				item.Value = raw
			}
			br.Successful++
		} else {
			br.Failed++
		}
		br.Results = append(br.Results, item)
	}
	br.Success = br.Failed == 0
	return br
}

// Format renders a batch result as indented JSON.
func Format(br BatchResult) string {
	jsonBytes, _ := json.MarshalIndent(br, "", "  ")
	return string(jsonBytes)
}
