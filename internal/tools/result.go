package tools

import (
	"encoding/json"
	"fmt"
)

// Result is the JSON envelope every tool returns to the model.
// Success envelopes carry "success": true; failures carry "error".
type Result map[string]any

// SuccessResult builds a success envelope from fields.
func SuccessResult(fields map[string]any) Result {
	r := Result{"success": true}
	for k, v := range fields {
		r[k] = v
	}
	return r
}

// ErrorResult builds a failure envelope. extra may add remediation
// context such as the database schema or disambiguation options.
func ErrorResult(msg string, extra map[string]any) Result {
	r := Result{"error": msg}
	for k, v := range extra {
		r[k] = v
	}
	return r
}

// IsError reports whether the envelope describes a failure.
func (r Result) IsError() bool {
	_, ok := r["error"]
	return ok
}

// String renders the envelope as a single JSON text blob.
func (r Result) String() string {
	data, err := json.Marshal(map[string]any(r))
	if err != nil {
		fallback, _ := json.Marshal(map[string]any{
			"error": fmt.Sprintf("Tool execution failed: encode result: %v", err),
		})
		return string(fallback)
	}
	return string(data)
}

// ParseResult decodes a tool result text back into an envelope.
func ParseResult(text string) (Result, error) {
	var r Result
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return nil, err
	}
	return r, nil
}
