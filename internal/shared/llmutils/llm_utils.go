package llmutils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/querybird/querybird/internal/schema"
)

var reThink = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Truncate shortens a string to at most n characters, adding "..." if it was truncated.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// StripThink removes <think>…</think> blocks that some models embed.
func StripThink(s string) string {
	return reThink.ReplaceAllString(s, "")
}

// ToolHint generates a short hint string for a list of tool calls, e.g.
// `search_wikipedia("Alan Turing")`. The "query" argument is preferred;
// unparseable arguments show the bare tool name.
func ToolHint(tcs []schema.ToolCallRequest) string {
	parts := make([]string, 0, len(tcs))
	for _, tc := range tcs {
		firstVal := hintValue(tc.RawArguments)
		if firstVal == "" {
			parts = append(parts, tc.Name)
			continue
		}
		if len(firstVal) > 40 {
			firstVal = firstVal[:40] + "…"
		}
		parts = append(parts, fmt.Sprintf("%s(%q)", tc.Name, firstVal))
	}
	return strings.Join(parts, ", ")
}

func hintValue(raw string) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return ""
	}
	if q, ok := args["query"].(string); ok {
		return q
	}
	for _, v := range args {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
