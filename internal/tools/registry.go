// Package tools holds the LLM-callable tools, the registry that exposes
// them as a manifest and the executor that runs requested calls.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/querybird/querybird/internal/schema"
)

// ToolName is the canonical name of a built-in tool.
type ToolName string

const (
	ToolQueryDatabase   ToolName = "query_database"
	ToolSearchWikipedia ToolName = "search_wikipedia"
)

// Registry holds a fixed, ordered set of named tools and dispatches calls
// to them. It is produced by RegistryBuilder and never mutated afterwards.
type Registry struct {
	order []string
	tools map[string]schema.Tool
}

// Get returns the tool registered under name, or nil.
func (r *Registry) Get(name string) schema.Tool {
	return r.tools[name]
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Definitions returns all tool definitions in OpenAI function-calling format,
// in registration order. Every definition is marked strict: the parameter
// schemas reject unknown properties and list their required ones.
func (r *Registry) Definitions() []map[string]any {
	list := make([]map[string]any, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		var params any
		if err := json.Unmarshal(t.Parameters(), &params); err != nil {
			params = map[string]any{
				"type":                 "object",
				"properties":           map[string]any{},
				"additionalProperties": false,
			}
		}
		list = append(list, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name(),
				"description": t.Description(),
				"parameters":  params,
				"strict":      true,
			},
		})
	}
	return list
}

// Dispatch invokes the named tool with args. It returns ErrUnknownTool,
// wrapped with the name, when nothing is registered under it.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (string, error) {
	t := r.tools[name]
	if t == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t.Execute(ctx, args)
}
