package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/querybird/querybird/internal/wikipedia"
)

// Encyclopedia is the lookup capability search_wikipedia needs.
type Encyclopedia interface {
	Lookup(ctx context.Context, query string) wikipedia.Result
}

// SearchWikipediaTool looks up a topic summary on Wikipedia.
type SearchWikipediaTool struct {
	client Encyclopedia
}

// NewSearchWikipediaTool creates a SearchWikipediaTool over client.
func NewSearchWikipediaTool(client Encyclopedia) *SearchWikipediaTool {
	return &SearchWikipediaTool{client: client}
}

func (t *SearchWikipediaTool) Name() string { return string(ToolSearchWikipedia) }

func (t *SearchWikipediaTool) Description() string {
	return "Search Wikipedia and return a short summary of the best matching article."
}

func (t *SearchWikipediaTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "The topic to search for on Wikipedia"
			}
		},
		"required": ["query"],
		"additionalProperties": false
	}`)
}

func (t *SearchWikipediaTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	query, ok := params["query"].(string)
	if !ok {
		return "", fmt.Errorf("query must be a string")
	}
	res := t.client.Lookup(ctx, query)
	slog.Debug("wikipedia lookup", "query", query, "kind", res.Kind.String(), "title", res.Title)
	return RenderLookup(query, res).String(), nil
}

// RenderLookup maps each lookup kind to its result envelope.
func RenderLookup(query string, res wikipedia.Result) Result {
	switch res.Kind {
	case wikipedia.KindSuccess:
		return SuccessResult(map[string]any{
			"summary": res.Summary,
			"url":     res.URL,
		})
	case wikipedia.KindAmbiguous:
		options := res.Options
		if len(options) > wikipedia.MaxOptions {
			options = options[:wikipedia.MaxOptions]
		}
		return ErrorResult("Disambiguation error", map[string]any{
			"options": options,
			"message": "Topic is ambiguous. Please be more specific.",
		})
	case wikipedia.KindNotFound:
		return ErrorResult("Page not found", map[string]any{
			"message": "No Wikipedia article found for: " + query,
		})
	default:
		return ErrorResult("Unexpected error", map[string]any{
			"message": res.Message,
		})
	}
}
