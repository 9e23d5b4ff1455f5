package providers

import (
	"time"

	"github.com/querybird/querybird/internal/schema"
)

// Params are the raw values needed to construct any schema.LLMProvider.
// Extracted from config.Config by the caller to avoid an import cycle.
type Params struct {
	APIKey       string
	APIBase      string
	ExtraHeaders map[string]string
	DefaultModel string
	ProviderName string // registry name, e.g. "openai", "azure", "openrouter"

	// Azure only.
	APIVersion string
	Deployment string

	Timeout time.Duration // HTTP client timeout
}

// New creates the schema.LLMProvider for the given params. Every supported
// endpoint speaks the chat completions protocol.
func New(p Params) schema.LLMProvider {
	return NewOpenAIProvider(p)
}
