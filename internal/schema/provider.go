package schema

import "context"

// ToolChoiceAuto lets the model decide whether to call tools.
const ToolChoiceAuto = "auto"

// ChatOptions configures a single LLM chat request.
type ChatOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
	ToolChoice  string // sent only when tools are present; "" means auto
}

// ToolCallRequest is one tool invocation requested by the LLM. RawArguments
// is left unparsed; the tool executor owns parsing and its failure mode.
type ToolCallRequest struct {
	ID           string
	Name         string
	RawArguments string
}

// LLMResponse is the normalised response from any LLM provider.
type LLMResponse struct {
	Content      string
	ToolCalls    []ToolCallRequest
	FinishReason string
	Usage        map[string]int // "prompt_tokens", "completion_tokens", "total_tokens"
}

// HasToolCalls reports whether the response contains at least one tool call.
func (r LLMResponse) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// AssistantToolCalls converts the requested calls into the form stored on
// the assistant message that precedes their results.
func (r LLMResponse) AssistantToolCalls() []ToolCall {
	if len(r.ToolCalls) == 0 {
		return nil
	}
	out := make([]ToolCall, 0, len(r.ToolCalls))
	for _, tc := range r.ToolCalls {
		out = append(out, ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.RawArguments})
	}
	return out
}

// LLMProvider is the interface every LLM backend must satisfy.
type LLMProvider interface {
	Chat(ctx context.Context, messages Messages, tools []map[string]any, opts ChatOptions) (LLMResponse, error)
	DefaultModel() string
}

func NewChatOptions(model string, maxTokens int, temperature float64) ChatOptions {
	return ChatOptions{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		ToolChoice:  ToolChoiceAuto,
	}
}
