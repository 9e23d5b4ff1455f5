package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/querybird/querybird/internal/metrics"
	"github.com/querybird/querybird/internal/schema"
	"github.com/querybird/querybird/internal/shared/llmutils"
	"github.com/querybird/querybird/internal/tools"
)

// DefaultMaxIterations is the think/act ceiling per query.
const DefaultMaxIterations = 5

// ErrProvider marks a failed LLM request: transport, auth, quota or timeout.
var ErrProvider = errors.New("provider error")

// Outcome is how a loop run ended.
type Outcome int

const (
	OutcomeAnswered Outcome = iota
	OutcomeExhausted
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAnswered:
		return "answered"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return "failed"
	}
}

// RunResult is what one loop run produced. Answer is always set; Err is
// set only for OutcomeFailed and wraps ErrProvider.
type RunResult struct {
	Answer     string
	Outcome    Outcome
	Iterations int
	ToolCalls  []schema.ToolCallRecord
	Err        error
}

// LoopRunner executes the LLM ↔ tool iteration loop.
type LoopRunner struct {
	provider schema.LLMProvider
	settings schema.AgentSettings
	executor *tools.Executor
	metrics  *metrics.Metrics
}

// NewLoopRunner returns a LoopRunner. A non-positive MaxIter selects
// DefaultMaxIterations.
func NewLoopRunner(provider schema.LLMProvider, settings schema.AgentSettings, executor *tools.Executor, m *metrics.Metrics) *LoopRunner {
	if settings.MaxIter <= 0 {
		settings.MaxIter = DefaultMaxIterations
	}
	return &LoopRunner{provider: provider, settings: settings, executor: executor, metrics: m}
}

// Run drives conversation, which must already end with the user message,
// until the model answers, the iteration ceiling is hit or the provider
// fails. Every outcome appends a final assistant message to conversation
// and is returned as text; Run never fails outright.
//
// Tool calls within one response run sequentially in the order the model
// listed them, and their results are appended in that same order.
func (r *LoopRunner) Run(ctx context.Context, conversation *schema.Messages, onProgress func(string)) RunResult {
	var (
		records     []schema.ToolCallRecord
		lastContent string
	)
	definitions := r.executor.Registry().Definitions()
	opts := schema.NewChatOptions(r.settings.Model, r.settings.MaxTokens, r.settings.Temperature)

	for i := 1; i <= r.settings.MaxIter; i++ {
		resp, err := r.chat(ctx, *conversation, definitions, opts)
		if err != nil {
			slog.Error("LLM error", "iteration", i, "err", err)
			answer := "Error processing query: " + err.Error()
			conversation.AddAssistant(answer, nil)
			r.metrics.ObserveLoop(OutcomeFailed.String(), i)
			return RunResult{
				Answer:     answer,
				Outcome:    OutcomeFailed,
				Iterations: i,
				ToolCalls:  records,
				Err:        fmt.Errorf("%w: %w", ErrProvider, err),
			}
		}

		if !resp.HasToolCalls() {
			conversation.AddAssistant(resp.Content, nil)
			r.metrics.ObserveLoop(OutcomeAnswered.String(), i)
			return RunResult{Answer: resp.Content, Outcome: OutcomeAnswered, Iterations: i, ToolCalls: records}
		}

		lastContent = resp.Content
		if onProgress != nil {
			if clean := llmutils.StripThink(resp.Content); clean != "" {
				onProgress(clean)
			}
			onProgress(llmutils.ToolHint(resp.ToolCalls))
		}

		conversation.AddAssistant(resp.Content, resp.AssistantToolCalls())

		for _, tc := range resp.ToolCalls {
			slog.Info("Tool call", "name", tc.Name, "args", llmutils.Truncate(tc.RawArguments, 200))
			result := r.executor.Execute(ctx, tc)
			conversation.AddToolResult(tc.ID, tc.Name, result)
			records = append(records, schema.ToolCallRecord{
				Tool:      tc.Name,
				Arguments: tc.RawArguments,
				Result:    result,
			})
		}
	}

	answer := fmt.Sprintf(
		"I've reached the maximum number of tool calls (%d) without finding a complete answer. Here's what I know so far: %s",
		r.settings.MaxIter, lastContent)
	conversation.AddAssistant(answer, nil)
	r.metrics.ObserveLoop(OutcomeExhausted.String(), r.settings.MaxIter)
	slog.Warn("tool loop exhausted", "iterations", r.settings.MaxIter, "tool_calls", len(records))

	return RunResult{
		Answer:     answer,
		Outcome:    OutcomeExhausted,
		Iterations: r.settings.MaxIter,
		ToolCalls:  records,
	}
}

// chat performs one bounded LLM request.
func (r *LoopRunner) chat(ctx context.Context, conversation schema.Messages, definitions []map[string]any, opts schema.ChatOptions) (schema.LLMResponse, error) {
	return boundedChat(ctx, r.provider, r.settings.LLMTimeout, r.metrics, conversation, definitions, opts)
}
