package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/querybird/querybird/internal/metrics"
	"github.com/querybird/querybird/internal/schema"
)

// DefaultToolTimeout bounds a single tool execution when none is configured.
const DefaultToolTimeout = 30 * time.Second

// Executor runs one LLM-issued tool call at a time against a Registry.
// It always returns a text payload: every failure becomes a JSON error
// envelope so the agent loop can append a tool message unconditionally.
type Executor struct {
	registry *Registry
	timeout  time.Duration
	metrics  *metrics.Metrics
}

// NewExecutor returns an Executor. timeout <= 0 selects DefaultToolTimeout.
func NewExecutor(registry *Registry, timeout time.Duration, m *metrics.Metrics) *Executor {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return &Executor{registry: registry, timeout: timeout, metrics: m}
}

// Registry returns the registry the executor dispatches to.
func (e *Executor) Registry() *Registry { return e.registry }

// Execute parses call.RawArguments, dispatches the call and returns the
// result text.
func (e *Executor) Execute(ctx context.Context, call schema.ToolCallRequest) string {
	start := time.Now()
	out, err := e.run(ctx, call)
	status := "ok"
	if err != nil {
		status = failureLabel(err)
		slog.Warn("tool call failed", "tool", call.Name, "id", call.ID, "err", err)
		out = failureEnvelope(call.Name, err).String()
	} else if envelopeFailed(out) {
		status = "tool_error"
	}
	e.metrics.ObserveToolCall(call.Name, status, time.Since(start))
	return out
}

func (e *Executor) run(ctx context.Context, call schema.ToolCallRequest) (string, error) {
	args, err := ParseArguments(call.RawArguments)
	if err != nil {
		return "", err
	}
	if e.registry.Get(call.Name) == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: panic: %v", ErrToolExecution, r)}
			}
		}()
		text, err := e.registry.Dispatch(ctx, call.Name, args)
		if err != nil && !errors.Is(err, ErrUnknownTool) {
			err = fmt.Errorf("%w: %w", ErrToolExecution, err)
		}
		done <- outcome{text: text, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrToolExecution, ctx.Err())
	}
}

// ParseArguments decodes the raw argument text the model produced into a
// JSON object. Blank text is treated as an empty object.
func ParseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArgumentParse, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func failureEnvelope(name string, err error) Result {
	switch {
	case errors.Is(err, ErrArgumentParse):
		return ErrorResult("Failed to parse tool arguments", nil)
	case errors.Is(err, ErrUnknownTool):
		return ErrorResult("Unknown tool: "+name, nil)
	default:
		return ErrorResult("Tool execution failed: "+causeMessage(err), nil)
	}
}

// causeMessage strips the ErrToolExecution prefix so the envelope reads
// "Tool execution failed: <cause>" rather than repeating the sentinel.
func causeMessage(err error) string {
	msg := err.Error()
	prefix := ErrToolExecution.Error() + ": "
	return strings.TrimPrefix(msg, prefix)
}

// envelopeFailed reports whether a tool answered with an error envelope,
// such as a rejected query or an ambiguous topic.
func envelopeFailed(text string) bool {
	r, err := ParseResult(text)
	return err == nil && r.IsError()
}

func failureLabel(err error) string {
	switch {
	case errors.Is(err, ErrArgumentParse):
		return "bad_arguments"
	case errors.Is(err, ErrUnknownTool):
		return "unknown_tool"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
