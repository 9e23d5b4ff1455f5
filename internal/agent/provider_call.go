package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/querybird/querybird/internal/metrics"
	"github.com/querybird/querybird/internal/schema"
)

// boundedChat issues one Chat call under timeout (0 = no deadline beyond
// ctx) and records its latency.
func boundedChat(
	ctx context.Context,
	provider schema.LLMProvider,
	timeout time.Duration,
	m *metrics.Metrics,
	conversation schema.Messages,
	definitions []map[string]any,
	opts schema.ChatOptions,
) (schema.LLMResponse, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := provider.Chat(ctx, conversation, definitions, opts)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		m.ObserveLLM("error", time.Since(start), 0, 0)
		if errors.Is(err, context.DeadlineExceeded) && timeout > 0 {
			return schema.LLMResponse{}, fmt.Errorf("LLM request timed out after %s: %w", timeout, err)
		}
		return schema.LLMResponse{}, err
	}
	m.ObserveLLM("ok", time.Since(start), resp.Usage["prompt_tokens"], resp.Usage["completion_tokens"])
	return resp, nil
}
