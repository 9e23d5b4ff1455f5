package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/querybird/querybird/internal/metrics"
	"github.com/querybird/querybird/internal/schema"
)

// DefaultSummaryWords bounds the length of a generated summary.
const DefaultSummaryWords = 2000

// ErrSummarization marks a failure to produce or store a summary.
var ErrSummarization = errors.New("summarization failed")

// Summarizer compresses a session's pending exchanges into one
// SummaryRecord once enough of them accumulate. Prior records are never
// touched. Failures are returned, never retried.
type Summarizer struct {
	store    schema.MemoryStore
	provider schema.LLMProvider
	model    string
	words    int
	timeout  time.Duration
	metrics  *metrics.Metrics
}

// NewSummarizer returns a Summarizer. words <= 0 selects DefaultSummaryWords;
// timeout bounds the LLM request (0 = none).
func NewSummarizer(store schema.MemoryStore, provider schema.LLMProvider, model string, words int, timeout time.Duration, m *metrics.Metrics) *Summarizer {
	if words <= 0 {
		words = DefaultSummaryWords
	}
	return &Summarizer{
		store:    store,
		provider: provider,
		model:    model,
		words:    words,
		timeout:  timeout,
		metrics:  m,
	}
}

// MaybeSummarize summarizes the pending exchanges of sessionID when there
// are at least threshold of them, returning the new record. Below the
// threshold it returns (nil, nil). A non-positive threshold disables it.
func (s *Summarizer) MaybeSummarize(ctx context.Context, sessionID string, threshold int) (*schema.SummaryRecord, error) {
	if threshold <= 0 {
		return nil, nil
	}

	count, err := s.store.PendingCount(ctx, sessionID)
	if err != nil {
		return nil, s.fail(fmt.Errorf("count pending: %w", err))
	}
	if count < threshold {
		return nil, nil
	}

	pending, err := s.store.PendingExchanges(ctx, sessionID)
	if err != nil {
		return nil, s.fail(fmt.Errorf("load pending: %w", err))
	}
	if len(pending) == 0 {
		return nil, nil
	}

	text, err := s.summarize(ctx, pending)
	if err != nil {
		return nil, s.fail(err)
	}

	rec := &schema.SummaryRecord{
		SessionID:    sessionID,
		Summary:      text,
		StartTime:    pending[0].Timestamp,
		EndTime:      pending[len(pending)-1].Timestamp,
		MessageCount: len(pending),
	}
	if err := s.store.RecordSummary(ctx, rec); err != nil {
		return nil, s.fail(fmt.Errorf("store summary: %w", err))
	}

	s.metrics.IncSummary("ok")
	slog.Info("conversation summarized", "session", sessionID, "exchanges", rec.MessageCount)
	return rec, nil
}

func (s *Summarizer) fail(err error) error {
	s.metrics.IncSummary("error")
	return fmt.Errorf("%w: %w", ErrSummarization, err)
}

// summarize asks the LLM for a bounded summary of exchanges.
func (s *Summarizer) summarize(ctx context.Context, exchanges []schema.Exchange) (string, error) {
	prompt := fmt.Sprintf(
		"Summarize the following conversation in less than %d words.\n"+
			"Focus on key points, decisions, and important information discovered through tool usage.\n\n"+
			"Conversation:\n%s",
		s.words,
		formatExchangesForPrompt(exchanges),
	)

	messages := schema.NewMessages(schema.NewUserMessage(prompt))
	resp, err := boundedChat(ctx, s.provider, s.timeout, s.metrics, messages, nil,
		schema.ChatOptions{Model: s.model, Temperature: 0.3})
	if err != nil {
		return "", fmt.Errorf("summary LLM call: %w", err)
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", errors.New("summary LLM call returned no text")
	}
	return text, nil
}

// formatExchangesForPrompt renders exchanges into labelled text lines
// suitable for inclusion in the summary prompt.
func formatExchangesForPrompt(exchanges []schema.Exchange) string {
	var lines []string
	for _, ex := range exchanges {
		ts := ex.Timestamp.UTC().Format("2006-01-02T15:04")
		lines = append(lines, fmt.Sprintf("[%s] USER: %s", ts, ex.UserInput))

		toolsStr := ""
		if len(ex.ToolCalls) > 0 {
			names := make([]string, 0, len(ex.ToolCalls))
			for _, tc := range ex.ToolCalls {
				names = append(names, tc.Tool)
			}
			toolsStr = " [tools: " + strings.Join(names, ", ") + "]"
			for _, tc := range ex.ToolCalls {
				lines = append(lines, fmt.Sprintf("[%s] TOOL %s %s: %s", ts, tc.Tool, tc.Arguments, tc.Result))
			}
		}
		lines = append(lines, fmt.Sprintf("[%s] ASSISTANT%s: %s", ts, toolsStr, ex.AgentResponse))
	}
	return strings.Join(lines, "\n")
}
