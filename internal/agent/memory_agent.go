package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/querybird/querybird/internal/metrics"
	"github.com/querybird/querybird/internal/schema"
)

// MemoryAgent answers queries for one session. It composes a LoopRunner
// with a MemoryStore and a Summarizer: each query first compacts old
// history if due, replays the remaining context, runs the tool loop and
// records the finished exchange.
//
// A MemoryAgent serves one caller at a time; concurrent Ask calls are
// serialized.
type MemoryAgent struct {
	sessionID  string
	runner     *LoopRunner
	store      schema.MemoryStore
	summarizer *Summarizer
	prompt     *PromptContext
	settings   schema.MemorySettings
	metrics    *metrics.Metrics

	mu      sync.Mutex
	history schema.Messages
}

// NewMemoryAgent creates a MemoryAgent. An empty sessionID starts a new
// session with a generated id; a non-empty one must be a UUID and resumes
// that session's stored history.
func NewMemoryAgent(
	sessionID string,
	runner *LoopRunner,
	store schema.MemoryStore,
	summarizer *Summarizer,
	prompt *PromptContext,
	settings schema.MemorySettings,
	m *metrics.Metrics,
) (*MemoryAgent, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if _, err := uuid.Parse(sessionID); err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", sessionID, err)
	}
	return &MemoryAgent{
		sessionID:  sessionID,
		runner:     runner,
		store:      store,
		summarizer: summarizer,
		prompt:     prompt,
		settings:   settings,
		metrics:    m,
		history:    schema.NewMessages(),
	}, nil
}

// SessionID returns the id scoping this agent's exchanges and summaries.
func (a *MemoryAgent) SessionID() string { return a.sessionID }

// History returns a copy of the conversation sent for the latest query,
// including its final assistant message.
func (a *MemoryAgent) History() schema.Messages {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history.Clone()
}

// Ask answers input. It always returns text: provider failures and the
// iteration limit surface as answer text, and storage failures are logged.
func (a *MemoryAgent) Ask(ctx context.Context, input string, onProgress func(string)) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	log := slog.With("session", a.sessionID)

	if _, err := a.summarizer.MaybeSummarize(ctx, a.sessionID, a.settings.Threshold); err != nil {
		if a.settings.AbortOnSummary {
			answer := "Error processing query: " + err.Error()
			a.history = schema.NewMessages(schema.NewUserMessage(input), schema.NewAssistantMessage(answer, nil))
			a.record(ctx, log, input, answer, nil)
			return answer
		}
		log.Warn("summarization failed, continuing with unsummarized context", "err", err)
	}

	mc, err := a.store.LatestContext(ctx, a.sessionID, a.settings.TailLimit)
	if err != nil {
		log.Warn("failed to load memory context", "err", err)
		mc = schema.MemoryContext{}
	}

	conversation := a.prompt.BuildMessages(mc, input)
	res := a.runner.Run(ctx, &conversation, onProgress)
	a.history = conversation

	if res.Err != nil {
		log.Error("query failed", "err", res.Err)
	}
	a.record(ctx, log, input, res.Answer, res.ToolCalls)

	return res.Answer
}

func (a *MemoryAgent) record(ctx context.Context, log *slog.Logger, input, answer string, calls []schema.ToolCallRecord) {
	ex := &schema.Exchange{
		SessionID:     a.sessionID,
		UserInput:     input,
		AgentResponse: answer,
		ToolCalls:     calls,
	}
	if err := a.store.RecordExchange(ctx, ex); err != nil {
		a.metrics.IncExchange("error")
		log.Error("failed to record exchange", "err", err)
		return
	}
	a.metrics.IncExchange("ok")
}
