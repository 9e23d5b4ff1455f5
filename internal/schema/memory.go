package schema

import (
	"context"
	"time"
)

// ToolCallRecord is the per-call metadata persisted with an exchange.
type ToolCallRecord struct {
	Tool      string `json:"tool"`
	Arguments string `json:"arguments"`
	Result    string `json:"result"`
}

// Exchange is one completed user query and its final answer.
// Exchanges are immutable once recorded.
type Exchange struct {
	ID            int64
	SessionID     string
	UserInput     string
	AgentResponse string
	ToolCalls     []ToolCallRecord // nil when no tool ran
	Timestamp     time.Time
}

// SummaryRecord compresses a contiguous run of exchanges. StartTime and
// EndTime are the timestamps of the first and last exchange it covers.
type SummaryRecord struct {
	ID           int64
	SessionID    string
	Summary      string
	StartTime    time.Time
	EndTime      time.Time
	MessageCount int
}

// MemoryContext is what a session replays into the next query: the most
// recent summary, if any, plus the exchanges that follow it (oldest first).
type MemoryContext struct {
	Summary   *SummaryRecord
	Exchanges []Exchange
}

// Empty reports whether there is nothing to replay.
func (c MemoryContext) Empty() bool {
	return c.Summary == nil && len(c.Exchanges) == 0
}

// MemoryStore is the durable, append-only record of exchanges and
// summaries, keyed by session id. Every method is one atomic unit.
type MemoryStore interface {
	// Setup creates the tables if absent. Safe to call on every start.
	Setup(ctx context.Context) error
	// RecordExchange appends ex, assigning ID and Timestamp.
	RecordExchange(ctx context.Context, ex *Exchange) error
	// RecordSummary appends rec, assigning ID.
	RecordSummary(ctx context.Context, rec *SummaryRecord) error
	// LatestContext returns the newest summary plus every exchange strictly
	// after its EndTime; without a summary, the tailLimit newest exchanges.
	LatestContext(ctx context.Context, sessionID string, tailLimit int) (MemoryContext, error)
	// PendingCount counts exchanges strictly after the newest summary.
	PendingCount(ctx context.Context, sessionID string) (int, error)
	// PendingExchanges returns those exchanges, oldest first.
	PendingExchanges(ctx context.Context, sessionID string) ([]Exchange, error)
	// ListSummaries returns every summary of the session, oldest first.
	ListSummaries(ctx context.Context, sessionID string) ([]SummaryRecord, error)
	// ListExchanges returns every exchange of the session, oldest first.
	ListExchanges(ctx context.Context, sessionID string) ([]Exchange, error)
	Ping(ctx context.Context) error
	Close() error
}
