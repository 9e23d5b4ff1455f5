package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/querybird/querybird/internal/schema"
)

var pgSetup = []string{
	`CREATE TABLE IF NOT EXISTS conversations (
		id SERIAL PRIMARY KEY,
		session_id UUID NOT NULL,
		user_input TEXT NOT NULL,
		agent_response TEXT NOT NULL,
		tool_calls JSONB,
		timestamp TIMESTAMPTZ DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS conversation_summaries (
		id SERIAL PRIMARY KEY,
		session_id UUID NOT NULL,
		summary TEXT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		message_count INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_session_ts ON conversations (session_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_summaries_session_end ON conversation_summaries (session_id, end_time)`,
}

// The inserted timestamp is never earlier than one microsecond past the
// session's newest exchange, so "strictly after end_time" stays exact even
// when two inserts land in the same clock tick.
const pgInsertExchange = `
INSERT INTO conversations (session_id, user_input, agent_response, tool_calls, timestamp)
VALUES ($1, $2, $3, $4, GREATEST($5::timestamptz, (
	SELECT MAX(timestamp) + INTERVAL '1 microsecond' FROM conversations WHERE session_id = $1
)))
RETURNING id, timestamp`

const pgLatestSummary = `
SELECT id, summary, start_time, end_time, message_count
FROM conversation_summaries
WHERE session_id = $1
ORDER BY end_time DESC, id DESC
LIMIT 1`

const pgExchangeColumns = `SELECT id, user_input, agent_response, tool_calls, timestamp FROM conversations `

// PostgresStore is the production MemoryStore, laid out as the
// conversations and conversation_summaries tables.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore connects to dsn and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse memory dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("open memory pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping memory database: %w", err)
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Setup creates both tables and their indexes if absent.
func (s *PostgresStore) Setup(ctx context.Context) error {
	for _, stmt := range pgSetup {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("setup memory schema: %w", err)
		}
	}
	return nil
}

func parseSession(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session id %q: %w", id, err)
	}
	return u, nil
}

func (s *PostgresStore) RecordExchange(ctx context.Context, ex *schema.Exchange) error {
	sid, err := parseSession(ex.SessionID)
	if err != nil {
		return err
	}
	calls, err := encodeToolCalls(ex.ToolCalls)
	if err != nil {
		return err
	}
	row := s.pool.QueryRow(ctx, pgInsertExchange,
		sid, ex.UserInput, ex.AgentResponse, calls, truncateMicro(s.now()))
	if err := row.Scan(&ex.ID, &ex.Timestamp); err != nil {
		return fmt.Errorf("record exchange: %w", err)
	}
	ex.Timestamp = ex.Timestamp.UTC()
	return nil
}

func (s *PostgresStore) RecordSummary(ctx context.Context, rec *schema.SummaryRecord) error {
	sid, err := parseSession(rec.SessionID)
	if err != nil {
		return err
	}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO conversation_summaries (session_id, summary, start_time, end_time, message_count)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		sid, rec.Summary, rec.StartTime, rec.EndTime, rec.MessageCount).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("record summary: %w", err)
	}
	return nil
}

func (s *PostgresStore) latestSummary(ctx context.Context, sid uuid.UUID) (*schema.SummaryRecord, error) {
	rec := &schema.SummaryRecord{SessionID: sid.String()}
	err := s.pool.QueryRow(ctx, pgLatestSummary, sid).
		Scan(&rec.ID, &rec.Summary, &rec.StartTime, &rec.EndTime, &rec.MessageCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest summary: %w", err)
	}
	rec.StartTime = rec.StartTime.UTC()
	rec.EndTime = rec.EndTime.UTC()
	return rec, nil
}

func (s *PostgresStore) LatestContext(ctx context.Context, sessionID string, tailLimit int) (schema.MemoryContext, error) {
	sid, err := parseSession(sessionID)
	if err != nil {
		return schema.MemoryContext{}, err
	}
	summary, err := s.latestSummary(ctx, sid)
	if err != nil {
		return schema.MemoryContext{}, err
	}

	if summary != nil {
		exs, err := s.listExchanges(ctx, sid,
			`WHERE session_id = $1 AND timestamp > $2 ORDER BY timestamp ASC`, sid, summary.EndTime)
		if err != nil {
			return schema.MemoryContext{}, err
		}
		return schema.MemoryContext{Summary: summary, Exchanges: exs}, nil
	}

	if tailLimit <= 0 {
		exs, err := s.listExchanges(ctx, sid, `WHERE session_id = $1 ORDER BY timestamp ASC`, sid)
		return schema.MemoryContext{Exchanges: exs}, err
	}
	exs, err := s.listExchanges(ctx, sid,
		`WHERE session_id = $1 ORDER BY timestamp DESC LIMIT $2`, sid, tailLimit)
	if err != nil {
		return schema.MemoryContext{}, err
	}
	reverse(exs)
	return schema.MemoryContext{Exchanges: exs}, nil
}

func (s *PostgresStore) PendingCount(ctx context.Context, sessionID string) (int, error) {
	sid, err := parseSession(sessionID)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM conversations
		WHERE session_id = $1 AND timestamp > (
			SELECT COALESCE(MAX(end_time), '1970-01-01'::timestamptz)
			FROM conversation_summaries WHERE session_id = $1
		)`, sid).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending exchanges: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) PendingExchanges(ctx context.Context, sessionID string) ([]schema.Exchange, error) {
	sid, err := parseSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.listExchanges(ctx, sid, `
		WHERE session_id = $1 AND timestamp > (
			SELECT COALESCE(MAX(end_time), '1970-01-01'::timestamptz)
			FROM conversation_summaries WHERE session_id = $1
		)
		ORDER BY timestamp ASC`, sid)
}

func (s *PostgresStore) ListExchanges(ctx context.Context, sessionID string) ([]schema.Exchange, error) {
	sid, err := parseSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.listExchanges(ctx, sid, `WHERE session_id = $1 ORDER BY timestamp ASC`, sid)
}

func (s *PostgresStore) ListSummaries(ctx context.Context, sessionID string) ([]schema.SummaryRecord, error) {
	sid, err := parseSession(sessionID)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, summary, start_time, end_time, message_count
		FROM conversation_summaries WHERE session_id = $1
		ORDER BY end_time ASC, id ASC`, sid)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var out []schema.SummaryRecord
	for rows.Next() {
		rec := schema.SummaryRecord{SessionID: sid.String()}
		if err := rows.Scan(&rec.ID, &rec.Summary, &rec.StartTime, &rec.EndTime, &rec.MessageCount); err != nil {
			return nil, err
		}
		rec.StartTime = rec.StartTime.UTC()
		rec.EndTime = rec.EndTime.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) listExchanges(ctx context.Context, sid uuid.UUID, where string, args ...any) ([]schema.Exchange, error) {
	rows, err := s.pool.Query(ctx, pgExchangeColumns+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	defer rows.Close()

	var out []schema.Exchange
	for rows.Next() {
		ex := schema.Exchange{SessionID: sid.String()}
		var calls []byte
		if err := rows.Scan(&ex.ID, &ex.UserInput, &ex.AgentResponse, &calls, &ex.Timestamp); err != nil {
			return nil, err
		}
		if ex.ToolCalls, err = decodeToolCalls(calls); err != nil {
			return nil, err
		}
		ex.Timestamp = ex.Timestamp.UTC()
		out = append(out, ex)
	}
	return out, rows.Err()
}
