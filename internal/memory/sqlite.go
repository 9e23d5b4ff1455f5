package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/querybird/querybird/internal/schema"
)

// SQLite keeps timestamps as INTEGER unix microseconds so ordering and the
// strictly-after comparisons are exact.
var sqliteSetup = []string{
	`CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		user_input TEXT NOT NULL,
		agent_response TEXT NOT NULL,
		tool_calls TEXT,
		timestamp INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS conversation_summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		summary TEXT NOT NULL,
		start_time INTEGER NOT NULL,
		end_time INTEGER NOT NULL,
		message_count INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_session_ts ON conversations (session_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_summaries_session_end ON conversation_summaries (session_id, end_time)`,
}

const sqliteInsertExchange = `
INSERT INTO conversations (session_id, user_input, agent_response, tool_calls, timestamp)
VALUES (?1, ?2, ?3, ?4, MAX(?5, COALESCE(
	(SELECT MAX(timestamp) + 1 FROM conversations WHERE session_id = ?1), 0)))
RETURNING id, timestamp`

const sqlitePendingWhere = `
WHERE session_id = ?1 AND timestamp > (
	SELECT COALESCE(MAX(end_time), 0) FROM conversation_summaries WHERE session_id = ?1
)`

const sqliteExchangeColumns = `SELECT id, user_input, agent_response, tool_calls, timestamp FROM conversations `

// SQLiteStore is an embedded MemoryStore for local use and tests. It keeps
// the same logical layout as PostgresStore.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens the database at path (":memory:" for a private
// in-memory database).
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite memory store needs a path")
	}
	dsn := path
	if path != ":memory:" && !strings.Contains(path, "?") {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: ":memory:" databases are per-connection and writers
	// serialize anyway.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Setup(ctx context.Context) error {
	for _, stmt := range sqliteSetup {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("setup memory schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) RecordExchange(ctx context.Context, ex *schema.Exchange) error {
	if ex.SessionID == "" {
		return errors.New("record exchange: empty session id")
	}
	calls, err := encodeToolCalls(ex.ToolCalls)
	if err != nil {
		return err
	}
	var callsArg any
	if calls != nil {
		callsArg = string(calls)
	}
	var micros int64
	err = s.db.QueryRowContext(ctx, sqliteInsertExchange,
		ex.SessionID, ex.UserInput, ex.AgentResponse, callsArg, s.now().UnixMicro()).
		Scan(&ex.ID, &micros)
	if err != nil {
		return fmt.Errorf("record exchange: %w", err)
	}
	ex.Timestamp = time.UnixMicro(micros).UTC()
	return nil
}

func (s *SQLiteStore) RecordSummary(ctx context.Context, rec *schema.SummaryRecord) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_summaries (session_id, summary, start_time, end_time, message_count)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Summary, rec.StartTime.UnixMicro(), rec.EndTime.UnixMicro(), rec.MessageCount)
	if err != nil {
		return fmt.Errorf("record summary: %w", err)
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("record summary: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LatestContext(ctx context.Context, sessionID string, tailLimit int) (schema.MemoryContext, error) {
	summary, err := s.latestSummary(ctx, sessionID)
	if err != nil {
		return schema.MemoryContext{}, err
	}

	if summary != nil {
		exs, err := s.listExchanges(ctx, sessionID,
			`WHERE session_id = ? AND timestamp > ? ORDER BY timestamp ASC`,
			sessionID, summary.EndTime.UnixMicro())
		if err != nil {
			return schema.MemoryContext{}, err
		}
		return schema.MemoryContext{Summary: summary, Exchanges: exs}, nil
	}

	if tailLimit <= 0 {
		exs, err := s.ListExchanges(ctx, sessionID)
		return schema.MemoryContext{Exchanges: exs}, err
	}
	exs, err := s.listExchanges(ctx, sessionID,
		`WHERE session_id = ? ORDER BY timestamp DESC LIMIT ?`, sessionID, tailLimit)
	if err != nil {
		return schema.MemoryContext{}, err
	}
	reverse(exs)
	return schema.MemoryContext{Exchanges: exs}, nil
}

func (s *SQLiteStore) PendingCount(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations `+sqlitePendingWhere, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending exchanges: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) PendingExchanges(ctx context.Context, sessionID string) ([]schema.Exchange, error) {
	return s.listExchanges(ctx, sessionID, sqlitePendingWhere+` ORDER BY timestamp ASC`, sessionID)
}

func (s *SQLiteStore) ListExchanges(ctx context.Context, sessionID string) ([]schema.Exchange, error) {
	return s.listExchanges(ctx, sessionID, `WHERE session_id = ? ORDER BY timestamp ASC`, sessionID)
}

func (s *SQLiteStore) ListSummaries(ctx context.Context, sessionID string) ([]schema.SummaryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, summary, start_time, end_time, message_count
		FROM conversation_summaries WHERE session_id = ?
		ORDER BY end_time ASC, id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var out []schema.SummaryRecord
	for rows.Next() {
		rec, err := scanSummary(rows, sessionID)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) latestSummary(ctx context.Context, sessionID string) (*schema.SummaryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, summary, start_time, end_time, message_count
		FROM conversation_summaries WHERE session_id = ?
		ORDER BY end_time DESC, id DESC LIMIT 1`, sessionID)
	rec, err := scanSummary(row, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest summary: %w", err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner, sessionID string) (*schema.SummaryRecord, error) {
	rec := &schema.SummaryRecord{SessionID: sessionID}
	var start, end int64
	if err := row.Scan(&rec.ID, &rec.Summary, &start, &end, &rec.MessageCount); err != nil {
		return nil, err
	}
	rec.StartTime = time.UnixMicro(start).UTC()
	rec.EndTime = time.UnixMicro(end).UTC()
	return rec, nil
}

func (s *SQLiteStore) listExchanges(ctx context.Context, sessionID, where string, args ...any) ([]schema.Exchange, error) {
	rows, err := s.db.QueryContext(ctx, sqliteExchangeColumns+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	defer rows.Close()

	var out []schema.Exchange
	for rows.Next() {
		ex := schema.Exchange{SessionID: sessionID}
		var calls sql.NullString
		var micros int64
		if err := rows.Scan(&ex.ID, &ex.UserInput, &ex.AgentResponse, &calls, &micros); err != nil {
			return nil, err
		}
		if calls.Valid {
			if ex.ToolCalls, err = decodeToolCalls([]byte(calls.String)); err != nil {
				return nil, err
			}
		}
		ex.Timestamp = time.UnixMicro(micros).UTC()
		out = append(out, ex)
	}
	return out, rows.Err()
}
