// Package memory provides the durable, append-only conversation memory:
// exchanges and the summaries that compress them.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/querybird/querybird/internal/schema"
)

// Backend names accepted by Open.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Open returns the store for backend. The caller owns Close. Setup is not
// run; call it once at startup.
func Open(ctx context.Context, backend, dsn string) (schema.MemoryStore, error) {
	switch backend {
	case BackendPostgres, "postgresql", "":
		return NewPostgresStore(ctx, dsn)
	case BackendSQLite:
		return NewSQLiteStore(dsn)
	default:
		return nil, fmt.Errorf("unknown memory backend %q", backend)
	}
}

// encodeToolCalls returns nil for an empty list so the column stays NULL.
func encodeToolCalls(calls []schema.ToolCallRecord) ([]byte, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(calls)
	if err != nil {
		return nil, fmt.Errorf("encode tool calls: %w", err)
	}
	return data, nil
}

func decodeToolCalls(data []byte) ([]schema.ToolCallRecord, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var calls []schema.ToolCallRecord
	if err := json.Unmarshal(data, &calls); err != nil {
		return nil, fmt.Errorf("decode tool calls: %w", err)
	}
	return calls, nil
}

// truncateMicro matches the microsecond precision both backends store.
func truncateMicro(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// reverse flips exchanges in place; tail queries read newest-first.
func reverse(exs []schema.Exchange) {
	for i, j := 0, len(exs)-1; i < j; i, j = i+1, j-1 {
		exs[i], exs[j] = exs[j], exs[i]
	}
}
