package dbquery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaQuery = `
SELECT
	t.table_name,
	array_agg(
		c.column_name || ' ' || c.data_type ||
		CASE WHEN c.is_nullable = 'NO' THEN ' NOT NULL' ELSE '' END
		ORDER BY c.ordinal_position
	) AS columns
FROM information_schema.tables t
JOIN information_schema.columns c
	ON c.table_name = t.table_name AND c.table_schema = t.table_schema
WHERE t.table_schema = $1
	AND t.table_type = 'BASE TABLE'
GROUP BY t.table_name
ORDER BY t.table_name`

// PgRunner is a Runner backed by a pgx connection pool.
type PgRunner struct {
	pool   *pgxpool.Pool
	schema string
}

// NewPgRunner connects to dsn and verifies the connection.
func NewPgRunner(ctx context.Context, dsn, schemaName string) (*PgRunner, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if schemaName == "" {
		schemaName = DefaultSchema
	}
	return &PgRunner{pool: pool, schema: schemaName}, nil
}

// Close releases the pool.
func (r *PgRunner) Close() {
	r.pool.Close()
}

func (r *PgRunner) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Query runs sql inside a read-only transaction. Callers are expected to
// have applied IsSelect already; the transaction mode stops anything that
// slips past the prefix check (e.g. a data-modifying CTE).
func (r *PgRunner) Query(ctx context.Context, sql string) (*ResultSet, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	rs := &ResultSet{Columns: make([]string, len(fields))}
	for i, f := range fields {
		rs.Columns[i] = f.Name
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		rs.Records = append(rs.Records, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

// DescribeSchema lists the base tables of the configured schema with their
// columns.
func (r *PgRunner) DescribeSchema(ctx context.Context) string {
	tables, err := r.Tables(ctx)
	if err != nil {
		slog.Warn("describe schema failed", "schema", r.schema, "err", err)
		return "Error fetching schema: " + err.Error()
	}
	return FormatSchema(tables)
}

// Tables returns the base tables of the configured schema with their
// column definitions, ordered by table name.
func (r *PgRunner) Tables(ctx context.Context) ([]TableColumns, error) {
	rows, err := r.pool.Query(ctx, schemaQuery, r.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TableColumns
	for rows.Next() {
		var t TableColumns
		if err := rows.Scan(&t.Table, &t.Columns); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
