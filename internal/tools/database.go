package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/querybird/querybird/internal/dbquery"
)

const queryDatabaseDescription = "Execute a SQL SELECT query against the employees PostgreSQL database. " +
	"Tables live in the employees schema; qualify them as employees.<table>. " +
	"Only SELECT statements are allowed."

// QueryDatabaseTool runs read-only SQL against the employees database.
type QueryDatabaseTool struct {
	runner      dbquery.Runner
	description string
}

// NewQueryDatabaseTool creates a QueryDatabaseTool over runner. The table
// and column listing is loaded once and embedded in the tool description
// so the model sees the schema before its first query.
func NewQueryDatabaseTool(ctx context.Context, runner dbquery.Runner) *QueryDatabaseTool {
	desc := queryDatabaseDescription
	tables, err := runner.Tables(ctx)
	switch {
	case err != nil:
		slog.Warn("load schema for tool description failed", "err", err)
	case len(tables) > 0:
		desc += "\n\n" + dbquery.FormatSchema(tables)
	}
	return &QueryDatabaseTool{runner: runner, description: desc}
}

func (t *QueryDatabaseTool) Name() string { return string(ToolQueryDatabase) }

func (t *QueryDatabaseTool) Description() string { return t.description }

func (t *QueryDatabaseTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "The SQL SELECT query to execute. Must start with SELECT and must not modify data. Fully qualify table names with the schema, e.g. employees.employee instead of employee."
			}
		},
		"required": ["query"],
		"additionalProperties": false
	}`)
}

// Execute never returns an error for policy or database failures; those
// become error envelopes carrying the schema description so the model can
// correct its next query.
func (t *QueryDatabaseTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	query, ok := params["query"].(string)
	if !ok {
		return "", fmt.Errorf("query must be a string")
	}

	if !dbquery.IsSelect(query) {
		return ErrorResult(
			"Only SELECT queries are allowed for security reasons.",
			map[string]any{"schema": t.runner.DescribeSchema(ctx)},
		).String(), nil
	}

	rs, err := t.runner.Query(ctx, query)
	if err != nil {
		return ErrorResult(err.Error(), map[string]any{
			"schema": t.runner.DescribeSchema(ctx),
		}).String(), nil
	}

	return SuccessResult(map[string]any{
		"data":      rs.Stringify(),
		"row_count": len(rs.Records),
		"columns":   rs.ColumnNames(),
	}).String(), nil
}
