package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querybird/querybird/internal/dbquery"
	"github.com/querybird/querybird/internal/metrics"
	"github.com/querybird/querybird/internal/schema"
	"github.com/querybird/querybird/internal/wikipedia"
)

// stubTool is a configurable schema.Tool for executor tests.
type stubTool struct {
	name string
	run  func(ctx context.Context, args map[string]any) (string, error)
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub " + s.name }
func (s *stubTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}},"required":["query"],"additionalProperties":false}`)
}
func (s *stubTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return s.run(ctx, args)
}

func echoTool(name string) *stubTool {
	return &stubTool{name: name, run: func(_ context.Context, args map[string]any) (string, error) {
		q, _ := args["query"].(string)
		return SuccessResult(map[string]any{"echo": q}).String(), nil
	}}
}

func decode(t *testing.T, text string) Result {
	t.Helper()
	r, err := ParseResult(text)
	require.NoError(t, err, "payload must be JSON: %s", text)
	return r
}

func TestRegistryDefinitionsPreserveOrder(t *testing.T) {
	reg := NewRegistryBuilder().
		WithTool(echoTool("query_database")).
		WithTool(echoTool("search_wikipedia")).
		WithTool(echoTool("query_database")).
		Build()

	assert.Equal(t, []string{"query_database", "search_wikipedia"}, reg.Names())

	defs := reg.Definitions()
	require.Len(t, defs, 2)
	fn := defs[0]["function"].(map[string]any)
	assert.Equal(t, "function", defs[0]["type"])
	assert.Equal(t, "query_database", fn["name"])
	assert.Equal(t, true, fn["strict"])
	params := fn["parameters"].(map[string]any)
	assert.Equal(t, false, params["additionalProperties"])
	assert.Equal(t, []any{"query"}, params["required"])
}

func TestRegistryDispatchUnknown(t *testing.T) {
	reg := NewRegistryBuilder().Build()
	_, err := reg.Dispatch(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
	assert.Contains(t, err.Error(), "nope")
}

func TestExecutorEnvelopes(t *testing.T) {
	reg := NewRegistryBuilder().
		WithTool(echoTool("echo")).
		WithTool(&stubTool{name: "fails", run: func(context.Context, map[string]any) (string, error) {
			return "", errors.New("connection refused")
		}}).
		WithTool(&stubTool{name: "panics", run: func(context.Context, map[string]any) (string, error) {
			panic("boom")
		}}).
		Build()
	exec := NewExecutor(reg, time.Second, nil)
	ctx := context.Background()

	out := decode(t, exec.Execute(ctx, schema.ToolCallRequest{ID: "1", Name: "echo", RawArguments: `{"query":"hi"}`}))
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "hi", out["echo"])

	out = decode(t, exec.Execute(ctx, schema.ToolCallRequest{ID: "2", Name: "echo", RawArguments: `{"query":`}))
	assert.Equal(t, Result{"error": "Failed to parse tool arguments"}, out)

	out = decode(t, exec.Execute(ctx, schema.ToolCallRequest{ID: "3", Name: "missing", RawArguments: `{}`}))
	assert.Equal(t, Result{"error": "Unknown tool: missing"}, out)

	out = decode(t, exec.Execute(ctx, schema.ToolCallRequest{ID: "4", Name: "fails", RawArguments: `{"query":"x"}`}))
	assert.Equal(t, Result{"error": "Tool execution failed: connection refused"}, out)

	out = decode(t, exec.Execute(ctx, schema.ToolCallRequest{ID: "5", Name: "panics", RawArguments: ""}))
	assert.Equal(t, "Tool execution failed: panic: boom", out["error"])
}

func TestExecutorCountsErrorEnvelopes(t *testing.T) {
	reg := NewRegistryBuilder().
		WithTool(echoTool("echo")).
		WithTool(&stubTool{name: "rejects", run: func(context.Context, map[string]any) (string, error) {
			return ErrorResult("Only SELECT queries are allowed for security reasons.", nil).String(), nil
		}}).
		Build()
	m := metrics.New()
	exec := NewExecutor(reg, time.Second, m)
	ctx := context.Background()

	exec.Execute(ctx, schema.ToolCallRequest{ID: "1", Name: "echo", RawArguments: `{"query":"hi"}`})
	out := decode(t, exec.Execute(ctx, schema.ToolCallRequest{ID: "2", Name: "rejects", RawArguments: `{}`}))
	assert.True(t, out.IsError())

	expected := `
# HELP querybird_tool_calls_total Tool executions by outcome.
# TYPE querybird_tool_calls_total counter
querybird_tool_calls_total{status="ok",tool="echo"} 1
querybird_tool_calls_total{status="tool_error",tool="rejects"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "querybird_tool_calls_total"))
}

func TestExecutorTimeout(t *testing.T) {
	reg := NewRegistryBuilder().
		WithTool(&stubTool{name: "slow", run: func(ctx context.Context, _ map[string]any) (string, error) {
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
			return "late", nil
		}}).
		Build()
	exec := NewExecutor(reg, 20*time.Millisecond, nil)

	out := decode(t, exec.Execute(context.Background(), schema.ToolCallRequest{ID: "1", Name: "slow", RawArguments: "{}"}))
	assert.Contains(t, out["error"], "Tool execution failed")
	assert.Contains(t, out["error"], "deadline exceeded")
}

func TestParseArguments(t *testing.T) {
	args, err := ParseArguments("  ")
	require.NoError(t, err)
	assert.Empty(t, args)

	args, err = ParseArguments("null")
	require.NoError(t, err)
	assert.NotNil(t, args)

	_, err = ParseArguments(`["not","an","object"]`)
	assert.ErrorIs(t, err, ErrArgumentParse)
}

// fakeRunner records whether Query was reached.
type fakeRunner struct {
	queried   bool
	rs        *dbquery.ResultSet
	err       error
	tables    []dbquery.TableColumns
	tablesErr error
}

func (f *fakeRunner) Query(_ context.Context, _ string) (*dbquery.ResultSet, error) {
	f.queried = true
	return f.rs, f.err
}
func (f *fakeRunner) DescribeSchema(context.Context) string {
	return "Database Schema:\n\nemployee\n  - id bigint NOT NULL\n"
}
func (f *fakeRunner) Tables(context.Context) ([]dbquery.TableColumns, error) {
	return f.tables, f.tablesErr
}
func (f *fakeRunner) Ping(context.Context) error { return nil }

func TestQueryDatabaseDescriptionListsSchema(t *testing.T) {
	runner := &fakeRunner{tables: []dbquery.TableColumns{
		{Table: "employee", Columns: []string{"id bigint NOT NULL", "first_name character varying NOT NULL"}},
		{Table: "salary", Columns: []string{"employee_id bigint NOT NULL", "amount bigint NOT NULL"}},
	}}
	desc := NewQueryDatabaseTool(context.Background(), runner).Description()

	assert.True(t, strings.HasPrefix(desc, "Execute a SQL SELECT query"), desc)
	assert.Contains(t, desc, "Database Schema:")
	assert.Contains(t, desc, "\nemployee\n  - id bigint NOT NULL\n")
	assert.Contains(t, desc, "\nsalary\n  - employee_id bigint NOT NULL\n")
}

func TestQueryDatabaseDescriptionWithoutSchema(t *testing.T) {
	runner := &fakeRunner{tablesErr: errors.New("connection refused")}
	desc := NewQueryDatabaseTool(context.Background(), runner).Description()

	assert.Contains(t, desc, "Only SELECT statements are allowed.")
	assert.NotContains(t, desc, "Database Schema:")
}

func TestQueryDatabaseRejectsNonSelect(t *testing.T) {
	runner := &fakeRunner{}
	tool := NewQueryDatabaseTool(context.Background(), runner)

	text, err := tool.Execute(context.Background(), map[string]any{"query": "DROP TABLE employee"})
	require.NoError(t, err)
	out := decode(t, text)
	assert.Equal(t, "Only SELECT queries are allowed for security reasons.", out["error"])
	assert.Contains(t, out["schema"], "Database Schema:")
	assert.False(t, runner.queried, "a rejected query must never reach the database")
}

func TestQueryDatabaseSuccess(t *testing.T) {
	runner := &fakeRunner{rs: &dbquery.ResultSet{
		Columns: []string{"count"},
		Records: [][]any{{int64(300024)}},
	}}
	tool := NewQueryDatabaseTool(context.Background(), runner)

	text, err := tool.Execute(context.Background(), map[string]any{"query": "SELECT count(*) FROM employees.employee"})
	require.NoError(t, err)
	out := decode(t, text)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, float64(1), out["row_count"])
	assert.Equal(t, []any{"count"}, out["columns"])
	assert.Equal(t, `[{"count": 300024}]`, out["data"])
}

func TestQueryDatabaseErrorCarriesSchema(t *testing.T) {
	runner := &fakeRunner{err: errors.New(`relation "employee" does not exist`)}
	tool := NewQueryDatabaseTool(context.Background(), runner)

	text, err := tool.Execute(context.Background(), map[string]any{"query": "select * from employee"})
	require.NoError(t, err)
	out := decode(t, text)
	assert.Equal(t, `relation "employee" does not exist`, out["error"])
	assert.Contains(t, out["schema"], "employee")
	assert.NotContains(t, out, "success")
}

type fakeEncyclopedia struct{ res wikipedia.Result }

func (f fakeEncyclopedia) Lookup(context.Context, string) wikipedia.Result { return f.res }

func TestSearchWikipediaEnvelopes(t *testing.T) {
	ctx := context.Background()
	args := map[string]any{"query": "Python"}

	text, err := NewSearchWikipediaTool(fakeEncyclopedia{wikipedia.Result{
		Kind: wikipedia.KindSuccess, Summary: "S.", URL: "https://en.wikipedia.org/wiki/S",
	}}).Execute(ctx, args)
	require.NoError(t, err)
	assert.Equal(t, Result{"success": true, "summary": "S.", "url": "https://en.wikipedia.org/wiki/S"}, decode(t, text))

	text, err = NewSearchWikipediaTool(fakeEncyclopedia{wikipedia.Result{
		Kind: wikipedia.KindAmbiguous, Options: []string{"a", "b", "c", "d", "e", "f"},
	}}).Execute(ctx, args)
	require.NoError(t, err)
	out := decode(t, text)
	assert.Equal(t, "Disambiguation error", out["error"])
	assert.Len(t, out["options"], 5)
	assert.NotContains(t, out, "summary")

	text, err = NewSearchWikipediaTool(fakeEncyclopedia{wikipedia.Result{Kind: wikipedia.KindNotFound}}).Execute(ctx, args)
	require.NoError(t, err)
	assert.Equal(t, Result{"error": "Page not found", "message": "No Wikipedia article found for: Python"}, decode(t, text))

	text, err = NewSearchWikipediaTool(fakeEncyclopedia{wikipedia.Result{Kind: wikipedia.KindOther, Message: "dial tcp: timeout"}}).Execute(ctx, args)
	require.NoError(t, err)
	assert.Equal(t, Result{"error": "Unexpected error", "message": "dial tcp: timeout"}, decode(t, text))
}
