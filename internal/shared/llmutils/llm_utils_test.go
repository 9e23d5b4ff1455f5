package llmutils

import (
	"testing"

	"github.com/querybird/querybird/internal/schema"
)

func TestToolHint(t *testing.T) {
	calls := []schema.ToolCallRequest{
		{Name: "search_wikipedia", RawArguments: `{"query":"Alan Turing"}`},
		{Name: "query_database", RawArguments: `{"sql":"SELECT 1"}`},
		{Name: "query_database", RawArguments: `not json`},
	}
	got := ToolHint(calls)
	want := `search_wikipedia("Alan Turing"), query_database("SELECT 1"), query_database`
	if got != want {
		t.Errorf("ToolHint = %q, want %q", got, want)
	}
}

func TestStripThink(t *testing.T) {
	if got := StripThink("<think>plan</think>Let me check."); got != "Let me check." {
		t.Errorf("StripThink = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("abc", 3); got != "abc" {
		t.Errorf("Truncate = %q", got)
	}
}
