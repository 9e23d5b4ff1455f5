package cmdutils

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/querybird/querybird/internal/schema"
)

const logo = "🐦"

func PrintResponse(text string) {
	FprintResponse(os.Stdout, text)
}

// FprintResponse writes an agent answer under the logo header.
func FprintResponse(w io.Writer, text string) {
	if text == "" {
		return
	}

	fmt.Fprintf(w, "\n%s querybird\n%s\n\n", logo, text)
}

// PrintProgress writes a dimmed progress line such as a tool hint.
func PrintProgress(text string) {
	if text == "" {
		return
	}
	fmt.Printf("  ↳ %s\n", text)
}

// FprintHistory renders a session's summaries and exchanges for audit.
func FprintHistory(w io.Writer, summaries []schema.SummaryRecord, exchanges []schema.Exchange) {
	for _, s := range summaries {
		fmt.Fprintf(w, "── summary #%d (%d exchanges, %s → %s)\n%s\n\n",
			s.ID, s.MessageCount,
			s.StartTime.Format("2006-01-02 15:04:05"), s.EndTime.Format("2006-01-02 15:04:05"),
			strings.TrimSpace(s.Summary))
	}
	for _, ex := range exchanges {
		fmt.Fprintf(w, "[%s] User: %s\n", ex.Timestamp.Format("2006-01-02 15:04:05"), ex.UserInput)
		for _, tc := range ex.ToolCalls {
			fmt.Fprintf(w, "    tool %s %s\n", tc.Tool, tc.Arguments)
		}
		fmt.Fprintf(w, "Assistant: %s\n\n", ex.AgentResponse)
	}
}
