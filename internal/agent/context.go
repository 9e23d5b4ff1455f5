package agent

import (
	"encoding/json"
	"strings"

	"github.com/querybird/querybird/internal/schema"
)

// DefaultSystemPrompt is used when no system prompt is configured.
const DefaultSystemPrompt = `You are a helpful AI assistant with access to a database and Wikipedia. Follow these rules:
1. When asked about data, always check the database first
2. For general knowledge questions, use Wikipedia
3. If you're unsure about data, query the database to verify
4. Always mention your source of information
5. If a tool returns an error, explain the error to the user clearly`

// PromptContext assembles the message list for one query: the system
// prompt, the replayed memory context and the user's message.
type PromptContext struct {
	systemPrompt string
}

// NewPromptContext returns a PromptContext; an empty systemPrompt selects
// DefaultSystemPrompt.
func NewPromptContext(systemPrompt string) *PromptContext {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &PromptContext{systemPrompt: systemPrompt}
}

// BuildMessages builds the complete message list for an LLM call. The
// memory context becomes a second system message only when non-empty.
func (pc *PromptContext) BuildMessages(mc schema.MemoryContext, userInput string) schema.Messages {
	messages := schema.NewMessages()
	messages.AddSystem(pc.systemPrompt)
	if text := FormatMemoryContext(mc); text != "" {
		messages.AddSystem("Previous conversation context:\n" + text)
	}
	messages.AddUser(userInput)
	return messages
}

// FormatMemoryContext renders a memory context as plain text: the summary
// line first, then each exchange oldest-first.
func FormatMemoryContext(mc schema.MemoryContext) string {
	var lines []string
	if mc.Summary != nil {
		lines = append(lines, "Previous conversation summary: "+mc.Summary.Summary)
	}
	for _, ex := range mc.Exchanges {
		lines = append(lines, "User: "+ex.UserInput)
		if len(ex.ToolCalls) > 0 {
			lines = append(lines, "Tool Usage: "+formatToolCalls(ex.ToolCalls))
		}
		lines = append(lines, "Assistant: "+ex.AgentResponse)
	}
	return strings.Join(lines, "\n")
}

func formatToolCalls(calls []schema.ToolCallRecord) string {
	data, err := json.Marshal(calls)
	if err != nil {
		return ""
	}
	return string(data)
}
