package schema

import "time"

type AgentSettings struct {
	Model       string
	MaxIter     int
	Temperature float64
	MaxTokens   int
	LLMTimeout  time.Duration // 0 disables the per-request deadline
}

func NewAgentSettings(model string, maxIter int, temperature float64, maxTokens int, llmTimeout time.Duration) AgentSettings {
	return AgentSettings{
		Model:       model,
		MaxIter:     maxIter,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		LLMTimeout:  llmTimeout,
	}
}

// MemorySettings controls how much history is replayed and when it is
// compressed. Threshold counts exchanges, not role-tagged messages.
type MemorySettings struct {
	Threshold      int
	TailLimit      int
	SummaryWords   int
	AbortOnSummary bool // true: a failed summary turns into the answer
}
