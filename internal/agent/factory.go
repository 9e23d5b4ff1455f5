package agent

import (
	"github.com/querybird/querybird/internal/metrics"
	"github.com/querybird/querybird/internal/schema"
	"github.com/querybird/querybird/internal/tools"
)

// AgentFactory creates MemoryAgent instances. It holds construction-time
// dependencies; created agents own only their session state.
type AgentFactory struct {
	provider    schema.LLMProvider
	settings    schema.AgentSettings
	memSettings schema.MemorySettings
	executor    *tools.Executor
	store       schema.MemoryStore
	prompt      *PromptContext
	metrics     *metrics.Metrics
}

// NewFactory constructs an AgentFactory.
func NewFactory(
	provider schema.LLMProvider,
	settings schema.AgentSettings,
	memSettings schema.MemorySettings,
	executor *tools.Executor,
	store schema.MemoryStore,
	prompt *PromptContext,
	m *metrics.Metrics,
) *AgentFactory {
	return &AgentFactory{
		provider:    provider,
		settings:    settings,
		memSettings: memSettings,
		executor:    executor,
		store:       store,
		prompt:      prompt,
		metrics:     m,
	}
}

// NewLoopRunner creates a bare tool loop with no memory.
func (f *AgentFactory) NewLoopRunner() *LoopRunner {
	return NewLoopRunner(f.provider, f.settings, f.executor, f.metrics)
}

// NewSummarizer creates a Summarizer over the factory's store.
func (f *AgentFactory) NewSummarizer() *Summarizer {
	return NewSummarizer(f.store, f.provider, f.settings.Model, f.memSettings.SummaryWords, f.settings.LLMTimeout, f.metrics)
}

// NewMemoryAgent creates a MemoryAgent for sessionID ("" for a new session).
func (f *AgentFactory) NewMemoryAgent(sessionID string) (*MemoryAgent, error) {
	return NewMemoryAgent(
		sessionID,
		f.NewLoopRunner(),
		f.store,
		f.NewSummarizer(),
		f.prompt,
		f.memSettings,
		f.metrics,
	)
}
