package config

import (
	"github.com/querybird/querybird/internal/providers"
	"github.com/querybird/querybird/internal/schema"
	"github.com/querybird/querybird/internal/wikipedia"
)

// AgentSettings converts the agent section into loop settings.
func (c *Config) AgentSettings() schema.AgentSettings {
	return schema.NewAgentSettings(
		c.LLM.Model,
		c.Agent.MaxIterations,
		c.Agent.Temperature,
		c.Agent.MaxTokens,
		c.Agent.LLMTimeout.Std(),
	)
}

// MemorySettings converts the memory section.
func (c *Config) MemorySettings() schema.MemorySettings {
	return schema.MemorySettings{
		Threshold:      c.Memory.MaxMessages,
		TailLimit:      c.Memory.TailLimit,
		SummaryWords:   c.Memory.SummaryLength,
		AbortOnSummary: c.Memory.AbortOnSummaryError,
	}
}

// ProviderParams returns the constructor parameters for the LLM provider.
func (c *Config) ProviderParams() providers.Params {
	return providers.Params{
		APIKey:       c.LLM.APIKey,
		APIBase:      c.LLM.APIBase,
		ExtraHeaders: c.LLM.ExtraHeaders,
		DefaultModel: c.LLM.Model,
		ProviderName: c.LLM.Provider,
		APIVersion:   c.LLM.APIVersion,
		Deployment:   c.LLM.Deployment,
		Timeout:      c.LLM.Timeout.Std(),
	}
}

// WikipediaOptions returns the search_wikipedia client options.
func (c *Config) WikipediaOptions() wikipedia.Options {
	return wikipedia.Options{
		APIURL:            c.Wikipedia.APIURL,
		Sentences:         c.Wikipedia.Sentences,
		RequestsPerSecond: c.Wikipedia.RequestsPerSecond,
		Timeout:           c.Wikipedia.Timeout.Std(),
	}
}

// MatchProvider returns the registry entry for the configured LLM, or nil.
func (c *Config) MatchProvider() *providers.ProviderSpec {
	return providers.Resolve(c.LLM.Provider, c.LLM.APIKey, c.LLM.APIBase, c.LLM.Model)
}
