// Package config defines the configuration schema for querybird.
//
// Keys use camelCase in both YAML and JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if err2 := json.Unmarshal(b, &n); err2 != nil {
			return fmt.Errorf("duration must be a string like \"30s\": %w", err)
		}
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	return d.parse(s)
}

func (d Duration) MarshalYAML() (any, error) { return d.String(), nil }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// LLMConfig selects and authenticates the chat completions endpoint.
type LLMConfig struct {
	Provider     string            `json:"provider" yaml:"provider"` // openai | azure | openrouter | deepseek | groq | vllm | custom
	APIKey       string            `json:"apiKey" yaml:"apiKey"`
	APIBase      string            `json:"apiBase,omitempty" yaml:"apiBase,omitempty"`
	Model        string            `json:"model" yaml:"model"`
	Deployment   string            `json:"deployment,omitempty" yaml:"deployment,omitempty"`
	APIVersion   string            `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
	ExtraHeaders map[string]string `json:"extraHeaders,omitempty" yaml:"extraHeaders,omitempty"`
	Timeout      Duration          `json:"timeout" yaml:"timeout"` // HTTP client timeout
}

// AgentConfig holds tool-loop behaviour.
type AgentConfig struct {
	MaxIterations int      `json:"maxIterations" yaml:"maxIterations"`
	MaxTokens     int      `json:"maxTokens" yaml:"maxTokens"`
	Temperature   float64  `json:"temperature" yaml:"temperature"`
	LLMTimeout    Duration `json:"llmTimeout" yaml:"llmTimeout"`
	ToolTimeout   Duration `json:"toolTimeout" yaml:"toolTimeout"`
	SystemPrompt  string   `json:"systemPrompt,omitempty" yaml:"systemPrompt,omitempty"`
}

// MemoryConfig configures conversation storage and summarization.
// MaxMessages is the summarization threshold, counted in exchanges.
type MemoryConfig struct {
	Backend             string `json:"backend" yaml:"backend"` // postgres | sqlite
	DSN                 string `json:"dsn" yaml:"dsn"`
	MaxMessages         int    `json:"maxMessages" yaml:"maxMessages"`
	SummaryLength       int    `json:"summaryLength" yaml:"summaryLength"` // words
	TailLimit           int    `json:"tailLimit" yaml:"tailLimit"`
	AbortOnSummaryError bool   `json:"abortOnSummaryError" yaml:"abortOnSummaryError"`
}

// DatabaseConfig points query_database at the employees database.
type DatabaseConfig struct {
	DSN    string `json:"dsn" yaml:"dsn"`
	Schema string `json:"schema" yaml:"schema"`
}

// WikipediaConfig configures the search_wikipedia client.
type WikipediaConfig struct {
	APIURL            string   `json:"apiUrl" yaml:"apiUrl"`
	Sentences         int      `json:"sentences" yaml:"sentences"`
	RequestsPerSecond float64  `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	Timeout           Duration `json:"timeout" yaml:"timeout"`
}

// LogConfig configures the default slog handler.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug | info | warn | error
	Format string `json:"format" yaml:"format"` // text | json
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
}

// MetricsConfig exposes Prometheus metrics when Addr is set.
type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// Config is the root configuration object.
type Config struct {
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Agent     AgentConfig     `json:"agent" yaml:"agent"`
	Memory    MemoryConfig    `json:"memory" yaml:"memory"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Wikipedia WikipediaConfig `json:"wikipedia" yaml:"wikipedia"`
	Log       LogConfig       `json:"log" yaml:"log"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o",
			Timeout:  Duration(120 * time.Second),
		},
		Agent: AgentConfig{
			MaxIterations: 5,
			MaxTokens:     4096,
			Temperature:   0.2,
			LLMTimeout:    Duration(60 * time.Second),
			ToolTimeout:   Duration(30 * time.Second),
		},
		Memory: MemoryConfig{
			Backend:       "postgres",
			MaxMessages:   20,
			SummaryLength: 2000,
			TailLimit:     20,
		},
		Database: DatabaseConfig{
			Schema: "employees",
		},
		Wikipedia: WikipediaConfig{
			APIURL:            "https://en.wikipedia.org/w/api.php",
			Sentences:         3,
			RequestsPerSecond: 5,
			Timeout:           Duration(10 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
