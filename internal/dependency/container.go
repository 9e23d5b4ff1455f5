// Package dependency wires querybird services using go.uber.org/dig.
package dependency

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/dig"

	"github.com/querybird/querybird/internal/agent"
	"github.com/querybird/querybird/internal/config"
	"github.com/querybird/querybird/internal/dbquery"
	"github.com/querybird/querybird/internal/memory"
	"github.com/querybird/querybird/internal/metrics"
	"github.com/querybird/querybird/internal/providers"
	"github.com/querybird/querybird/internal/schema"
	"github.com/querybird/querybird/internal/tools"
	"github.com/querybird/querybird/internal/wikipedia"
)

// Container resolves services on first use and closes what it opened.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	d   *dig.Container
	cfg *config.Config

	invokeMu sync.Mutex

	mu      sync.Mutex
	closers []func() error
}

// LLMModel is a named string type so dig can distinguish the effective
// model name from plain strings.
type LLMModel string

// New registers every constructor. Nothing is opened until a getter asks
// for it, so commands that only read history never dial the LLM.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{d: dig.New(), cfg: cfg}

	ctors := []any{
		func() *config.Config { return cfg },
		func() context.Context { return ctx },
		metrics.New,
		newProvider,
		resolveLLMModel,
		c.newRunner,
		newEncyclopedia,
		newToolRegistry,
		newExecutor,
		c.newMemoryStore,
		newPromptContext,
		newAgentFactory,
	}
	for _, ctor := range ctors {
		if err := c.d.Provide(ctor); err != nil {
			return nil, fmt.Errorf("register service: %w", err)
		}
	}
	return c, nil
}

func (c *Container) Config() *config.Config { return c.cfg }

func (c *Container) Metrics() (*metrics.Metrics, error)        { return resolve[*metrics.Metrics](c) }
func (c *Container) Provider() (schema.LLMProvider, error)     { return resolve[schema.LLMProvider](c) }
func (c *Container) Runner() (dbquery.Runner, error)           { return resolve[dbquery.Runner](c) }
func (c *Container) Store() (schema.MemoryStore, error)        { return resolve[schema.MemoryStore](c) }
func (c *Container) AgentFactory() (*agent.AgentFactory, error) { return resolve[*agent.AgentFactory](c) }

// resolve invokes the container for one service. dig is not safe for
// concurrent use, so invocations are serialized.
func resolve[T any](c *Container) (T, error) {
	c.invokeMu.Lock()
	defer c.invokeMu.Unlock()

	var v T
	err := c.d.Invoke(func(x T) { v = x })
	return v, unwrap(err)
}

// Close releases every pool and database handle opened so far, newest first.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Container) onClose(fn func() error) {
	c.mu.Lock()
	c.closers = append(c.closers, fn)
	c.mu.Unlock()
}

// unwrap strips dig's wrapping so callers see the constructor's own error.
func unwrap(err error) error {
	if err == nil {
		return nil
	}
	return dig.RootCause(err)
}

func newProvider(cfg *config.Config) (schema.LLMProvider, error) {
	spec := cfg.MatchProvider()
	if cfg.LLM.APIKey == "" && (spec == nil || !spec.IsLocal) {
		return nil, fmt.Errorf("no API key configured for model %q: set OPENAI_API_KEY, AZURE_OPENAI_KEY or edit %s",
			cfg.LLM.Model, config.ConfigPath())
	}
	if spec != nil && spec.IsAzure && cfg.LLM.APIBase == "" {
		return nil, fmt.Errorf("azure provider requires an endpoint: set AZURE_OPENAI_ENDPOINT or llm.apiBase")
	}
	return providers.New(cfg.ProviderParams()), nil
}

func resolveLLMModel(cfg *config.Config, p schema.LLMProvider) LLMModel {
	m := cfg.LLM.Model
	if m == "" {
		m = p.DefaultModel()
	}
	return LLMModel(m)
}

func (c *Container) newRunner(ctx context.Context, cfg *config.Config) (dbquery.Runner, error) {
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("no database configured: set DB_CONNECTION or database.dsn in %s", config.ConfigPath())
	}
	r, err := dbquery.NewPgRunner(ctx, cfg.Database.DSN, cfg.Database.Schema)
	if err != nil {
		return nil, err
	}
	c.onClose(func() error { r.Close(); return nil })
	return r, nil
}

func newEncyclopedia(cfg *config.Config) tools.Encyclopedia {
	return wikipedia.NewClient(cfg.WikipediaOptions())
}

func newToolRegistry(ctx context.Context, runner dbquery.Runner, wiki tools.Encyclopedia) *tools.Registry {
	return tools.NewRegistryBuilder().
		WithTool(tools.NewQueryDatabaseTool(ctx, runner)).
		WithTool(tools.NewSearchWikipediaTool(wiki)).
		Build()
}

func newExecutor(cfg *config.Config, reg *tools.Registry, m *metrics.Metrics) *tools.Executor {
	return tools.NewExecutor(reg, cfg.Agent.ToolTimeout.Std(), m)
}

func (c *Container) newMemoryStore(ctx context.Context, cfg *config.Config) (schema.MemoryStore, error) {
	if cfg.Memory.DSN == "" {
		return nil, fmt.Errorf("no memory store configured: set MEMORY_DSN or memory.dsn in %s", config.ConfigPath())
	}
	store, err := memory.Open(ctx, cfg.Memory.Backend, cfg.Memory.DSN)
	if err != nil {
		return nil, err
	}
	c.onClose(store.Close)
	if err := store.Setup(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func newPromptContext(cfg *config.Config) *agent.PromptContext {
	return agent.NewPromptContext(cfg.Agent.SystemPrompt)
}

func newAgentFactory(
	cfg *config.Config,
	p schema.LLMProvider,
	model LLMModel,
	exec *tools.Executor,
	store schema.MemoryStore,
	prompt *agent.PromptContext,
	m *metrics.Metrics,
) *agent.AgentFactory {
	settings := cfg.AgentSettings()
	settings.Model = string(model)
	return agent.NewFactory(p, settings, cfg.MemorySettings(), exec, store, prompt, m)
}
