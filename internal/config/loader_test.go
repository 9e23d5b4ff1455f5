package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func writeRaw(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "AZURE_OPENAI_KEY", "AZURE_OPENAI_ENDPOINT",
		"AZURE_OPENAI_API_VERSION", "AZURE_OPENAI_DEPLOYMENT_NAME",
		"DB_CONNECTION", "MEMORY_DSN", "QUERYBIRD_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_NonExistent(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	def := DefaultConfig()
	if cfg.LLM.Model != def.LLM.Model {
		t.Errorf("expected default model %q, got %q", def.LLM.Model, cfg.LLM.Model)
	}
	if cfg.Agent.MaxIterations != 5 {
		t.Errorf("expected maxIterations 5, got %d", cfg.Agent.MaxIterations)
	}
	if cfg.Memory.MaxMessages != 20 || cfg.Memory.SummaryLength != 2000 {
		t.Errorf("unexpected memory defaults: %+v", cfg.Memory)
	}
}

func TestLoad_ValidJSON(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]any{
		"llm": map[string]any{
			"model":   "gpt-4o-mini",
			"timeout": "45s",
		},
		"memory": map[string]any{
			"maxMessages": 10,
		},
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected model %q, got %q", "gpt-4o-mini", cfg.LLM.Model)
	}
	if cfg.LLM.Timeout.Std() != 45*time.Second {
		t.Errorf("expected timeout 45s, got %s", cfg.LLM.Timeout)
	}
	if cfg.Memory.MaxMessages != 10 {
		t.Errorf("expected maxMessages 10, got %d", cfg.Memory.MaxMessages)
	}
	// Unset fields keep their defaults.
	if cfg.Memory.SummaryLength != 2000 {
		t.Errorf("expected default summaryLength 2000, got %d", cfg.Memory.SummaryLength)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeRaw(t, dir, "config.yaml", `
llm:
  provider: azure
  model: gpt-4o
  deployment: prod-gpt4o
agent:
  toolTimeout: 5s
memory:
  backend: sqlite
  dsn: /tmp/qb.db
database:
  dsn: postgres://localhost/employees
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Provider != "azure" || cfg.LLM.Deployment != "prod-gpt4o" {
		t.Errorf("unexpected llm section: %+v", cfg.LLM)
	}
	if cfg.Agent.ToolTimeout.Std() != 5*time.Second {
		t.Errorf("expected toolTimeout 5s, got %s", cfg.Agent.ToolTimeout)
	}
	if cfg.Memory.DSN != "/tmp/qb.db" {
		t.Errorf("sqlite dsn must not be replaced, got %q", cfg.Memory.DSN)
	}
	if cfg.Database.Schema != "employees" {
		t.Errorf("expected default schema, got %q", cfg.Database.Schema)
	}
}

func TestLoad_InvalidFallsBackToDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeRaw(t, dir, "config.json", "{not valid json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Model != DefaultConfig().LLM.Model {
		t.Errorf("expected defaults after parse failure, got model %q", cfg.LLM.Model)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeRaw(t, dir, "config.yaml", "agent:\n  llmTimeout: soon\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Agent.LLMTimeout != DefaultConfig().Agent.LLMTimeout {
		t.Errorf("expected default llmTimeout, got %s", cfg.Agent.LLMTimeout)
	}
}

func TestApplyEnv_Azure(t *testing.T) {
	env := map[string]string{
		"AZURE_OPENAI_KEY":             "az-key",
		"AZURE_OPENAI_ENDPOINT":        "https://acme.openai.azure.com",
		"AZURE_OPENAI_API_VERSION":     "2024-10-21",
		"AZURE_OPENAI_DEPLOYMENT_NAME": "gpt4o-prod",
		"OPENAI_API_KEY":               "sk-ignored",
		"DB_CONNECTION":                "postgres://db/employees",
	}
	cfg := DefaultConfig()
	ApplyEnv(&cfg, func(k string) string { return env[k] })
	cfg.resolve()

	if cfg.LLM.Provider != "azure" || cfg.LLM.APIKey != "az-key" {
		t.Errorf("expected azure credentials, got %+v", cfg.LLM)
	}
	if cfg.LLM.APIBase != "https://acme.openai.azure.com" {
		t.Errorf("unexpected apiBase %q", cfg.LLM.APIBase)
	}
	if cfg.LLM.APIVersion != "2024-10-21" || cfg.LLM.Deployment != "gpt4o-prod" {
		t.Errorf("unexpected azure settings: %+v", cfg.LLM)
	}
	if cfg.Database.DSN != "postgres://db/employees" {
		t.Errorf("unexpected database dsn %q", cfg.Database.DSN)
	}
	// Memory shares the employees database by default.
	if cfg.Memory.DSN != cfg.Database.DSN {
		t.Errorf("expected memory dsn %q, got %q", cfg.Database.DSN, cfg.Memory.DSN)
	}
}

func TestApplyEnv_OpenAI(t *testing.T) {
	env := map[string]string{
		"OPENAI_API_KEY": "sk-live",
		"MEMORY_DSN":     "postgres://mem/history",
		"DB_CONNECTION":  "postgres://db/employees",
	}
	cfg := DefaultConfig()
	ApplyEnv(&cfg, func(k string) string { return env[k] })
	cfg.resolve()

	if cfg.LLM.Provider != "openai" || cfg.LLM.APIKey != "sk-live" {
		t.Errorf("unexpected llm section: %+v", cfg.LLM)
	}
	if cfg.Memory.DSN != "postgres://mem/history" {
		t.Errorf("MEMORY_DSN must win, got %q", cfg.Memory.DSN)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	for _, name := range []string{"config.yaml", "config.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			original := DefaultConfig()
			original.LLM.Model = "gpt-4.1"
			original.Agent.ToolTimeout = Duration(12 * time.Second)
			original.Memory.Backend = "sqlite"
			original.Memory.DSN = "history.db"

			if err := Save(&original, path); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if loaded.LLM.Model != original.LLM.Model {
				t.Errorf("model mismatch: got %q, want %q", loaded.LLM.Model, original.LLM.Model)
			}
			if loaded.Agent.ToolTimeout != original.Agent.ToolTimeout {
				t.Errorf("toolTimeout mismatch: got %s, want %s", loaded.Agent.ToolTimeout, original.Agent.ToolTimeout)
			}
			if loaded.Memory.DSN != "history.db" {
				t.Errorf("memory dsn mismatch: got %q", loaded.Memory.DSN)
			}
		})
	}
}

func TestSave_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	if err := Save(&cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected permissions 0600, got %04o", perm)
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "dir", "config.yaml")

	cfg := DefaultConfig()
	if err := Save(&cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not created: %v", err)
	}
}

func TestSettingsConversion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Memory.AbortOnSummaryError = true

	as := cfg.AgentSettings()
	if as.MaxIter != 5 || as.Model != cfg.LLM.Model || as.LLMTimeout != time.Minute {
		t.Errorf("unexpected agent settings: %+v", as)
	}
	ms := cfg.MemorySettings()
	if ms.Threshold != 20 || ms.SummaryWords != 2000 || !ms.AbortOnSummary {
		t.Errorf("unexpected memory settings: %+v", ms)
	}
	if p := cfg.ProviderParams(); p.ProviderName != "openai" || p.Timeout != 2*time.Minute {
		t.Errorf("unexpected provider params: %+v", p)
	}
	if spec := cfg.MatchProvider(); spec == nil || spec.Name != "openai" {
		t.Errorf("expected openai spec, got %+v", spec)
	}
}
