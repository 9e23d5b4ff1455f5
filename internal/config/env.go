package config

import "strings"

// ApplyEnv overlays environment variables onto cfg. Set variables win
// over file values.
//
//	OPENAI_API_KEY                 llm.apiKey (non-Azure providers)
//	AZURE_OPENAI_KEY               llm.apiKey, and selects provider azure
//	AZURE_OPENAI_ENDPOINT          llm.apiBase
//	AZURE_OPENAI_API_VERSION       llm.apiVersion
//	AZURE_OPENAI_DEPLOYMENT_NAME   llm.deployment
//	DB_CONNECTION                  database.dsn
//	MEMORY_DSN                     memory.dsn
//	QUERYBIRD_LOG_LEVEL            log.level
func ApplyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	if v := getenv("AZURE_OPENAI_KEY"); v != "" {
		cfg.LLM.Provider = "azure"
		cfg.LLM.APIKey = v
	} else if cfg.LLM.Provider != "azure" {
		set(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	}
	set(&cfg.LLM.APIBase, "AZURE_OPENAI_ENDPOINT")
	set(&cfg.LLM.APIVersion, "AZURE_OPENAI_API_VERSION")
	set(&cfg.LLM.Deployment, "AZURE_OPENAI_DEPLOYMENT_NAME")

	set(&cfg.Database.DSN, "DB_CONNECTION")
	set(&cfg.Memory.DSN, "MEMORY_DSN")
	set(&cfg.Log.Level, "QUERYBIRD_LOG_LEVEL")
}

// resolve fills values derived from other settings.
func (c *Config) resolve() {
	// The memory tables live beside the employees data unless told otherwise.
	if c.Memory.DSN == "" && (c.Memory.Backend == "postgres" || c.Memory.Backend == "") {
		c.Memory.DSN = c.Database.DSN
	}
	if c.LLM.Provider == "azure" && c.LLM.Deployment == "" {
		c.LLM.Deployment = c.LLM.Model
	}
}
