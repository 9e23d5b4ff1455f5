package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPath returns the default configuration file path: ~/.querybird/config.yaml.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// DataDir returns the querybird data directory: ~/.querybird.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".querybird"
	}
	return filepath.Join(home, ".querybird")
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// Load reads the config file at path, then applies environment overrides.
// If path is empty, ConfigPath() is used.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg, os.Getenv)
	cfg.resolve()
	return cfg, nil
}

// LoadFile parses path over the defaults without consulting the
// environment. A missing file yields the defaults; on parse failure it logs
// a warning and uses the defaults.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if perr := unmarshal(path, data, &cfg); perr != nil {
			slog.Warn("failed to parse config, using defaults", "path", path, "err", perr)
			cfg = DefaultConfig()
		}
	}

	return &cfg, nil
}

func unmarshal(path string, data []byte, cfg *Config) error {
	if isJSON(path) {
		return json.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

// Save writes cfg to path, as YAML unless the extension is .json.
// If path is empty, ConfigPath() is used.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(cfg, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
