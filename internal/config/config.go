// Package config loads the nlterm configuration. The core pipeline consumes
// these values; it does not own them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nlterm/nlterm/internal/session"
)

// Config holds the global nlterm configuration.
type Config struct {
	TimeoutMs int             `yaml:"timeout_ms"`
	Shell     string          `yaml:"shell"`
	Workdir   string          `yaml:"workdir"`
	Session   SessionConfig   `yaml:"session"`
	Log       LogConfig       `yaml:"log"`
	Translate TranslateConfig `yaml:"translate"`
}

// SessionConfig selects and locates the session log backend.
type SessionConfig struct {
	Backend string `yaml:"backend"` // "jsonl" (default) or "sqlite"
	Path    string `yaml:"path"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `yaml:"level"` // zerolog level name
}

// TranslateConfig controls the natural-language translation collaborator.
type TranslateConfig struct {
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// DefaultTranslateTimeout is used when no translate timeout is configured.
const DefaultTranslateTimeout = 60 * time.Second

// TimeoutDuration parses the configured translate timeout or returns the
// default.
func (t *TranslateConfig) TimeoutDuration() time.Duration {
	if t.Timeout != "" {
		if d, err := time.ParseDuration(t.Timeout); err == nil {
			return d
		}
	}
	return DefaultTranslateTimeout
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		TimeoutMs: 30000,
		Session: SessionConfig{
			Backend: "jsonl",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the config from the standard location
// (~/.config/nlterm/config.yaml). A missing file yields the defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(filepath.Join(home, ".config", "nlterm", "config.yaml"))
}

// LoadFrom reads the config from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Session.Path != "" && cfg.Session.Path[0] == '~' {
		home, _ := os.UserHomeDir()
		cfg.Session.Path = filepath.Join(home, cfg.Session.Path[1:])
	}
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = 30000
	}

	return cfg, nil
}

// Timeout returns the execution timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// SessionPath resolves the session log location, falling back to the standard
// data directory with a backend-appropriate filename.
func (c *Config) SessionPath() string {
	if c.Session.Path != "" {
		return c.Session.Path
	}
	home, _ := os.UserHomeDir()
	name := "session.jsonl"
	if c.Session.Backend == "sqlite" {
		name = "session.db"
	}
	return filepath.Join(home, ".local", "share", "nlterm", name)
}

// OpenLog opens the configured session log backend.
func (c *Config) OpenLog() (session.Log, error) {
	path := c.SessionPath()
	switch c.Session.Backend {
	case "", "jsonl":
		return session.OpenJSONL(path)
	case "sqlite":
		return session.OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "nlterm", "config.yaml")
}
