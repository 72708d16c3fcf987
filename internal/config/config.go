package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains runtime configuration for signed-memory.
type Config struct {
	Name                 string `yaml:"name"`
	DataDir              string `yaml:"data_dir"`
	LogLevel             string `yaml:"log_level"`
	JournalBackend       string `yaml:"journal_backend"`
	JournalFile          string `yaml:"journal_file"`
	SQLiteFile           string `yaml:"sqlite_file"`
	SessionTTLSeconds    int    `yaml:"session_ttl_seconds"`
	SweepIntervalSeconds int    `yaml:"sweep_interval_seconds"`
}

// Default returns a Config populated with safe defaults.
func Default() Config {
	return Config{
		Name:                 "signed-memory",
		DataDir:              filepath.Join(userHomeDir(), ".signed-memory"),
		LogLevel:             "info",
		JournalBackend:       "file",
		JournalFile:          "memory.log",
		SQLiteFile:           "memory.db",
		SessionTTLSeconds:    3600,
		SweepIntervalSeconds: 60,
	}
}

// Load loads config from disk; if path does not exist, default config is returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks configuration sanity.
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("name must not be empty")
	}
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	switch strings.ToLower(c.JournalBackend) {
	case "file":
		if c.JournalFile == "" {
			return errors.New("journal_file must not be empty")
		}
	case "sqlite":
		if c.SQLiteFile == "" {
			return errors.New("sqlite_file must not be empty")
		}
	default:
		return fmt.Errorf("journal_backend must be file or sqlite, got %q", c.JournalBackend)
	}
	if c.SessionTTLSeconds <= 0 {
		return errors.New("session_ttl_seconds must be > 0")
	}
	if c.SweepIntervalSeconds < 0 {
		return errors.New("sweep_interval_seconds must be >= 0")
	}
	return nil
}

// EnsurePaths expands and creates the data directory.
func (c *Config) EnsurePaths() error {
	c.DataDir = ExpandPath(c.DataDir)
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

// JournalPath returns the location of the journal for the configured backend.
func (c Config) JournalPath() string {
	name := c.JournalFile
	if strings.ToLower(c.JournalBackend) == "sqlite" {
		name = c.SQLiteFile
	}
	name = ExpandPath(name)
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(ExpandPath(c.DataDir), name)
}

// SessionTTL is the default lifetime given to new session records.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// SweepInterval is how often expired session records are purged; zero disables the sweeper.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// ExpandPath expands "~/" to the current user's home directory.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p == "~" {
		return userHomeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(userHomeDir(), p[2:])
	}
	return p
}

func userHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
