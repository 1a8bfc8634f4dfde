package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	Agent         AgentConfig         `toml:"agent"`
	Notifications NotificationsConfig `toml:"notifications"`
	Web           WebConfig           `toml:"web"`
	Schedules     SchedulesConfig     `toml:"schedules"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	DatabasePath string `toml:"database_path"`
	// Production makes a missing agent base URL a hard failure instead of
	// leaving the dashboard in a not-configured state.
	Production bool `toml:"production"`
}

// AgentConfig holds healing agent service settings
type AgentConfig struct {
	BaseURL               string `toml:"base_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	PollIntervalSeconds   int    `toml:"poll_interval_seconds"`
}

// RequestTimeout returns the per-request timeout for the agent service.
func (a AgentConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// PollInterval returns the delay between status polls.
func (a AgentConfig) PollInterval() time.Duration {
	if a.PollIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(a.PollIntervalSeconds) * time.Second
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	SlackWebhook string `toml:"slack_webhook"`
}

// WebConfig holds web UI settings
type WebConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// SchedulesConfig points at the YAML file defining recurring runs
type SchedulesConfig struct {
	File string `toml:"file"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			DatabasePath: filepath.Join(home, ".healwatch", "healwatch.db"),
		},
		Agent: AgentConfig{
			BaseURL:               os.Getenv("HEALWATCH_AGENT_URL"),
			RequestTimeoutSeconds: 30,
			PollIntervalSeconds:   5,
		},
		Web: WebConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Expand paths
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)
	cfg.Schedules.File = ExpandPath(cfg.Schedules.File)

	return cfg, cfg.Validate()
}

// Validate enforces settings the rest of the app relies on.
func (c *Config) Validate() error {
	if c.General.Production && c.Agent.BaseURL == "" {
		return fmt.Errorf("agent.base_url must be configured in production (set it in the config file or HEALWATCH_AGENT_URL)")
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "healwatch", "config.toml")
}
