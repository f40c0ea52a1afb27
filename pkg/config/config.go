// Package config loads the assistant's YAML configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings.
type Config struct {
	ListenAddr   string   `yaml:"listen_addr"`
	DBPath       string   `yaml:"db_path"`
	GeminiAPIKey string   `yaml:"gemini_api_key"`
	Model        string   `yaml:"model"`
	BasePrompt   string   `yaml:"base_prompt"`
	AllowedUsers []string `yaml:"allowed_users"`

	MaxContextTokens      int     `yaml:"max_context_tokens"`
	PruneThreshold        float64 `yaml:"prune_threshold"`
	MessageOverheadTokens int     `yaml:"message_overhead_tokens"`
	HistoryLoadLimit      int     `yaml:"history_load_limit"`
	KeepRecentOnCompact   int     `yaml:"keep_recent_on_compact"`
	MemoryWindow          int     `yaml:"memory_window"`

	MaxIterations            int `yaml:"max_iterations"`
	CompletionTimeoutSeconds int `yaml:"completion_timeout_seconds"`
	ToolTimeoutSeconds       int `yaml:"tool_timeout_seconds"`
	MaxMessageLength         int `yaml:"max_message_length"`

	SandboxEnabled bool   `yaml:"sandbox_enabled"`
	SandboxImage   string `yaml:"sandbox_image"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:               ":8080",
		DBPath:                   "mikky.db",
		Model:                    "gemini-2.0-flash",
		BasePrompt:               "You are Mikky, a personal assistant. Be concise and direct.",
		MaxContextTokens:         150_000,
		PruneThreshold:           0.8,
		MessageOverheadTokens:    4,
		HistoryLoadLimit:         50,
		KeepRecentOnCompact:      4,
		MemoryWindow:             10,
		MaxIterations:            10,
		CompletionTimeoutSeconds: 120,
		ToolTimeoutSeconds:       60,
		MaxMessageLength:         4000,
	}
}

// Load reads the config file at path and merges it over the defaults.
// The GEMINI_API_KEY environment variable overrides the file value.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.GeminiAPIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the settings the assistant cannot run without.
func (c Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("gemini_api_key is required (config file or GEMINI_API_KEY env var)")
	}
	if len(c.AllowedUsers) == 0 {
		return fmt.Errorf("allowed_users must list at least one user")
	}
	if c.PruneThreshold <= 0 || c.PruneThreshold > 1 {
		return fmt.Errorf("prune_threshold must be in (0, 1], got %v", c.PruneThreshold)
	}
	return nil
}
