package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Quorum configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Council    CouncilConfig    `mapstructure:"council"`
	Client     ClientConfig     `mapstructure:"client"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls the HTTP server
type ServerConfig struct {
	// Host is the interface the server binds to
	Host string `mapstructure:"host"`
	// Port is the TCP port the server listens on
	Port int `mapstructure:"port"`
}

// Addr returns the host:port address the server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// OpenRouterConfig controls the upstream model API
type OpenRouterConfig struct {
	// APIKey is the bearer token for the chat-completions API.
	// Usually supplied via OPENROUTER_API_KEY rather than the config file.
	APIKey string `mapstructure:"api_key"`
	// APIURL is the chat-completions endpoint
	APIURL string `mapstructure:"api_url"`
	// TimeoutSeconds bounds every individual model call
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// Timeout returns the per-call timeout as a duration.
func (o OpenRouterConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// CouncilConfig controls the model roster
type CouncilConfig struct {
	// Models is the council roster; each entry answers in stage 1 and judges in stage 2
	Models []string `mapstructure:"models"`
	// Chairman is the model that synthesizes the final answer in stage 3
	Chairman string `mapstructure:"chairman"`
}

// ClientConfig controls the stream consumer
type ClientConfig struct {
	// BaseURL is the Quorum server the client talks to
	BaseURL string `mapstructure:"base_url"`
	// RetryBudget is the number of whole-stream retries after a transport failure
	RetryBudget int `mapstructure:"retry_budget"`
	// RetryBackoffMs is the fixed wait between stream attempts (in milliseconds)
	RetryBackoffMs int `mapstructure:"retry_backoff_ms"`
}

// RetryBackoff returns the backoff interval as a duration.
func (c ClientConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}

// StorageConfig controls conversation persistence
type StorageConfig struct {
	// DataDir is the directory holding conversation files and settings.json
	DataDir string `mapstructure:"data_dir"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is the minimum level to log: "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
	// Dir is the directory log files are written to; empty means stderr
	Dir string `mapstructure:"dir"`
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8001,
		},
		OpenRouter: OpenRouterConfig{
			APIURL:         "https://openrouter.ai/api/v1/chat/completions",
			TimeoutSeconds: 120,
		},
		Council: CouncilConfig{
			Models: []string{
				"openai/gpt-5.1",
				"google/gemini-3-pro-preview",
				"anthropic/claude-sonnet-4.5",
				"x-ai/grok-4",
			},
			Chairman: "google/gemini-3-pro-preview",
		},
		Client: ClientConfig{
			BaseURL:        "http://127.0.0.1:8001",
			RetryBudget:    2,
			RetryBackoffMs: 2000,
		},
		Storage: StorageConfig{
			DataDir: "data",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("server.host", defaults.Server.Host)
	viper.SetDefault("server.port", defaults.Server.Port)

	viper.SetDefault("openrouter.api_url", defaults.OpenRouter.APIURL)
	viper.SetDefault("openrouter.timeout_seconds", defaults.OpenRouter.TimeoutSeconds)

	viper.SetDefault("council.models", defaults.Council.Models)
	viper.SetDefault("council.chairman", defaults.Council.Chairman)

	viper.SetDefault("client.base_url", defaults.Client.BaseURL)
	viper.SetDefault("client.retry_budget", defaults.Client.RetryBudget)
	viper.SetDefault("client.retry_backoff_ms", defaults.Client.RetryBackoffMs)

	viper.SetDefault("storage.data_dir", defaults.Storage.DataDir)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "quorum")
	}
	// Fall back to ~/.config/quorum
	home, err := os.UserHomeDir()
	if err != nil {
		return ".quorum"
	}
	return filepath.Join(home, ".config", "quorum")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
