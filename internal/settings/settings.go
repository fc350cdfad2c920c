// Package settings manages the runtime-editable council settings stored in
// settings.json under the data directory. Saved values take precedence over
// environment-derived configuration; a missing or unreadable file falls back
// to the configured defaults rather than failing.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Iron-Ham/quorum/internal/config"
	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/logging"
)

// FileName is the settings file name inside the data directory.
const FileName = "settings.json"

// Settings holds the persisted council settings. The JSON field names are the
// API contract; clients patch them individually.
type Settings struct {
	OpenRouterAPIKey string   `json:"openrouter_api_key"`
	OpenRouterAPIURL string   `json:"openrouter_api_url" validate:"required,url"`
	CouncilModels    []string `json:"council_models"`
	ChairmanModel    string   `json:"chairman_model"`
}

// Patch is a partial settings update. Nil fields keep their current value.
type Patch struct {
	OpenRouterAPIKey *string   `json:"openrouter_api_key,omitempty"`
	OpenRouterAPIURL *string   `json:"openrouter_api_url,omitempty"`
	CouncilModels    *[]string `json:"council_models,omitempty"`
	ChairmanModel    *string   `json:"chairman_model,omitempty"`
}

// Store reads and writes the settings file and merges saved values with the
// configured defaults.
type Store struct {
	path     string
	defaults config.Config
	validate *validator.Validate
	logger   *logging.Logger
}

// NewStore creates a store over the settings file in cfg's data directory.
func NewStore(cfg config.Config, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Store{
		path:     filepath.Join(cfg.Storage.DataDir, FileName),
		defaults: cfg,
		validate: validator.New(),
		logger:   logger,
	}
}

// Path returns the settings file location.
func (s *Store) Path() string { return s.path }

// Load returns the saved settings, defaulted from configuration for any
// field the file omits. A missing or corrupt file yields pure defaults.
func (s *Store) Load() Settings {
	out := s.defaultSettings()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		s.logger.Warn("settings file unreadable, using defaults", "path", s.path, "error", err.Error())
		return s.defaultSettings()
	}
	return out
}

// Effective returns settings with every empty field backfilled from the
// configured defaults. This is what the pipeline runs on.
func (s *Store) Effective() Settings {
	loaded := s.Load()
	defaults := s.defaultSettings()

	if loaded.OpenRouterAPIKey == "" {
		loaded.OpenRouterAPIKey = defaults.OpenRouterAPIKey
	}
	if loaded.OpenRouterAPIURL == "" {
		loaded.OpenRouterAPIURL = defaults.OpenRouterAPIURL
	}
	if len(loaded.CouncilModels) == 0 {
		loaded.CouncilModels = defaults.CouncilModels
	}
	if loaded.ChairmanModel == "" {
		loaded.ChairmanModel = defaults.ChairmanModel
	}
	return loaded
}

// Save validates and persists the full settings object.
func (s *Store) Save(settings Settings) error {
	if err := s.validate.Struct(settings); err != nil {
		return errors.NewValidationError(err.Error()).WithField("settings")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}

	s.logger.Info("settings saved", "path", s.path)
	return nil
}

// Update applies a partial patch on top of the current settings and persists
// the result. It returns the updated settings.
func (s *Store) Update(patch Patch) (Settings, error) {
	current := s.Load()

	if patch.OpenRouterAPIKey != nil {
		current.OpenRouterAPIKey = *patch.OpenRouterAPIKey
	}
	if patch.OpenRouterAPIURL != nil {
		current.OpenRouterAPIURL = *patch.OpenRouterAPIURL
	}
	if patch.CouncilModels != nil {
		current.CouncilModels = *patch.CouncilModels
	}
	if patch.ChairmanModel != nil {
		current.ChairmanModel = *patch.ChairmanModel
	}

	if err := s.Save(current); err != nil {
		return Settings{}, err
	}
	return current, nil
}

// PipelineConfig overlays the settings onto cfg, producing the configuration
// a pipeline run would see. Callers gate runs with its ValidateForPipeline.
func (s Settings) PipelineConfig(cfg config.Config) config.Config {
	cfg.OpenRouter.APIKey = s.OpenRouterAPIKey
	cfg.OpenRouter.APIURL = s.OpenRouterAPIURL
	cfg.Council.Models = s.CouncilModels
	cfg.Council.Chairman = s.ChairmanModel
	return cfg
}

// Redacted returns the settings with the API key masked for display.
func (s Settings) Redacted() Settings {
	s.OpenRouterAPIKey = RedactAPIKey(s.OpenRouterAPIKey)
	return s
}

// RedactAPIKey masks an API key for safe display. Long keys keep the first
// and last four characters; short keys keep at most the final character so
// the mask never reveals more than it hides.
func RedactAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		if len(key) == 1 {
			return "*"
		}
		return strings.Repeat("*", len(key)-1) + key[len(key)-1:]
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

func (s *Store) defaultSettings() Settings {
	return Settings{
		OpenRouterAPIKey: s.defaults.OpenRouter.APIKey,
		OpenRouterAPIURL: s.defaults.OpenRouter.APIURL,
		CouncilModels:    append([]string(nil), s.defaults.Council.Models...),
		ChairmanModel:    s.defaults.Council.Chairman,
	}
}
