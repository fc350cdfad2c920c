package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/Iron-Ham/quorum/internal/errors"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "openrouter.timeout_seconds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateOpenRouter()...)
	errs = append(errs, c.validateClient()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

// validateServer validates the ServerConfig
func (c *Config) validateServer() []ValidationError {
	var errs []ValidationError

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Value:   c.Server.Port,
			Message: "must be between 1 and 65535",
		})
	}

	return errs
}

// validateOpenRouter validates the OpenRouterConfig
func (c *Config) validateOpenRouter() []ValidationError {
	var errs []ValidationError

	if c.OpenRouter.APIURL == "" {
		errs = append(errs, ValidationError{
			Field:   "openrouter.api_url",
			Value:   c.OpenRouter.APIURL,
			Message: "must not be empty",
		})
	} else if _, err := url.ParseRequestURI(c.OpenRouter.APIURL); err != nil {
		errs = append(errs, ValidationError{
			Field:   "openrouter.api_url",
			Value:   c.OpenRouter.APIURL,
			Message: "must be a valid URL",
		})
	}

	if c.OpenRouter.TimeoutSeconds < 1 {
		errs = append(errs, ValidationError{
			Field:   "openrouter.timeout_seconds",
			Value:   c.OpenRouter.TimeoutSeconds,
			Message: "must be at least 1",
		})
	}

	return errs
}

// validateClient validates the ClientConfig
func (c *Config) validateClient() []ValidationError {
	var errs []ValidationError

	if c.Client.RetryBudget < 0 {
		errs = append(errs, ValidationError{
			Field:   "client.retry_budget",
			Value:   c.Client.RetryBudget,
			Message: "must not be negative",
		})
	}

	if c.Client.RetryBackoffMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "client.retry_backoff_ms",
			Value:   c.Client.RetryBackoffMs,
			Message: "must not be negative",
		})
	}

	return errs
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errs []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errs
}

// ValidateForPipeline checks the preconditions a pipeline run requires:
// an API key and a non-empty model roster. This is the rejection that
// happens before any pipeline starts, distinct from file-level validation.
func (c *Config) ValidateForPipeline() error {
	if c.OpenRouter.APIKey == "" {
		return errors.ErrMissingAPIKey
	}
	if len(c.Council.Models) == 0 {
		return errors.ErrNoCouncilModels
	}
	if c.Council.Chairman == "" {
		return errors.ErrNoChairmanModel
	}
	return nil
}
