package config

import (
	"strings"
	"testing"

	"github.com/Iron-Ham/quorum/internal/errors"
)

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("default config should validate, got: %v", ValidationErrors(errs))
	}
}

func TestValidateServer(t *testing.T) {
	tests := []struct {
		name    string
		port    int
		wantErr bool
	}{
		{"valid port", 8001, false},
		{"port too low", 0, true},
		{"port too high", 70000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Server.Port = tt.port

			errs := cfg.Validate()
			if tt.wantErr && len(errs) == 0 {
				t.Error("expected validation error, got none")
			}
			if !tt.wantErr && len(errs) != 0 {
				t.Errorf("expected no errors, got: %v", ValidationErrors(errs))
			}
		})
	}
}

func TestValidateOpenRouter(t *testing.T) {
	cfg := Default()
	cfg.OpenRouter.APIURL = ""
	cfg.OpenRouter.TimeoutSeconds = 0

	errs := cfg.Validate()
	if len(errs) != 2 {
		t.Fatalf("expected 2 validation errors, got %d: %v", len(errs), ValidationErrors(errs))
	}

	msg := ValidationErrors(errs).Error()
	if !strings.Contains(msg, "openrouter.api_url") {
		t.Errorf("error message should mention openrouter.api_url: %s", msg)
	}
	if !strings.Contains(msg, "openrouter.timeout_seconds") {
		t.Errorf("error message should mention openrouter.timeout_seconds: %s", msg)
	}
}

func TestValidateMalformedURL(t *testing.T) {
	cfg := Default()
	cfg.OpenRouter.APIURL = "not a url"

	if errs := cfg.Validate(); len(errs) == 0 {
		t.Error("expected validation error for malformed URL")
	}
}

func TestValidateLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "verbose"

	if errs := cfg.Validate(); len(errs) == 0 {
		t.Error("expected validation error for unknown log level")
	}

	cfg.Logging.Level = "WARN" // case-insensitive
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("log level check should be case-insensitive, got: %v", ValidationErrors(errs))
	}
}

func TestValidateForPipeline(t *testing.T) {
	cfg := Default()
	cfg.OpenRouter.APIKey = "sk-test"

	if err := cfg.ValidateForPipeline(); err != nil {
		t.Errorf("ValidateForPipeline() = %v, want nil", err)
	}

	t.Run("missing api key", func(t *testing.T) {
		c := Default()
		if err := c.ValidateForPipeline(); !errors.Is(err, errors.ErrMissingAPIKey) {
			t.Errorf("expected ErrMissingAPIKey, got %v", err)
		}
	})

	t.Run("empty roster", func(t *testing.T) {
		c := Default()
		c.OpenRouter.APIKey = "sk-test"
		c.Council.Models = nil
		if err := c.ValidateForPipeline(); !errors.Is(err, errors.ErrNoCouncilModels) {
			t.Errorf("expected ErrNoCouncilModels, got %v", err)
		}
	})

	t.Run("missing chairman", func(t *testing.T) {
		c := Default()
		c.OpenRouter.APIKey = "sk-test"
		c.Council.Chairman = ""
		if err := c.ValidateForPipeline(); !errors.Is(err, errors.ErrNoChairmanModel) {
			t.Errorf("expected ErrNoChairmanModel, got %v", err)
		}
	})
}

func TestValidationErrorFormatting(t *testing.T) {
	single := ValidationErrors{{Field: "server.port", Value: 0, Message: "must be between 1 and 65535"}}
	if got := single.Error(); got != "server.port: must be between 1 and 65535 (got: 0)" {
		t.Errorf("single error format = %q", got)
	}

	multi := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: 2, Message: "worse"},
	}
	msg := multi.Error()
	if !strings.HasPrefix(msg, "2 validation errors:") {
		t.Errorf("multi error should be prefixed with count: %q", msg)
	}

	if ValidationErrors(nil).Error() != "" {
		t.Error("empty ValidationErrors should produce empty message")
	}
}
