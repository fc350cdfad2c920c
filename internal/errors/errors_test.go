package errors

import (
	"fmt"
	"testing"
	"time"
)

func TestModelCallError(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewModelCallError("request failed", cause).
		WithModel("openai/gpt-4o").
		WithStatusCode(502)

	want := "model call error [model=openai/gpt-4o, status=502]: request failed: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !IsRetryable(err) {
		t.Error("model call errors should be retryable")
	}

	var callErr *ModelCallError
	if !As(err, &callErr) {
		t.Fatal("expected As to match *ModelCallError")
	}
	if callErr.Model != "openai/gpt-4o" {
		t.Errorf("Model = %q, want %q", callErr.Model, "openai/gpt-4o")
	}
}

func TestStreamError(t *testing.T) {
	err := NewStreamError("transport failed", ErrRetryBudgetExhausted).WithAttempt(3)

	want := "stream error [attempt=3]: transport failed: retry budget exhausted"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !Is(err, ErrRetryBudgetExhausted) {
		t.Error("expected Is(err, ErrRetryBudgetExhausted) to be true")
	}

	terminal := NewStreamError("cancelled", ErrStreamCancelled).WithRetryable(false)
	if IsRetryable(terminal) {
		t.Error("WithRetryable(false) should disable retry classification")
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("conversation", "abc123")

	if err.Error() != "conversation not found: abc123" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !Is(err, ErrConversationNotFound) {
		t.Error("conversation NotFoundError should match ErrConversationNotFound")
	}

	other := NewNotFoundError("setting", "theme")
	if Is(other, ErrConversationNotFound) {
		t.Error("non-conversation NotFoundError should not match ErrConversationNotFound")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("must not be empty").WithField("chairman_model")

	if err.Error() != "validation failed for chairman_model: must not be empty" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !Is(err, ErrInvalidInput) {
		t.Error("validation errors should match ErrInvalidInput")
	}
	if IsRetryable(err) {
		t.Error("validation errors should not be retryable")
	}
}

func TestTimeoutError(t *testing.T) {
	err := NewTimeoutError("model call", 120*time.Second)

	if err.Error() != "model call timed out after 2m0s" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !Is(err, ErrTimeout) {
		t.Error("timeout errors should match ErrTimeout")
	}
	if !IsRetryable(err) {
		t.Error("timeout errors should be retryable")
	}
}

func TestIsRetryable_PlainError(t *testing.T) {
	if IsRetryable(fmt.Errorf("boom")) {
		t.Error("plain errors should not be retryable")
	}
}
