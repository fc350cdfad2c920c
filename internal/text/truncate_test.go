package text

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string truncated", "hello world", 8, "hello..."},
		{"tiny maxLen returns ellipsis", "hello", 3, "..."},
		{"zero maxLen returns ellipsis", "hello", 0, "..."},
		{"empty string unchanged", "", 10, ""},
		{"unicode counted by runes", "日本語テスト", 5, "日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateWidth(t *testing.T) {
	styled := lipgloss.NewStyle().Bold(true).Render("hello world")

	t.Run("plain string truncated to width", func(t *testing.T) {
		got := TruncateWidth("hello world", 8)
		if got != "hello..." {
			t.Errorf("TruncateWidth() = %q, want %q", got, "hello...")
		}
	})

	t.Run("styled string keeps within width", func(t *testing.T) {
		got := TruncateWidth(styled, 8)
		if w := lipgloss.Width(got); w > 8 {
			t.Errorf("width = %d, want <= 8", w)
		}
	})

	t.Run("wide characters measured by columns", func(t *testing.T) {
		got := TruncateWidth("日本語テスト", 8)
		if w := lipgloss.Width(got); w > 8 {
			t.Errorf("width = %d, want <= 8", w)
		}
	})

	t.Run("tiny width returns ellipsis", func(t *testing.T) {
		if got := TruncateWidth("hello", 2); got != "..." {
			t.Errorf("TruncateWidth() = %q, want ...", got)
		}
	})
}
