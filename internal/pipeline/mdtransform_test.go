package pipeline

import (
	"bytes"
	"testing"
)

// ---------------------------------------------------------------------------
// TestNormalizeSource - Line endings and byte order mark
// ---------------------------------------------------------------------------

func TestNormalizeSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unix unchanged", "a\nb\n", "a\nb\n"},
		{"windows line endings", "a\r\nb\r\n", "a\nb\n"},
		{"old mac line endings", "a\rb\r", "a\nb\n"},
		{"mixed line endings", "a\r\nb\rc\n", "a\nb\nc\n"},
		{"byte order mark stripped", "\xEF\xBB\xBF# Title\n", "# Title\n"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := normalizeSource([]byte(tt.input))
			if string(got) != tt.want {
				t.Errorf("normalizeSource(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if bytes.ContainsRune(got, '\r') {
				t.Errorf("normalizeSource(%q) still contains \\r", tt.input)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestTrimTrailingSpace - End of file whitespace
// ---------------------------------------------------------------------------

func TestTrimTrailingSpace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no trailing space", "text", "text"},
		{"trailing newlines", "text\n\n\n", "text"},
		{"trailing spaces and tabs", "text \t\n \n", "text"},
		{"inner blank lines kept", "a\n\nb\n", "a\n\nb"},
		{"only whitespace", " \n\t\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := string(trimTrailingSpace([]byte(tt.input)))
			if got != tt.want {
				t.Errorf("trimTrailingSpace(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
