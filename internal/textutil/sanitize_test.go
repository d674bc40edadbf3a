package textutil

import (
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"episode.mp3", "episode.mp3"},
		{"  My Talk (final).mp4  ", "My Talk (final).mp4"},
		{"a/b\\c:d*e.wav", "a-b-c-d-e.wav"},
		{"what?.mov", "what.mov"},
		{"../../etc/passwd", "etc-passwd"},
		{"música.m4a", "m_sica.m4a"},
		{"..hidden.webm", "hidden.webm"},
		{"", ""},
		{"???", ""},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.input); got != tt.expected {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSanitizeFileNameKeepsExtensionWhenTruncating(t *testing.T) {
	long := strings.Repeat("x", 300) + ".mp3"
	got := SanitizeFileName(long)
	if len(got) > maxFileNameLength {
		t.Fatalf("length = %d, want <= %d", len(got), maxFileNameLength)
	}
	if !strings.HasSuffix(got, ".mp3") {
		t.Fatalf("extension lost: %q", got)
	}
}
