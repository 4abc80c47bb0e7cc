package download

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain title", "episode", "episode"},
		{"spaces become underscores", "My Great Episode", "My_Great_Episode"},
		{"special characters dropped", "What?! Really: yes/no", "What_Really_yesno"},
		{"empty title falls back", "!!!", "download"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := safeFilename(tt.input)
			if got != tt.want {
				t.Errorf("safeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSafeFilenameLengthCap(t *testing.T) {
	got := safeFilename(strings.Repeat("a", 200))
	if len(got) != maxFilenameTitleLength {
		t.Errorf("Expected length %d, got %d", maxFilenameTitleLength, len(got))
	}
}

func TestLocalPathFor(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	got := localPathFor("/data/downloads", "user-1", "My Episode", "https://cdn.example.com/ep.mp3?sig=x", now)
	want := filepath.Join("/data/downloads", "user-1", "My_Episode_1714564800.mp3")
	if got != want {
		t.Errorf("localPathFor = %q, want %q", got, want)
	}
}

func TestLocalPathForDefaultsExtension(t *testing.T) {
	now := time.Unix(0, 0)

	got := localPathFor("/data", "user-1", "Stream", "https://cdn.example.com/stream", now)
	if !strings.HasSuffix(got, ".mp3") {
		t.Errorf("Expected default .mp3 extension, got %q", got)
	}
}
