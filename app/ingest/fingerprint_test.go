package ingest

import (
	"strings"
	"testing"
)

func TestFeedFingerprintPrefersGUID(t *testing.T) {
	got := FeedFingerprint("urn:guid:123", "https://example.com/post")
	if got != "urn:guid:123" {
		t.Errorf("Expected GUID to be used as fingerprint, got %q", got)
	}
}

func TestFeedFingerprintFallsBackToLinkHash(t *testing.T) {
	first := FeedFingerprint("", "https://example.com/post")
	second := FeedFingerprint("", "https://example.com/post")
	other := FeedFingerprint("", "https://example.com/other")

	if first != second {
		t.Errorf("Expected deterministic fingerprint, got %q and %q", first, second)
	}
	if first == other {
		t.Errorf("Expected different links to produce different fingerprints")
	}
	if len(first) != 64 {
		t.Errorf("Expected full hex digest, got length %d", len(first))
	}
}

func TestVideoFingerprint(t *testing.T) {
	got := VideoFingerprint("dQw4w9WgXcQ")
	if got != "video_dQw4w9WgXcQ" {
		t.Errorf("Expected video_dQw4w9WgXcQ, got %q", got)
	}
}

func TestHashFingerprint(t *testing.T) {
	first := HashFingerprint("image", "https://redd.it/abc")
	second := HashFingerprint("image", "https://redd.it/abc")

	if first != second {
		t.Errorf("Expected deterministic fingerprint, got %q and %q", first, second)
	}
	if !strings.HasPrefix(first, "image_") {
		t.Errorf("Expected image_ prefix, got %q", first)
	}
	if len(first) != len("image_")+32 {
		t.Errorf("Unexpected fingerprint length: %d", len(first))
	}

	news := HashFingerprint("news", "https://redd.it/abc")
	if news == first {
		t.Errorf("Expected kind to be part of the fingerprint")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"short string untouched", "hello", 10, "hello"},
		{"exact length untouched", "hello", 5, "hello"},
		{"long string cut", "hello world", 5, "hello"},
		{"multibyte runes preserved", "héllo wörld", 7, "héllo w"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.max)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
			}
		})
	}
}

func TestExtFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/audio/episode.mp3", ".mp3"},
		{"https://example.com/audio/episode.MP3?token=abc", ".mp3"},
		{"https://example.com/image.jpeg", ".jpeg"},
		{"https://example.com/no-extension", ""},
		{"https://example.com/archive.backup", ""},
		{"", ""},
	}

	for _, tt := range tests {
		got := extFromURL(tt.url)
		if got != tt.want {
			t.Errorf("extFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
