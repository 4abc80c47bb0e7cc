package ingest

import (
	"context"
	"net/url"
	"path"
	"strings"

	"smartcache/app/database"
)

// Bounds applied to every catalogued item to keep records storage-friendly.
const (
	maxTitleLength       = 500
	maxDescriptionLength = 2000
)

// Adapter turns one external source into normalized catalog items.
// Implementations must be idempotent across runs: the same external entry
// always derives the same fingerprint, and existing fingerprints are skipped.
type Adapter interface {
	Kind() string
	Ingest(ctx context.Context, source database.Source) (int, error)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// extFromURL extracts a plausible file extension (including the dot) from a
// URL path, or "" when there is none.
func extFromURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := path.Ext(u.Path)
	// Anything longer than ".webm" is noise, not an extension.
	if ext == "" || len(ext) > 5 || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return strings.ToLower(ext)
}
