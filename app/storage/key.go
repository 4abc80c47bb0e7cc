package storage

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxSlugLength        = 50
	fingerprintKeyLength = 12
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// ObjectKey derives the storage key for a cached media file:
// {kind}s/{slug(sourceName)}/{shortFingerprint}{ext}
// e.g. feeds/npr-news/a1b2c3d4e5f6.mp3
func ObjectKey(sourceKind, sourceName, fingerprint, ext string) string {
	short := fingerprint
	if len(short) > fingerprintKeyLength {
		short = short[:fingerprintKeyLength]
	}
	return sourceKind + "s/" + Slug(sourceName) + "/" + short + ext
}

// Slug normalizes a source name into a storage-safe path segment: diacritics
// stripped, lowercased, runs of non-alphanumerics collapsed to single dashes.
func Slug(name string) string {
	if normalized, _, err := transform.String(stripMarks, name); err == nil {
		name = normalized
	}
	name = strings.ToLower(name)

	var b strings.Builder
	dash := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}

	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		slug = "unnamed"
	}
	return slug
}
