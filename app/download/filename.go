package download

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

const maxFilenameTitleLength = 80

// safeFilename reduces a free-form title to a filesystem-safe base name.
func safeFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}

	name := b.String()
	if len(name) > maxFilenameTitleLength {
		name = name[:maxFilenameTitleLength]
	}
	if name == "" {
		name = "download"
	}
	return name
}

// localPathFor builds the destination path for a download. The timestamp
// suffix keeps repeated downloads of the same title from clobbering each
// other.
func localPathFor(root, userID, title, mediaURL string, now time.Time) string {
	ext := extForURL(mediaURL)
	if ext == "" {
		ext = ".mp3"
	}
	filename := fmt.Sprintf("%s_%d%s", safeFilename(title), now.Unix(), ext)
	return filepath.Join(root, userID, filename)
}

func extForURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := path.Ext(u.Path)
	if ext == "" || len(ext) > 5 || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return strings.ToLower(ext)
}
