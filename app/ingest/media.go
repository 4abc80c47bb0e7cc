package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"smartcache/app/database"
	"smartcache/app/storage"
)

const copyChunkSize = 8 * 1024

// Cacher downloads source media to a temporary file and persists it through
// the storage backend. A nil Cacher (or one without a backend) disables
// caching without disabling metadata ingestion.
type Cacher struct {
	backend    storage.Backend
	httpClient *http.Client
	userAgent  string
}

func NewCacher(backend storage.Backend, httpClient *http.Client, userAgent string) *Cacher {
	return &Cacher{
		backend:    backend,
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (c *Cacher) Available() bool {
	return c != nil && c.backend != nil
}

// Cache streams the media URL to a temp file, uploads it under objectKey and
// returns the public URL, the provider tag and the byte size. The temp file
// is always removed.
func (c *Cacher) Cache(ctx context.Context, mediaURL, objectKey string) (string, string, int64, error) {
	tmpPath, size, err := c.downloadTemp(ctx, mediaURL, objectKey)
	if err != nil {
		return "", "", 0, err
	}
	defer os.Remove(tmpPath)

	publicURL, err := c.backend.UploadFile(ctx, tmpPath, objectKey)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to upload media: %w", err)
	}

	return publicURL, c.backend.Provider(), size, nil
}

func (c *Cacher) downloadTemp(ctx context.Context, mediaURL, objectKey string) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", mediaURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("HTTP error fetching media: %d %s", resp.StatusCode, resp.Status)
	}

	tmp, err := os.CreateTemp("", "smartcache-media-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	buf := make([]byte, copyChunkSize)
	size, err := io.CopyBuffer(tmp, resp.Body, buf)
	closeErr := tmp.Close()
	if err != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("failed to download media: %w", err)
	}
	if closeErr != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("failed to finalize temp file: %w", closeErr)
	}

	return tmp.Name(), size, nil
}

// cacheItemMedia attaches a cached copy of the item's media when the source
// policy allows it and a backend is configured. Caching failures leave the
// item metadata-only: metadata ingestion never fails because caching failed.
func cacheItemMedia(ctx context.Context, cacher *Cacher, source database.Source, item *database.Item, defaultExt string) {
	if source.Policy != database.PolicyCacheAllowed || item.MediaURL == "" {
		return
	}
	if !cacher.Available() {
		slog.Debug("Storage backend not configured, keeping item metadata-only",
			"source", source.Name, "fingerprint", item.Fingerprint)
		return
	}

	ext := extFromURL(item.MediaURL)
	if ext == "" {
		ext = defaultExt
	}
	objectKey := storage.ObjectKey(source.Kind, source.Name, item.Fingerprint, ext)

	publicURL, provider, size, err := cacher.Cache(ctx, item.MediaURL, objectKey)
	if err != nil {
		slog.Warn("Failed to cache media, keeping item metadata-only",
			"source", source.Name, "fingerprint", item.Fingerprint, "error", err)
		return
	}

	item.StorageURL = publicURL
	item.StorageProvider = provider
	item.FileSizeBytes = &size

	slog.Info("Cached media", "source", source.Name, "key", objectKey, "bytes", size)
}
