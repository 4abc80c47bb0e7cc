package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"smartcache/app/cfg"
)

// SupabaseBackend stores media in a Supabase Storage bucket through its REST
// API. Objects are served from the bucket's public URL; Supabase public
// buckets have no per-object signing, so GetDownloadURL falls back to the
// public URL regardless of expiry.
type SupabaseBackend struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

var _ Backend = (*SupabaseBackend)(nil)

func NewSupabaseBackend(c *cfg.Cfg) (*SupabaseBackend, error) {
	if c.SupabaseURL == "" || c.SupabaseKey == "" {
		return nil, fmt.Errorf("storage provider 'supabase' selected but SUPABASE_URL/SUPABASE_KEY not configured")
	}

	return &SupabaseBackend{
		baseURL:    strings.TrimRight(c.SupabaseURL, "/"),
		serviceKey: c.SupabaseKey,
		bucket:     c.SupabaseBucket,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

func (b *SupabaseBackend) UploadFile(ctx context.Context, localPath, objectKey string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", b.baseURL, b.bucket, objectKey)
	req, err := http.NewRequestWithContext(ctx, "POST", uploadURL, f)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.serviceKey)
	req.Header.Set("Content-Type", ContentTypeForFile(localPath))
	req.Header.Set("x-upsert", "true")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("upload of %s failed: HTTP %d: %s", objectKey, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return b.publicURL(objectKey), nil
}

func (b *SupabaseBackend) GetDownloadURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	return b.publicURL(objectKey), nil
}

func (b *SupabaseBackend) Provider() string {
	return ProviderSupabase
}

func (b *SupabaseBackend) publicURL(objectKey string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", b.baseURL, b.bucket, objectKey)
}
