package storage

import (
	"context"
	"fmt"
	"time"

	"smartcache/app/cfg"
)

// Storage provider identifiers, matching the --storage-provider option.
const (
	ProviderNone     = "none"
	ProviderS3       = "s3"
	ProviderSupabase = "supabase"
)

// Backend persists media files and produces retrievable URLs. Implementations
// are stateless beyond connection pooling and safe for concurrent use.
type Backend interface {
	// UploadFile uploads a local file under the given object key and returns
	// a public URL for it.
	UploadFile(ctx context.Context, localPath, objectKey string) (string, error)

	// GetDownloadURL returns a time-limited signed URL for the object where
	// the backend supports signing, or a public URL otherwise.
	GetDownloadURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)

	// Provider returns the provider identifier recorded on cached items.
	Provider() string
}

// New builds the configured storage backend. The provider choice is a
// configuration-time decision: adapters only ever see the Backend interface.
// Provider "none" returns a nil backend (metadata-only operation). Missing
// credentials for a selected provider are a construction error so the
// service fails fast instead of mid-run.
func New(c *cfg.Cfg) (Backend, error) {
	switch c.StorageProvider {
	case ProviderNone, "":
		return nil, nil
	case ProviderS3:
		return NewS3Backend(c)
	case ProviderSupabase:
		return NewSupabaseBackend(c)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", c.StorageProvider)
	}
}
