package database

import (
	"time"
)

// Source kinds recognized by the ingestion pipeline.
const (
	SourceKindFeed  = "feed"
	SourceKindVideo = "video"
	SourceKindImage = "image"
	SourceKindNews  = "news"
)

// Caching policies for a source.
const (
	PolicyMetadataOnly = "metadata_only"
	PolicyCacheAllowed = "cache_allowed"
)

// Download request statuses. Transitions are forward-only:
// queued -> downloading -> ready | failed.
const (
	StatusQueued      = "queued"
	StatusDownloading = "downloading"
	StatusReady       = "ready"
	StatusFailed      = "failed"
)

type Source struct {
	ID        string
	Name      string
	Kind      string
	Locator   string // feed URL, playlist ID/URL, subreddit name, or search query
	Policy    string
	Active    bool
	CreatedAt time.Time
}

type Item struct {
	ID              string
	SourceID        string
	Fingerprint     string
	Title           string
	Description     string
	URL             string
	MediaURL        string
	StorageURL      string
	StorageProvider string
	FileSizeBytes   *int64
	DurationSeconds *int64
	Topics          []string
	PublishedAt     time.Time
	CreatedAt       time.Time
}

type DownloadRequest struct {
	ID            string
	ItemID        string
	UserID        string
	Title         string
	OriginalURL   string
	MediaURL      string // resolved at enqueue time: storage URL preferred
	Status        string
	LocalPath     string
	FileSizeBytes *int64
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DownloadStats counts a user's download requests per status.
type DownloadStats struct {
	Queued      int
	Downloading int
	Ready       int
	Failed      int
}

func (s DownloadStats) Total() int {
	return s.Queued + s.Downloading + s.Ready + s.Failed
}
