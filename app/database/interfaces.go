package database

import (
	"errors"
	"time"
)

// ErrDuplicateItem is returned by CreateItem when an item with the same
// fingerprint already exists. Adapters treat it as a successful no-op skip;
// the unique constraint is the real dedup guarantee, the existence check is
// only an optimization.
var ErrDuplicateItem = errors.New("item with this fingerprint already exists")

// ErrInvalidTransition is returned when a download request status update
// does not match the expected current status. Statuses never move backward.
var ErrInvalidTransition = errors.New("invalid download status transition")

type SourceRepository interface {
	UpsertSource(name, kind, locator, policy string, active bool) (string, bool, error)
	GetSource(name string) (*Source, error)
	GetActiveSources() ([]Source, error)
	GetDueSources(now time.Time) ([]Source, error)
	UpdateNextFetch(sourceID string, next time.Time) error
	GetSourceCount() (int, error)
}

// ItemFilter narrows catalog queries. Zero values mean "no constraint".
type ItemFilter struct {
	SourceID   string
	CachedOnly bool // only items with a non-empty storage URL
	Limit      int
}

type ItemRepository interface {
	HasFingerprint(fingerprint string) (bool, error)
	CreateItem(item Item) error
	GetItem(id string) (*Item, error)
	GetItems(filter ItemFilter) ([]Item, error)
	AttachStorageURL(itemID, storageURL, provider string, sizeBytes int64) error
	GetItemStats() (total int, cached int, err error)
}

type DownloadRepository interface {
	CreateRequest(req *DownloadRequest) error
	GetRequest(id string) (*DownloadRequest, error)
	GetRequestByUserAndItem(userID, itemID string) (*DownloadRequest, error)
	GetRequestsByStatus(status string, limit int) ([]DownloadRequest, error)
	GetUserRequests(userID string) ([]DownloadRequest, error)
	GetUserStats(userID string) (DownloadStats, error)
	GetStats() (DownloadStats, error)
	MarkDownloading(id string) error
	MarkReady(id string, localPath string, sizeBytes int64) error
	MarkFailed(id string, message string) error
}
