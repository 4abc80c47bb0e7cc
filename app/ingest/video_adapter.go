package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ytget/ytdlp/v2"

	"smartcache/app/database"
)

const (
	maxVideosPerSource = 10

	videoWatchURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// PlaylistEntry is the normalized shape of one video in a platform playlist.
type PlaylistEntry struct {
	VideoID string
	Title   string
}

// VideoExtractor lists the entries of a video platform playlist or channel.
type VideoExtractor interface {
	PlaylistEntries(ctx context.Context, playlistID string) ([]PlaylistEntry, error)
}

// YTDLPExtractor implements VideoExtractor through the ytdlp library using
// flat extraction, so listing a playlist never downloads video data.
type YTDLPExtractor struct{}

var _ VideoExtractor = (*YTDLPExtractor)(nil)

func NewYTDLPExtractor() *YTDLPExtractor {
	return &YTDLPExtractor{}
}

func (e *YTDLPExtractor) PlaylistEntries(ctx context.Context, playlistID string) ([]PlaylistEntry, error) {
	d := ytdlp.New()
	items, err := d.GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	entries := make([]PlaylistEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, PlaylistEntry{VideoID: it.VideoID, Title: it.Title})
	}
	return entries, nil
}

// VideoAdapter ingests video platform playlists as metadata-only items. A
// watch page URL is not a directly fetchable media object, so video sources
// are never cached regardless of policy.
type VideoAdapter struct {
	extractor VideoExtractor
	items     database.ItemRepository
}

var _ Adapter = (*VideoAdapter)(nil)

func NewVideoAdapter(extractor VideoExtractor, items database.ItemRepository) *VideoAdapter {
	return &VideoAdapter{
		extractor: extractor,
		items:     items,
	}
}

func (a *VideoAdapter) Kind() string {
	return database.SourceKindVideo
}

func (a *VideoAdapter) Ingest(ctx context.Context, source database.Source) (int, error) {
	playlistID := extractPlaylistID(source.Locator)
	if playlistID == "" {
		return 0, fmt.Errorf("could not determine playlist ID from locator: %s", source.Locator)
	}

	entries, err := a.extractor.PlaylistEntries(ctx, playlistID)
	if err != nil {
		return 0, fmt.Errorf("failed to list playlist: %w", err)
	}

	if len(entries) > maxVideosPerSource {
		entries = entries[:maxVideosPerSource]
	}

	newCount := 0
	for _, entry := range entries {
		if entry.VideoID == "" {
			continue
		}

		fingerprint := VideoFingerprint(entry.VideoID)

		exists, err := a.items.HasFingerprint(fingerprint)
		if err != nil {
			slog.Warn("Failed to check fingerprint, skipping entry",
				"source", source.Name, "fingerprint", fingerprint, "error", err)
			continue
		}
		if exists {
			continue
		}

		item := database.Item{
			SourceID:    source.ID,
			Fingerprint: fingerprint,
			Title:       truncate(entry.Title, maxTitleLength),
			URL:         fmt.Sprintf(videoWatchURLTemplate, entry.VideoID),
			PublishedAt: time.Now().UTC(),
		}

		if err := a.items.CreateItem(item); err != nil {
			if err == database.ErrDuplicateItem {
				continue
			}
			slog.Warn("Failed to store video entry", "source", source.Name, "fingerprint", fingerprint, "error", err)
			continue
		}
		newCount++
	}

	return newCount, nil
}

// extractPlaylistID pulls the list parameter out of a playlist URL. A locator
// without a list parameter is treated as a bare playlist ID.
func extractPlaylistID(locator string) string {
	if !strings.Contains(locator, "list=") {
		return strings.TrimSpace(locator)
	}
	part := strings.SplitN(locator, "list=", 2)[1]
	if idx := strings.IndexAny(part, "&#"); idx >= 0 {
		part = part[:idx]
	}
	return part
}
