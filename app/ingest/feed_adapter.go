package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"smartcache/app/database"
)

// FeedAdapter ingests RSS/Atom syndication feeds (podcasts and articles).
type FeedAdapter struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	items      database.ItemRepository
	cacher     *Cacher
	userAgent  string
}

var _ Adapter = (*FeedAdapter)(nil)

func NewFeedAdapter(httpClient *http.Client, items database.ItemRepository, cacher *Cacher, userAgent string) *FeedAdapter {
	return &FeedAdapter{
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		items:      items,
		cacher:     cacher,
		userAgent:  userAgent,
	}
}

func (a *FeedAdapter) Kind() string {
	return database.SourceKindFeed
}

func (a *FeedAdapter) Ingest(ctx context.Context, source database.Source) (int, error) {
	data, err := a.fetch(ctx, source.Locator)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch feed: %w", err)
	}

	feed, err := a.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to parse feed: %w", err)
	}

	newCount := 0
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}

		fingerprint := FeedFingerprint(entry.GUID, entry.Link)

		exists, err := a.items.HasFingerprint(fingerprint)
		if err != nil {
			slog.Warn("Failed to check fingerprint, skipping entry",
				"source", source.Name, "fingerprint", fingerprint, "error", err)
			continue
		}
		if exists {
			continue
		}

		item := a.normalizeEntry(source, entry, fingerprint)
		cacheItemMedia(ctx, a.cacher, source, &item, ".mp3")

		if err := a.items.CreateItem(item); err != nil {
			if err == database.ErrDuplicateItem {
				// Lost the race against a concurrent run; the constraint is
				// the real guarantee, so this counts as a skip.
				continue
			}
			slog.Warn("Failed to store feed entry", "source", source.Name, "fingerprint", fingerprint, "error", err)
			continue
		}
		newCount++
	}

	return newCount, nil
}

func (a *FeedAdapter) normalizeEntry(source database.Source, entry *gofeed.Item, fingerprint string) database.Item {
	description := entry.Description
	if description == "" {
		description = entry.Content
	}

	published := time.Now().UTC()
	if entry.PublishedParsed != nil {
		published = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		published = *entry.UpdatedParsed
	}

	return database.Item{
		SourceID:    source.ID,
		Fingerprint: fingerprint,
		Title:       truncate(entry.Title, maxTitleLength),
		Description: truncate(description, maxDescriptionLength),
		URL:         entry.Link,
		MediaURL:    mediaURLFromEnclosures(entry),
		Topics:      entry.Categories,
		PublishedAt: published,
	}
}

// mediaURLFromEnclosures picks the first audio/video enclosure, falling back
// to the first enclosure of any type.
func mediaURLFromEnclosures(entry *gofeed.Item) string {
	var fallback string
	for _, enc := range entry.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "audio") || strings.HasPrefix(enc.Type, "video") {
			return enc.URL
		}
		if fallback == "" {
			fallback = enc.URL
		}
	}
	return fallback
}

func (a *FeedAdapter) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	return io.ReadAll(resp.Body)
}
