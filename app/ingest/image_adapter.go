package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"smartcache/app/database"
)

const (
	defaultImageAPIBaseURL = "https://meme-api.com"
	imagesPerFetch         = 20
)

type imageAPIResponse struct {
	Memes []imageAPIPost `json:"memes"`
}

type imageAPIPost struct {
	PostLink  string `json:"postLink"`
	Subreddit string `json:"subreddit"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	NSFW      bool   `json:"nsfw"`
	Author    string `json:"author"`
	Ups       int    `json:"ups"`
}

// ImageAdapter ingests image posts from a community aggregator API. The
// source locator is the community name, e.g. a subreddit.
type ImageAdapter struct {
	httpClient *http.Client
	items      database.ItemRepository
	cacher     *Cacher
	userAgent  string
	baseURL    string
}

var _ Adapter = (*ImageAdapter)(nil)

func NewImageAdapter(httpClient *http.Client, items database.ItemRepository, cacher *Cacher, userAgent string) *ImageAdapter {
	return &ImageAdapter{
		httpClient: httpClient,
		items:      items,
		cacher:     cacher,
		userAgent:  userAgent,
		baseURL:    defaultImageAPIBaseURL,
	}
}

func (a *ImageAdapter) Kind() string {
	return database.SourceKindImage
}

func (a *ImageAdapter) Ingest(ctx context.Context, source database.Source) (int, error) {
	url := fmt.Sprintf("%s/gimme/%s/%d", a.baseURL, source.Locator, imagesPerFetch)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch posts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	var payload imageAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	newCount := 0
	for _, post := range payload.Memes {
		if post.NSFW {
			continue
		}
		if post.PostLink == "" || post.URL == "" {
			continue
		}

		fingerprint := HashFingerprint("image", post.PostLink)

		exists, err := a.items.HasFingerprint(fingerprint)
		if err != nil {
			slog.Warn("Failed to check fingerprint, skipping entry",
				"source", source.Name, "fingerprint", fingerprint, "error", err)
			continue
		}
		if exists {
			continue
		}

		description := fmt.Sprintf("Posted by u/%s on r/%s | %d upvotes",
			post.Author, post.Subreddit, post.Ups)

		item := database.Item{
			SourceID:    source.ID,
			Fingerprint: fingerprint,
			Title:       truncate(post.Title, maxTitleLength),
			Description: truncate(description, maxDescriptionLength),
			URL:         post.PostLink,
			MediaURL:    post.URL,
			Topics:      []string{post.Subreddit},
			PublishedAt: time.Now().UTC(),
		}
		cacheItemMedia(ctx, a.cacher, source, &item, ".jpg")

		if err := a.items.CreateItem(item); err != nil {
			if err == database.ErrDuplicateItem {
				continue
			}
			slog.Warn("Failed to store image post", "source", source.Name, "fingerprint", fingerprint, "error", err)
			continue
		}
		newCount++
	}

	return newCount, nil
}
