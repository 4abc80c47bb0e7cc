package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"smartcache/app/database"
)

const (
	defaultNewsAPIBaseURL = "https://newsapi.org"
	articlesPerFetch      = 20
)

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Message  string           `json:"message"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// NewsAdapter ingests articles from a news aggregation API. The source
// locator is the search query. Requires an API key.
type NewsAdapter struct {
	httpClient *http.Client
	items      database.ItemRepository
	cacher     *Cacher
	extractor  *ContentExtractor
	userAgent  string
	apiKey     string
	baseURL    string
}

var _ Adapter = (*NewsAdapter)(nil)

func NewNewsAdapter(httpClient *http.Client, items database.ItemRepository, cacher *Cacher, userAgent, apiKey string) *NewsAdapter {
	return &NewsAdapter{
		httpClient: httpClient,
		items:      items,
		cacher:     cacher,
		extractor:  NewContentExtractor(),
		userAgent:  userAgent,
		apiKey:     apiKey,
		baseURL:    defaultNewsAPIBaseURL,
	}
}

func (a *NewsAdapter) Kind() string {
	return database.SourceKindNews
}

func (a *NewsAdapter) Ingest(ctx context.Context, source database.Source) (int, error) {
	if a.apiKey == "" {
		return 0, fmt.Errorf("news API key is not configured")
	}

	articles, err := a.search(ctx, source.Locator)
	if err != nil {
		return 0, err
	}

	newCount := 0
	for _, article := range articles {
		if article.URL == "" && article.Title == "" {
			// Nothing stable to identify the article by.
			continue
		}

		id := article.URL
		if id == "" {
			id = article.Title
		}
		fingerprint := HashFingerprint("news", id)

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
			Title:       truncate(article.Title, maxTitleLength),
			Description: truncate(a.describe(ctx, article), maxDescriptionLength),
			URL:         article.URL,
			MediaURL:    article.URLToImage,
			PublishedAt: parsePublishedAt(article.PublishedAt),
		}
		if article.Source.Name != "" {
			item.Topics = []string{article.Source.Name}
		}
		cacheItemMedia(ctx, a.cacher, source, &item, ".jpg")

		if err := a.items.CreateItem(item); err != nil {
			if err == database.ErrDuplicateItem {
				continue
			}
			slog.Warn("Failed to store news article", "source", source.Name, "fingerprint", fingerprint, "error", err)
			continue
		}
		newCount++
	}

	return newCount, nil
}

func (a *NewsAdapter) search(ctx context.Context, query string) ([]newsAPIArticle, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", fmt.Sprintf("%d", articlesPerFetch))

	endpoint := fmt.Sprintf("%s/v2/everything?%s", a.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("X-Api-Key", a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch articles: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Error bodies are JSON with a message on quota and auth failures,
		// but gateways in front of the API return plain HTML.
		var payload newsAPIResponse
		if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
			return nil, fmt.Errorf("news API error: %d %s", resp.StatusCode, payload.Message)
		}
		return nil, fmt.Errorf("news API error: %s", resp.Status)
	}

	var payload newsAPIResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("news API error: %d %s", resp.StatusCode, payload.Message)
	}

	return payload.Articles, nil
}

// describe joins the article's summary and body snippet. When the API ships
// neither, the full article page is fetched and reduced to readable text.
func (a *NewsAdapter) describe(ctx context.Context, article newsAPIArticle) string {
	switch {
	case article.Description != "" && article.Content != "":
		return article.Description + "\n\n" + article.Content
	case article.Description != "":
		return article.Description
	case article.Content != "":
		return article.Content
	}

	if article.URL == "" {
		return ""
	}

	text, err := a.extractArticleText(ctx, article.URL)
	if err != nil {
		slog.Debug("Failed to extract article text", "url", article.URL, "error", err)
		return ""
	}
	return text
}

func (a *NewsAdapter) extractArticleText(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", articleURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read article body: %w", err)
	}

	return a.extractor.Run(data)
}

func parsePublishedAt(value string) time.Time {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}
