package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"smartcache/app/database"
)

const testNewsAPIResponse = `{
	"status": "ok",
	"articles": [
		{
			"source": {"name": "Example Times"},
			"author": "Jane Reporter",
			"title": "Go release announced",
			"description": "A new Go version is out.",
			"url": "https://news.example.com/go-release",
			"urlToImage": "https://news.example.com/go.jpg",
			"publishedAt": "2024-05-01T10:00:00Z",
			"content": "The Go team announced a new release today."
		},
		{
			"source": {"name": "Example Times"},
			"title": "",
			"description": "Orphaned blurb with nothing to identify it.",
			"url": "",
			"publishedAt": "2024-05-01T11:00:00Z"
		}
	]
}`

func newsTestSource(query string) database.Source {
	return database.Source{
		ID:      "src-1",
		Name:    "golang-news",
		Kind:    database.SourceKindNews,
		Locator: query,
		Policy:  database.PolicyMetadataOnly,
	}
}

func TestNewsAdapterIngestsArticles(t *testing.T) {
	var gotQuery string
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testNewsAPIResponse))
	}))
	defer server.Close()

	repo := newFakeItemRepo()
	adapter := NewNewsAdapter(server.Client(), repo, nil, "test-agent", "secret-key")
	adapter.baseURL = server.URL

	count, err := adapter.Ingest(context.Background(), newsTestSource("golang"))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if gotQuery != "golang" {
		t.Errorf("Expected query golang, got %q", gotQuery)
	}
	if gotKey != "secret-key" {
		t.Errorf("Expected API key header, got %q", gotKey)
	}
	if count != 1 {
		t.Errorf("Expected 1 new item with unidentifiable article skipped, got %d", count)
	}

	item := repo.created[0]
	if !strings.HasPrefix(item.Fingerprint, "news_") {
		t.Errorf("Expected news_ fingerprint prefix, got %q", item.Fingerprint)
	}
	if !strings.Contains(item.Description, "A new Go version is out.") ||
		!strings.Contains(item.Description, "The Go team announced a new release today.") {
		t.Errorf("Expected description and content to be joined, got %q", item.Description)
	}
	if item.MediaURL != "https://news.example.com/go.jpg" {
		t.Errorf("Expected article image as media URL, got %q", item.MediaURL)
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if !item.PublishedAt.Equal(want) {
		t.Errorf("Expected published_at %v, got %v", want, item.PublishedAt)
	}
}

func TestNewsAdapterRequiresAPIKey(t *testing.T) {
	repo := newFakeItemRepo()
	adapter := NewNewsAdapter(http.DefaultClient, repo, nil, "test-agent", "")

	_, err := adapter.Ingest(context.Background(), newsTestSource("golang"))
	if err == nil {
		t.Fatal("Expected error without API key")
	}
	if !strings.Contains(err.Error(), "API key") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestNewsAdapterAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"status": "error", "message": "rate limited"}`))
	}))
	defer server.Close()

	repo := newFakeItemRepo()
	adapter := NewNewsAdapter(server.Client(), repo, nil, "test-agent", "secret-key")
	adapter.baseURL = server.URL

	_, err := adapter.Ingest(context.Background(), newsTestSource("golang"))
	if err == nil {
		t.Fatal("Expected error for API error response")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("Expected upstream message in error, got %v", err)
	}
}

func TestNewsAdapterNonJSONErrorSurfacesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("<html><body>Service Unavailable</body></html>"))
	}))
	defer server.Close()

	repo := newFakeItemRepo()
	adapter := NewNewsAdapter(server.Client(), repo, nil, "test-agent", "secret-key")
	adapter.baseURL = server.URL

	_, err := adapter.Ingest(context.Background(), newsTestSource("golang"))
	if err == nil {
		t.Fatal("Expected error for non-JSON error response")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("Expected HTTP status in error, got %v", err)
	}
	if strings.Contains(err.Error(), "decode") {
		t.Errorf("Expected status error, not a decode error: %v", err)
	}
}
