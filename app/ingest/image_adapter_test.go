package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"smartcache/app/database"
)

const testImageAPIResponse = `{
	"memes": [
		{
			"postLink": "https://redd.it/post1",
			"subreddit": "ProgrammerHumor",
			"title": "First post",
			"url": "https://i.redd.it/post1.png",
			"nsfw": false,
			"author": "alice",
			"ups": 1234
		},
		{
			"postLink": "https://redd.it/post2",
			"subreddit": "ProgrammerHumor",
			"title": "Not safe",
			"url": "https://i.redd.it/post2.png",
			"nsfw": true,
			"author": "bob",
			"ups": 99
		},
		{
			"postLink": "https://redd.it/post3",
			"subreddit": "ProgrammerHumor",
			"title": "Third post",
			"url": "https://i.redd.it/post3.jpg",
			"nsfw": false,
			"author": "carol",
			"ups": 7
		}
	]
}`

func TestImageAdapterSkipsNSFWPosts(t *testing.T) {
	var requestedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testImageAPIResponse))
	}))
	defer server.Close()

	repo := newFakeItemRepo()
	adapter := NewImageAdapter(server.Client(), repo, nil, "test-agent")
	adapter.baseURL = server.URL

	source := database.Source{
		ID:      "src-1",
		Name:    "programmer-humor",
		Kind:    database.SourceKindImage,
		Locator: "ProgrammerHumor",
		Policy:  database.PolicyMetadataOnly,
	}

	count, err := adapter.Ingest(context.Background(), source)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if requestedPath != "/gimme/ProgrammerHumor/20" {
		t.Errorf("Unexpected request path: %q", requestedPath)
	}
	if count != 2 {
		t.Errorf("Expected 2 new items with NSFW skipped, got %d", count)
	}

	for _, item := range repo.created {
		if item.Title == "Not safe" {
			t.Errorf("NSFW post was ingested")
		}
		if !strings.HasPrefix(item.Fingerprint, "image_") {
			t.Errorf("Expected image_ fingerprint prefix, got %q", item.Fingerprint)
		}
	}

	first := repo.created[0]
	if first.Description != "Posted by u/alice on r/ProgrammerHumor | 1234 upvotes" {
		t.Errorf("Unexpected description: %q", first.Description)
	}
	if first.MediaURL != "https://i.redd.it/post1.png" {
		t.Errorf("Expected image URL as media URL, got %q", first.MediaURL)
	}
	if len(first.Topics) != 1 || first.Topics[0] != "ProgrammerHumor" {
		t.Errorf("Expected subreddit as topic, got %v", first.Topics)
	}
}

func TestImageAdapterSecondRunIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testImageAPIResponse))
	}))
	defer server.Close()

	repo := newFakeItemRepo()
	adapter := NewImageAdapter(server.Client(), repo, nil, "test-agent")
	adapter.baseURL = server.URL

	source := database.Source{
		ID:      "src-1",
		Name:    "programmer-humor",
		Kind:    database.SourceKindImage,
		Locator: "ProgrammerHumor",
		Policy:  database.PolicyMetadataOnly,
	}

	if _, err := adapter.Ingest(context.Background(), source); err != nil {
		t.Fatalf("First ingest failed: %v", err)
	}

	count, err := adapter.Ingest(context.Background(), source)
	if err != nil {
		t.Fatalf("Second ingest failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 new items on second run, got %d", count)
	}
}
