package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"smartcache/app/database"
)

type fakeSourceRepo struct {
	sources []database.Source
}

var _ database.SourceRepository = (*fakeSourceRepo)(nil)

func (f *fakeSourceRepo) UpsertSource(name, kind, locator, policy string, active bool) (string, bool, error) {
	return "", false, nil
}

func (f *fakeSourceRepo) GetSource(name string) (*database.Source, error) {
	for i := range f.sources {
		if f.sources[i].Name == name {
			return &f.sources[i], nil
		}
	}
	return nil, nil
}

func (f *fakeSourceRepo) GetActiveSources() ([]database.Source, error) {
	return f.sources, nil
}

func (f *fakeSourceRepo) GetDueSources(now time.Time) ([]database.Source, error) {
	return f.sources, nil
}

func (f *fakeSourceRepo) UpdateNextFetch(sourceID string, next time.Time) error {
	return nil
}

func (f *fakeSourceRepo) GetSourceCount() (int, error) {
	return len(f.sources), nil
}

type stubAdapter struct {
	kind  string
	count int
	err   error
	calls int
}

func (s *stubAdapter) Kind() string {
	return s.kind
}

func (s *stubAdapter) Ingest(ctx context.Context, source database.Source) (int, error) {
	s.calls++
	return s.count, s.err
}

func TestCoordinatorIsolatesFailingSources(t *testing.T) {
	repo := &fakeSourceRepo{sources: []database.Source{
		{ID: "1", Name: "feed-a", Kind: database.SourceKindFeed},
		{ID: "2", Name: "feed-b", Kind: database.SourceKindFeed},
		{ID: "3", Name: "images", Kind: database.SourceKindImage},
		{ID: "4", Name: "videos", Kind: database.SourceKindVideo},
		{ID: "5", Name: "news", Kind: database.SourceKindNews},
	}}

	feedStub := &stubAdapter{kind: database.SourceKindFeed, count: 3}
	imageStub := &stubAdapter{kind: database.SourceKindImage, err: fmt.Errorf("upstream unavailable")}
	videoStub := &stubAdapter{kind: database.SourceKindVideo, count: 2}
	newsStub := &stubAdapter{kind: database.SourceKindNews, count: 1}

	coordinator := NewCoordinator(repo, feedStub, imageStub, videoStub, newsStub)

	summary, err := coordinator.IngestAll(context.Background())
	if err != nil {
		t.Fatalf("IngestAll failed: %v", err)
	}

	if summary.Sources != 5 {
		t.Errorf("Expected 5 sources covered, got %d", summary.Sources)
	}
	if summary.NewItems != 9 {
		t.Errorf("Expected 9 new items (3+3+2+1), got %d", summary.NewItems)
	}
	if len(summary.Errors) != 1 {
		t.Fatalf("Expected 1 error, got %d: %v", len(summary.Errors), summary.Errors)
	}
	if !strings.Contains(summary.Errors[0], "images") || !strings.Contains(summary.Errors[0], "upstream unavailable") {
		t.Errorf("Expected error to name the source and cause, got %q", summary.Errors[0])
	}

	// The failing source must not stop the ones after it.
	if videoStub.calls != 1 || newsStub.calls != 1 {
		t.Errorf("Expected all adapters to run, video=%d news=%d", videoStub.calls, newsStub.calls)
	}
	if summary.PerSource["feed-a"] != 3 || summary.PerSource["feed-b"] != 3 {
		t.Errorf("Unexpected per-source counts: %v", summary.PerSource)
	}
	if _, ok := summary.PerSource["images"]; ok {
		t.Errorf("Failed source must not report a count")
	}
}

func TestCoordinatorRejectsUnknownKind(t *testing.T) {
	repo := &fakeSourceRepo{}
	coordinator := NewCoordinator(repo, &stubAdapter{kind: database.SourceKindFeed})

	_, err := coordinator.IngestOne(context.Background(), database.Source{Name: "odd", Kind: "telegram"})
	if err == nil {
		t.Fatal("Expected error for unsupported source kind")
	}
	if !strings.Contains(err.Error(), "telegram") {
		t.Errorf("Expected kind in error, got %v", err)
	}
}
