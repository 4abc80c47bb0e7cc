package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"smartcache/app/database"
)

// Summary reports the outcome of one ingestion run across sources.
type Summary struct {
	Sources   int            `json:"sources"`
	NewItems  int            `json:"new_items"`
	PerSource map[string]int `json:"per_source"`
	Errors    []string       `json:"errors,omitempty"`
}

// Coordinator routes each active source to the adapter matching its kind and
// aggregates the results. One failing source never aborts the run.
type Coordinator struct {
	adapters map[string]Adapter
	sources  database.SourceRepository
}

func NewCoordinator(sources database.SourceRepository, adapters ...Adapter) *Coordinator {
	byKind := make(map[string]Adapter, len(adapters))
	for _, adapter := range adapters {
		byKind[adapter.Kind()] = adapter
	}
	return &Coordinator{
		adapters: byKind,
		sources:  sources,
	}
}

// IngestAll runs ingestion for every active source. The returned summary
// always covers all sources: failures are recorded per source, not raised.
func (c *Coordinator) IngestAll(ctx context.Context) (*Summary, error) {
	sources, err := c.sources.GetActiveSources()
	if err != nil {
		return nil, fmt.Errorf("failed to load active sources: %w", err)
	}

	summary := &Summary{PerSource: make(map[string]int, len(sources))}

	for _, source := range sources {
		summary.Sources++

		count, err := c.IngestOne(ctx, source)
		if err != nil {
			slog.Error("Source ingestion failed", "source", source.Name, "kind", source.Kind, "error", err)
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", source.Name, err))
			continue
		}

		summary.PerSource[source.Name] = count
		summary.NewItems += count
	}

	slog.Info("Ingestion run finished",
		"sources", summary.Sources, "new_items", summary.NewItems, "errors", len(summary.Errors))

	return summary, nil
}

// IngestOne runs a single source through its adapter and returns the number
// of newly catalogued items.
func (c *Coordinator) IngestOne(ctx context.Context, source database.Source) (int, error) {
	adapter, ok := c.adapters[source.Kind]
	if !ok {
		return 0, fmt.Errorf("no adapter registered for source kind: %s", source.Kind)
	}

	start := time.Now()
	count, err := adapter.Ingest(ctx, source)
	if err != nil {
		return 0, err
	}

	slog.Debug("Source ingested",
		"source", source.Name, "kind", source.Kind, "new_items", count,
		"duration", time.Since(start).Round(time.Millisecond))

	return count, nil
}
