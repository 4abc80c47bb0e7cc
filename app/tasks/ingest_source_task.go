package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"smartcache/app/database"
	"smartcache/app/ingest"
)

type IngestSourceTask struct {
	Task
	Source      database.Source
	coordinator *ingest.Coordinator
	sourceRepo  database.SourceRepository
	interval    time.Duration
}

func NewIngestSourceTask(source database.Source, coordinator *ingest.Coordinator, sourceRepo database.SourceRepository, interval time.Duration) *IngestSourceTask {
	return &IngestSourceTask{
		Task:        NewTask(TaskTypeIngestSource, source.Name),
		Source:      source,
		coordinator: coordinator,
		sourceRepo:  sourceRepo,
		interval:    interval,
	}
}

func (t *IngestSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Push the next fetch out before doing the work, so a failing source is
	// retried through the task retry path instead of being re-enqueued by
	// every scheduler tick.
	nextFetch := time.Now().UTC().Add(t.interval)
	if err := t.sourceRepo.UpdateNextFetch(t.Source.ID, nextFetch); err != nil {
		return fmt.Errorf("failed to update next fetch time: %w", err)
	}

	newCount, err := t.coordinator.IngestOne(ctx, t.Source)
	if err != nil {
		return fmt.Errorf("failed to ingest source: %w", err)
	}

	slog.Info("Task completed",
		"type", "IngestSource",
		"source", t.Source.Name,
		"kind", t.Source.Kind,
		"duration", t.GetDuration(),
		"new", newCount)

	return nil
}
