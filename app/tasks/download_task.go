package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"smartcache/app/download"
)

type DownloadTask struct {
	Task
	RequestID string
	engine    *download.Engine
}

func NewDownloadTask(requestID string, engine *download.Engine) *DownloadTask {
	task := NewTask(TaskTypeDownload, requestID)
	// The engine drives every execution to a terminal status, so a failed
	// download is a recorded outcome, not a transient error to retry.
	task.MaxRetries = 0

	return &DownloadTask{
		Task:      task,
		RequestID: requestID,
		engine:    engine,
	}
}

func (t *DownloadTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.engine.Execute(ctx, t.RequestID); err != nil {
		return fmt.Errorf("failed to execute download: %w", err)
	}

	slog.Info("Task completed",
		"type", "Download",
		"request_id", t.RequestID,
		"duration", t.GetDuration())

	return nil
}
