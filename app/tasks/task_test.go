package tasks

import (
	"testing"
	"time"
)

func TestNewTaskDefaults(t *testing.T) {
	task := NewTask(TaskTypeIngestSource, "npr-news")

	if task.ID == "" {
		t.Error("Expected non-empty task ID")
	}
	if task.GetType() != TaskTypeIngestSource {
		t.Errorf("Expected type %s, got %s", TaskTypeIngestSource, task.GetType())
	}
	if task.GetSubject() != "npr-news" {
		t.Errorf("Expected subject npr-news, got %s", task.GetSubject())
	}
	if task.GetMaxRetries() != DefaultMaxRetries {
		t.Errorf("Expected max retries %d, got %d", DefaultMaxRetries, task.GetMaxRetries())
	}
}

func TestTaskRetryCounting(t *testing.T) {
	task := NewTask(TaskTypeIngestSource, "npr-news")

	for i := 0; i < DefaultMaxRetries; i++ {
		if !task.CanRetry() {
			t.Fatalf("Expected retry %d to be allowed", i+1)
		}
		task.IncrementRetryCount()
	}

	if task.CanRetry() {
		t.Error("Expected retries to be exhausted")
	}
	if task.GetRetryCount() != DefaultMaxRetries {
		t.Errorf("Expected retry count %d, got %d", DefaultMaxRetries, task.GetRetryCount())
	}
}

func TestDownloadTaskNeverRetries(t *testing.T) {
	task := NewDownloadTask("req-1", nil)

	if task.CanRetry() {
		t.Error("Download tasks must not retry: failed downloads are terminal outcomes")
	}
	if task.GetType() != TaskTypeDownload {
		t.Errorf("Expected type %s, got %s", TaskTypeDownload, task.GetType())
	}
}

func TestTaskDuration(t *testing.T) {
	task := NewTask(TaskTypeDownload, "req-1")

	if task.GetDuration() != 0 {
		t.Error("Expected zero duration before Start")
	}

	task.Start()
	time.Sleep(10 * time.Millisecond)

	if task.GetDuration() <= 0 {
		t.Error("Expected positive duration after Start")
	}
}

func TestTaskIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		task := NewTask(TaskTypeIngestSource, "src")
		if seen[task.ID] {
			t.Fatalf("Duplicate task ID: %s", task.ID)
		}
		seen[task.ID] = true
	}
}
