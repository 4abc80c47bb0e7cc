package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"smartcache/app/cfg"
	"smartcache/app/database"
	"smartcache/app/download"
	"smartcache/app/ingest"
)

const queuedDownloadBatchSize = 100

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	sourceRepo   database.SourceRepository
	downloadRepo database.DownloadRepository
	coordinator  *ingest.Coordinator
	engine       *download.Engine
	interval     time.Duration
	workerCount  int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	taskQueue    chan TaskInterface
}

func NewScheduler(sourceRepo database.SourceRepository, downloadRepo database.DownloadRepository,
	coordinator *ingest.Coordinator, engine *download.Engine) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		sourceRepo:   sourceRepo,
		downloadRepo: downloadRepo,
		coordinator:  coordinator,
		engine:       engine,
		interval:     time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount:  cfg.WorkerCount,
		ctx:          ctx,
		cancel:       cancel,
		taskQueue:    make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()

}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueTasks() {
	s.enqueueDueSources()
	s.enqueueQueuedDownloads()
}

func (s *Scheduler) enqueueDueSources() {
	sources, err := s.sourceRepo.GetDueSources(time.Now().UTC())
	if err != nil {
		slog.Warn("Failed to load due sources", "error", err)
		return
	}
	if len(sources) == 0 {
		slog.Debug("No sources due for ingestion")
		return
	}

	slog.Debug("Scheduling source ingestion", "count", len(sources))

	for _, source := range sources {
		task := NewIngestSourceTask(source, s.coordinator, s.sourceRepo, s.interval)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue IngestSourceTask", "source", source.Name, "error", err)
		}
	}
}

// enqueueQueuedDownloads picks up requests still queued in the database,
// e.g. ones enqueued right before a restart. The download engine skips
// anything a worker already claimed, so scheduling twice is harmless.
func (s *Scheduler) enqueueQueuedDownloads() {
	requests, err := s.downloadRepo.GetRequestsByStatus(database.StatusQueued, queuedDownloadBatchSize)
	if err != nil {
		slog.Warn("Failed to load queued download requests", "error", err)
		return
	}
	if len(requests) == 0 {
		return
	}

	slog.Debug("Scheduling queued downloads", "count", len(requests))

	for _, req := range requests {
		task := NewDownloadTask(req.ID, s.engine)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue DownloadTask", "request_id", req.ID, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "subject", task.GetSubject(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
