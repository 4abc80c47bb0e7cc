package tasks

// TaskSchedulerInterface defines the interface for background task
// scheduling. The main application controls the worker pool lifecycle through
// Start/Stop; the API layer uses EnqueueTask to schedule work immediately
// instead of waiting for the next scheduler tick.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
