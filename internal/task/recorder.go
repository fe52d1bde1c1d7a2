package task

import "context"

// Telemetry event names emitted by the queue.
const (
	EventTaskCreated   = "task_created"
	EventTaskStarted   = "task_started"
	EventTaskCompleted = "task_completed"
	EventTaskFailed    = "task_failed"
	EventTaskCanceled  = "task_canceled"
)

// Recorder receives lifecycle events for tasks. Implementations must not
// block for long; the queue calls them outside its registry lock but on the
// caller's or worker's goroutine.
type Recorder interface {
	RecordTaskEvent(ctx context.Context, event string, snap Task)
}

// NoopRecorder discards all events. Used when telemetry is disabled.
type NoopRecorder struct{}

func (NoopRecorder) RecordTaskEvent(context.Context, string, Task) {}
