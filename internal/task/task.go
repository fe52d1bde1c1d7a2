package task

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a task.
type Status string

// Possible task status values.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// Error kind values recorded on failed tasks.
const (
	ErrorKindExecution = "execution"
	ErrorKindPanic     = "panic"
)

// Error describes why a task failed. It is captured from the submitted
// callable and stored on the task; it is never re-raised to the submitter.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Kind + ": " + e.Message
}

// Task is the lifecycle record for a unit of background work. The queue
// exclusively owns the authoritative record; every read returns a snapshot,
// so callers can never mutate queue state through a Task value.
type Task struct {
	ID          uuid.UUID      `json:"task_id"`
	Type        string         `json:"task_type"`
	OwnerID     string         `json:"owner_id"`
	Status      Status         `json:"status"`
	Progress    int            `json:"progress"`
	Details     map[string]any `json:"details"`
	Result      any            `json:"result,omitempty"`
	Error       *Error         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`

	// submitted guards against a second Submit while the task is still
	// observably pending in the pool backlog.
	submitted bool
}

// snapshot returns a copy safe to hand outside the registry lock. Details
// is copied; Result and Error are treated as immutable once set.
func (t *Task) snapshot() Task {
	cp := *t
	cp.Details = make(map[string]any, len(t.Details))
	for k, v := range t.Details {
		cp.Details[k] = v
	}
	if t.StartedAt != nil {
		started := *t.StartedAt
		cp.StartedAt = &started
	}
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		cp.CompletedAt = &completed
	}
	if t.Error != nil {
		e := *t.Error
		cp.Error = &e
	}
	return cp
}
