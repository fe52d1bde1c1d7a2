package api

import (
	"time"

	"github.com/davidahmann/reliaansible/internal/task"
)

// TaskResponse is the wire form of a task snapshot. Result and error
// payloads are only exposed through the result endpoint.
type TaskResponse struct {
	TaskID      string         `json:"task_id"`
	TaskType    string         `json:"task_type"`
	UserID      string         `json:"user_id"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	Progress    int            `json:"progress"`
	Details     map[string]any `json:"details"`
	HasResult   bool           `json:"has_result"`
	HasError    bool           `json:"has_error"`
}

// TaskListResponse wraps a list of task snapshots.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}

// TaskResultResponse carries the outcome of a terminal task.
type TaskResultResponse struct {
	TaskID string      `json:"task_id"`
	Status string      `json:"status"`
	Result any         `json:"result"`
	Error  *task.Error `json:"error"`
}

// AsyncTaskResponse acknowledges an accepted background operation.
type AsyncTaskResponse struct {
	TaskID     string `json:"task_id"`
	PlaybookID string `json:"playbook_id,omitempty"`
	Status     string `json:"status"`
}

// GenerateTaskRequest asks for a playbook to be generated.
type GenerateTaskRequest struct {
	Module string `json:"module" validate:"required"`
	Prompt string `json:"prompt" validate:"required,min=3"`
}

// PlaybookTaskRequest asks for an operation on a stored playbook.
type PlaybookTaskRequest struct {
	PlaybookID string `json:"playbook_id" validate:"required,uuid"`
}

// FeedbackRequest records a rating for a generated playbook.
type FeedbackRequest struct {
	PlaybookID string `json:"playbook_id" validate:"required,uuid"`
	Rating     int    `json:"rating"      validate:"required,gte=1,lte=5"`
	Comment    string `json:"comment"     validate:"omitempty,max=2000"`
}

func newTaskResponse(snap task.Task) TaskResponse {
	return TaskResponse{
		TaskID:      snap.ID.String(),
		TaskType:    snap.Type,
		UserID:      snap.OwnerID,
		Status:      string(snap.Status),
		CreatedAt:   snap.CreatedAt,
		StartedAt:   snap.StartedAt,
		CompletedAt: snap.CompletedAt,
		Progress:    snap.Progress,
		Details:     snap.Details,
		HasResult:   snap.Result != nil,
		HasError:    snap.Error != nil,
	}
}
