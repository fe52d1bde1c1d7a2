package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/davidahmann/reliaansible/internal/api/shared"
	"github.com/davidahmann/reliaansible/internal/service"
	"github.com/davidahmann/reliaansible/internal/task"
)

const defaultTaskListLimit = 50

// TaskHandler serves the task endpoints and the async playbook
// operations that submit work to the queue.
type TaskHandler struct {
	queue     *task.Queue
	playbooks *service.PlaybookService
	logger    *slog.Logger
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(queue *task.Queue, playbooks *service.PlaybookService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}
	return &TaskHandler{
		queue:     queue,
		playbooks: playbooks,
		logger:    logger.With(slog.String("component", "task_handler")),
	}
}

// ListTasks handles GET /v1/tasks. It returns the caller's tasks in
// creation order, capped by the limit query parameter. When the caller has
// more tasks than the limit, the newest tasks win and older ones are
// dropped from the response.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFrom(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit := defaultTaskListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	snaps := h.queue.List(principal.UserID)
	if len(snaps) > limit {
		snaps = snaps[len(snaps)-limit:]
	}

	resp := TaskListResponse{Tasks: make([]TaskResponse, 0, len(snaps))}
	for _, snap := range snaps {
		resp.Tasks = append(resp.Tasks, newTaskResponse(snap))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetTask handles GET /v1/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	snap, err := h.queue.Get(id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newTaskResponse(snap))
}

// GetTaskResult handles GET /v1/tasks/{id}/result. Results exist only for
// completed or failed tasks; anything else is a 400.
func (h *TaskHandler) GetTaskResult(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	snap, err := h.queue.Get(id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	if snap.Status != task.StatusCompleted && snap.Status != task.StatusFailed {
		shared.RespondWithError(w, r, http.StatusBadRequest,
			"Task is not complete (status: "+string(snap.Status)+")")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskResultResponse{
		TaskID: snap.ID.String(),
		Status: string(snap.Status),
		Result: snap.Result,
		Error:  snap.Error,
	})
}

// CancelTask handles POST /v1/tasks/{id}/cancel. Only pending tasks can be
// canceled; a running or terminal task yields a 409.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	canceled, err := h.queue.Cancel(id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	if !canceled {
		shared.RespondWithError(w, r, http.StatusConflict,
			"Task is not in a state that allows cancellation")
		return
	}

	snap, err := h.queue.Get(id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newTaskResponse(snap))
}

// AsyncGenerate handles POST /v1/async/generate. It creates a generation
// task and returns 202 immediately.
func (h *TaskHandler) AsyncGenerate(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFrom(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req GenerateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "module and prompt are required")
		return
	}

	snap := h.queue.Create("generate", principal.UserID)
	job := h.playbooks.GenerateJob(req.Module, req.Prompt, h.progressFor(snap.ID))
	if err := h.queue.Submit(snap.ID, job); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, AsyncTaskResponse{
		TaskID: snap.ID.String(),
		Status: string(snap.Status),
	})
}

// AsyncLint handles POST /v1/async/lint.
func (h *TaskHandler) AsyncLint(w http.ResponseWriter, r *http.Request) {
	h.asyncPlaybookOp(w, r, "lint", h.playbooks.LintJob)
}

// AsyncTest handles POST /v1/async/test.
func (h *TaskHandler) AsyncTest(w http.ResponseWriter, r *http.Request) {
	h.asyncPlaybookOp(w, r, "test", h.playbooks.TestJob)
}

func (h *TaskHandler) asyncPlaybookOp(
	w http.ResponseWriter,
	r *http.Request,
	taskType string,
	jobFor func(playbookID string, report service.ProgressFunc) task.Func,
) {
	principal, ok := shared.PrincipalFrom(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req PlaybookTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "playbook_id must be a UUID")
		return
	}

	snap := h.queue.Create(taskType, principal.UserID)
	job := jobFor(req.PlaybookID, h.progressFor(snap.ID))
	if err := h.queue.Submit(snap.ID, job); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, AsyncTaskResponse{
		TaskID:     snap.ID.String(),
		PlaybookID: req.PlaybookID,
		Status:     string(snap.Status),
	})
}

// progressFor wires a job's progress reports to the queue. Reports against
// a task that has moved out of RUNNING are dropped.
func (h *TaskHandler) progressFor(id uuid.UUID) service.ProgressFunc {
	return func(percent int, details map[string]any) {
		if err := h.queue.UpdateProgress(id, percent, details); err != nil {
			h.logger.Debug("dropped progress update",
				"task_id", id,
				"percent", percent,
				"error", err)
		}
	}
}

func (h *TaskHandler) taskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return uuid.Nil, false
	}
	return id, true
}
