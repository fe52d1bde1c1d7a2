package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/davidahmann/reliaansible/internal/api/shared"
	"github.com/davidahmann/reliaansible/internal/platform/postgres"
)

// FeedbackSaver persists feedback rows. Satisfied by the postgres
// feedback store.
type FeedbackSaver interface {
	Save(ctx context.Context, fb postgres.Feedback) (int64, error)
}

// FeedbackResponse acknowledges a stored feedback row.
type FeedbackResponse struct {
	ID         int64  `json:"id"`
	PlaybookID string `json:"playbook_id"`
}

// FeedbackHandler serves POST /v1/feedback. With a nil store (no database
// configured) it answers 503.
type FeedbackHandler struct {
	store  FeedbackSaver
	logger *slog.Logger
}

// NewFeedbackHandler creates a FeedbackHandler. store may be nil when the
// telemetry database is disabled.
func NewFeedbackHandler(store FeedbackSaver, logger *slog.Logger) *FeedbackHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for FeedbackHandler")
	}
	return &FeedbackHandler{
		store:  store,
		logger: logger.With(slog.String("component", "feedback_handler")),
	}
}

// PostFeedback stores a rating for a generated playbook.
func (h *FeedbackHandler) PostFeedback(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Feedback storage is disabled")
		return
	}

	principal, ok := shared.PrincipalFrom(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req FeedbackRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest,
			"playbook_id must be a UUID and rating between 1 and 5")
		return
	}

	id, err := h.store.Save(r.Context(), postgres.Feedback{
		PlaybookID: req.PlaybookID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		UserID:     principal.UserID,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to store feedback", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, FeedbackResponse{
		ID:         id,
		PlaybookID: req.PlaybookID,
	})
}
