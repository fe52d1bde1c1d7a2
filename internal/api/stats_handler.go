package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/davidahmann/reliaansible/internal/api/middleware"
	"github.com/davidahmann/reliaansible/internal/api/shared"
	"github.com/davidahmann/reliaansible/internal/platform/postgres"
)

// TelemetryReader reads recorded task lifecycle events. Satisfied by the
// postgres telemetry store.
type TelemetryReader interface {
	RecentEvents(ctx context.Context, eventType string, limit int) ([]postgres.TelemetryEvent, error)
}

// FeedbackReader reads stored feedback rows. Satisfied by the postgres
// feedback store.
type FeedbackReader interface {
	List(ctx context.Context, playbookID string, limit int) ([]postgres.Feedback, error)
}

// FeedbackStatsResponse summarizes recent feedback.
type FeedbackStatsResponse struct {
	TotalFeedback  int                 `json:"total_feedback"`
	AverageRating  float64             `json:"average_rating"`
	RatingCounts   map[int]int         `json:"rating_counts"`
	RecentFeedback []postgres.Feedback `json:"recent_feedback"`
}

// TelemetryStatsResponse summarizes recent telemetry events.
type TelemetryStatsResponse struct {
	TotalEvents  int                       `json:"total_events"`
	EventCounts  map[string]int            `json:"event_counts"`
	RecentEvents []postgres.TelemetryEvent `json:"recent_events"`
}

const (
	feedbackStatsWindow  = 50
	telemetryStatsWindow = 100
	defaultHistoryLimit  = 50
)

// StatsHandler serves the telemetry-backed read surface: task history,
// admin feedback/telemetry statistics, and in-process request metrics.
// Both stores may be nil when no database is configured.
type StatsHandler struct {
	telemetry TelemetryReader
	feedback  FeedbackReader
	metrics   *middleware.Metrics
	logger    *slog.Logger
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(telemetry TelemetryReader, feedback FeedbackReader, metrics *middleware.Metrics, logger *slog.Logger) *StatsHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for StatsHandler")
	}
	return &StatsHandler{
		telemetry: telemetry,
		feedback:  feedback,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "stats_handler")),
	}
}

// History handles GET /v1/history. It returns recent task lifecycle
// events, newest first, optionally filtered by the event query parameter.
// Without a database the history is empty rather than an error.
func (h *StatsHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.telemetry == nil {
		shared.RespondWithJSON(w, r, http.StatusOK, []postgres.TelemetryEvent{})
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	events, err := h.telemetry.RecentEvents(r.Context(), r.URL.Query().Get("event"), limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to load history", err)
		return
	}
	if events == nil {
		events = []postgres.TelemetryEvent{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, events)
}

// FeedbackStats handles GET /api/admin/stats/feedback.
func (h *StatsHandler) FeedbackStats(w http.ResponseWriter, r *http.Request) {
	if h.feedback == nil {
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Feedback storage is disabled")
		return
	}

	recent, err := h.feedback.List(r.Context(), "", feedbackStatsWindow)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to load feedback", err)
		return
	}

	resp := FeedbackStatsResponse{
		TotalFeedback:  len(recent),
		RatingCounts:   map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		RecentFeedback: recent,
	}
	if resp.RecentFeedback == nil {
		resp.RecentFeedback = []postgres.Feedback{}
	}
	if len(recent) > 0 {
		sum := 0
		for _, fb := range recent {
			sum += fb.Rating
			resp.RatingCounts[fb.Rating]++
		}
		resp.AverageRating = float64(sum) / float64(len(recent))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// TelemetryStats handles GET /api/admin/stats/telemetry.
func (h *StatsHandler) TelemetryStats(w http.ResponseWriter, r *http.Request) {
	if h.telemetry == nil {
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Telemetry storage is disabled")
		return
	}

	recent, err := h.telemetry.RecentEvents(r.Context(), "", telemetryStatsWindow)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to load telemetry", err)
		return
	}

	resp := TelemetryStatsResponse{
		TotalEvents:  len(recent),
		EventCounts:  make(map[string]int),
		RecentEvents: recent,
	}
	if resp.RecentEvents == nil {
		resp.RecentEvents = []postgres.TelemetryEvent{}
	}
	for _, ev := range recent {
		resp.EventCounts[ev.EventType]++
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Metrics handles GET /metrics with a snapshot of the request counters.
func (h *StatsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Metrics collection is disabled")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, h.metrics.Snapshot())
}
