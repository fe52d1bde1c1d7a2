package postgres

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/davidahmann/reliaansible/internal/task"
)

// TelemetryStore persists task lifecycle events. It implements
// task.Recorder; insert failures are logged and swallowed so telemetry
// never disturbs task execution.
type TelemetryStore struct {
	db     DBTX
	logger *slog.Logger
}

var _ task.Recorder = (*TelemetryStore)(nil)

// NewTelemetryStore creates a telemetry store backed by the given executor.
func NewTelemetryStore(db DBTX, logger *slog.Logger) *TelemetryStore {
	return &TelemetryStore{
		db:     db,
		logger: logger.With("component", "telemetry_store"),
	}
}

// TelemetryEvent is a persisted task lifecycle event.
type TelemetryEvent struct {
	ID        int64          `json:"id"`
	EventType string         `json:"event_type"`
	TaskID    string         `json:"task_id"`
	TaskType  string         `json:"task_type"`
	UserID    string         `json:"user_id"`
	Status    string         `json:"status"`
	EventData map[string]any `json:"event_data"`
	CreatedAt time.Time      `json:"created_at"`
}

// RecordTaskEvent inserts one telemetry row for a task lifecycle event.
func (s *TelemetryStore) RecordTaskEvent(ctx context.Context, event string, snap task.Task) {
	data := map[string]any{
		"progress": snap.Progress,
	}
	if len(snap.Details) > 0 {
		data["details"] = snap.Details
	}
	if snap.Error != nil {
		data["error_kind"] = snap.Error.Kind
		data["error_message"] = snap.Error.Message
	}

	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode telemetry event",
			"event", event,
			"task_id", snap.ID,
			"error", err)
		return
	}

	userID := snap.OwnerID
	if userID == "" {
		userID = "anonymous"
	}

	query := `
		INSERT INTO telemetry (event_type, task_id, task_type, user_id, status, event_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(ctx, query,
		event,
		snap.ID,
		snap.Type,
		userID,
		string(snap.Status),
		payload,
		time.Now().UTC(),
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record telemetry event",
			"event", event,
			"task_id", snap.ID,
			"error", MapError(err))
	}
}

// RecentEvents returns up to limit telemetry rows, newest first,
// optionally filtered by event type.
func (s *TelemetryStore) RecentEvents(ctx context.Context, eventType string, limit int) ([]TelemetryEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, event_type, task_id, task_type, user_id, status, event_data, created_at
		FROM telemetry
	`
	args := []any{}
	if eventType != "" {
		query += ` WHERE event_type = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, eventType, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var events []TelemetryEvent
	for rows.Next() {
		var ev TelemetryEvent
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.TaskID, &ev.TaskType,
			&ev.UserID, &ev.Status, &payload, &ev.CreatedAt); err != nil {
			return nil, MapError(err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &ev.EventData); err != nil {
				s.logger.WarnContext(ctx, "telemetry row has malformed event data",
					"id", ev.ID, "error", err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return events, nil
}
