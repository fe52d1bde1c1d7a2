package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Feedback is a user rating for a generated playbook.
type Feedback struct {
	ID         int64     `json:"id"`
	PlaybookID string    `json:"playbook_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// FeedbackStore persists playbook feedback rows.
type FeedbackStore struct {
	db     DBTX
	logger *slog.Logger
}

// NewFeedbackStore creates a feedback store backed by the given executor.
func NewFeedbackStore(db DBTX, logger *slog.Logger) *FeedbackStore {
	return &FeedbackStore{
		db:     db,
		logger: logger.With("component", "feedback_store"),
	}
}

// Save inserts a feedback row and returns its generated ID. The rating
// range is enforced by a database check constraint; violations surface as
// ErrInvalidRecord.
func (s *FeedbackStore) Save(ctx context.Context, fb Feedback) (int64, error) {
	if fb.UserID == "" {
		fb.UserID = "anonymous"
	}

	query := `
		INSERT INTO feedback (playbook_id, rating, comment, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		fb.PlaybookID,
		fb.Rating,
		fb.Comment,
		fb.UserID,
		time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save feedback: %w", MapError(err))
	}

	s.logger.InfoContext(ctx, "recorded feedback",
		"playbook_id", fb.PlaybookID,
		"rating", fb.Rating)
	return id, nil
}

// List returns up to limit feedback rows, newest first, optionally
// filtered by playbook.
func (s *FeedbackStore) List(ctx context.Context, playbookID string, limit int) ([]Feedback, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, playbook_id, rating, comment, user_id, created_at
		FROM feedback
	`
	args := []any{}
	if playbookID != "" {
		query += ` WHERE playbook_id = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, playbookID, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []Feedback
	for rows.Next() {
		var fb Feedback
		if err := rows.Scan(&fb.ID, &fb.PlaybookID, &fb.Rating, &fb.Comment, &fb.UserID, &fb.CreatedAt); err != nil {
			return nil, MapError(err)
		}
		out = append(out, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}
