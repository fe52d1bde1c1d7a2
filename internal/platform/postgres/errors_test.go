package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, MapError(nil))
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		err := MapError(fmt.Errorf("query failed: %w", sql.ErrNoRows))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("check violation maps to invalid record", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: checkViolationCode, ConstraintName: "feedback_rating_check"}
		err := MapError(pgErr)
		assert.ErrorIs(t, err, ErrInvalidRecord)
		assert.Contains(t, err.Error(), "feedback_rating_check")
	})

	t.Run("unique violation maps to invalid record", func(t *testing.T) {
		err := MapError(&pgconn.PgError{Code: uniqueViolationCode})
		assert.ErrorIs(t, err, ErrInvalidRecord)
	})

	t.Run("unknown errors pass through unchanged", func(t *testing.T) {
		orig := errors.New("connection reset")
		assert.Equal(t, orig, MapError(orig))
	})
}
