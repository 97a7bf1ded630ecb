package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rgeorgiev/taskchat-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, MapError(nil))
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		err := MapError(sql.ErrNoRows)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("wrapped no rows maps to not found", func(t *testing.T) {
		err := MapError(fmt.Errorf("query failed: %w", sql.ErrNoRows))
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("foreign key violation maps to invalid entity", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "chat_messages_task_id_fkey"}
		err := MapError(pgErr)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.Contains(t, err.Error(), "chat_messages_task_id_fkey")
	})

	t.Run("check violation maps to invalid entity", func(t *testing.T) {
		err := MapError(&pgconn.PgError{Code: checkViolationCode})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("not null violation maps to invalid entity", func(t *testing.T) {
		err := MapError(&pgconn.PgError{Code: notNullViolationCode, ColumnName: "body"})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("unknown errors pass through", func(t *testing.T) {
		original := errors.New("connection reset")
		assert.Equal(t, original, MapError(original))
	})
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: foreignKeyViolationCode}))
	assert.False(t, IsForeignKeyViolation(&pgconn.PgError{Code: checkViolationCode}))
	assert.False(t, IsForeignKeyViolation(errors.New("not a pg error")))
}
