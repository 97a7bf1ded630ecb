package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/rgeorgiev/taskchat-api/internal/domain"
)

// MessageStore defines the interface for chat message persistence.
// The message log is append-mostly: rows are created once, edited or
// soft-deleted only by their sender, and never hard-deleted.
type MessageStore interface {
	// Create saves a new chat message and returns the canonical row with
	// the sender's display name populated. The returned row, not the
	// caller's copy, is what gets broadcast and delivered.
	// Returns ErrInvalidEntity if the task or sender does not exist.
	Create(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error)

	// GetByID retrieves a message by its unique ID, including soft-deleted
	// rows. Returns ErrMessageNotFound if the message does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ChatMessage, error)

	// UpdateBody applies an ownership-matched conditional edit: the row is
	// updated only when it matches both the message ID and the sender ID
	// and has not been soft-deleted. Zero matched rows returns
	// ErrNoRowsUpdated without disclosing whether the message is missing
	// or foreign. On success the canonical updated row is returned.
	UpdateBody(ctx context.Context, id, senderID uuid.UUID, body string) (*domain.ChatMessage, error)

	// SoftDelete applies an ownership-matched conditional soft delete,
	// setting the deleted flag and timestamp. Same zero-rows semantics as
	// UpdateBody.
	SoftDelete(ctx context.Context, id, senderID uuid.UUID) error

	// ListByTask returns one page of a task's messages in ascending
	// creation order. Soft-deleted rows are included as placeholders with
	// blanked bodies and attachments.
	ListByTask(ctx context.Context, taskID uuid.UUID, limit, offset int) ([]*domain.ChatMessage, error)

	// CountByTask returns the task's message count, excluding soft-deleted
	// rows.
	CountByTask(ctx context.Context, taskID uuid.UUID) (int64, error)
}
