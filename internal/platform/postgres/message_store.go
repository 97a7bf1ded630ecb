package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rgeorgiev/taskchat-api/internal/domain"
	"github.com/rgeorgiev/taskchat-api/internal/platform/logger"
	"github.com/rgeorgiev/taskchat-api/internal/store"
)

// PostgresMessageStore implements the store.MessageStore interface
// using a PostgreSQL database as the storage backend.
type PostgresMessageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMessageStore creates a new PostgreSQL implementation of the
// MessageStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresMessageStore(db store.DBTX, logger *slog.Logger) *PostgresMessageStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMessageStore{
		db:     db,
		logger: logger.With(slog.String("component", "message_store")),
	}
}

// Ensure PostgresMessageStore implements store.MessageStore interface
var _ store.MessageStore = (*PostgresMessageStore)(nil)

// messageColumns is the select list shared by every read in this store.
// Sender display name comes from the users table; a dropped user account
// leaves the name empty rather than hiding the message.
const messageColumns = `
	m.id, m.task_id, m.sender_id, COALESCE(u.display_name, ''),
	m.body, m.attachments, m.reply_to,
	m.is_edited, m.edited_at, m.is_deleted, m.deleted_at, m.created_at
`

// Create implements store.MessageStore.Create.
// It persists the message in a single insert and returns the canonical row
// with the sender display name populated.
func (s *PostgresMessageStore) Create(
	ctx context.Context,
	msg *domain.ChatMessage,
) (*domain.ChatMessage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := msg.Validate(); err != nil {
		log.Warn("message validation failed during create",
			slog.String("error", err.Error()),
			slog.String("message_id", msg.ID.String()))
		return nil, err
	}

	attachments, err := json.Marshal(msg.Attachments)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attachments: %w", err)
	}

	query := `
		INSERT INTO chat_messages (id, task_id, sender_id, body, attachments, reply_to, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		msg.ID,
		msg.TaskID,
		msg.SenderID,
		msg.Body,
		attachments,
		msg.ReplyTo,
		msg.CreatedAt,
	)

	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrInvalidEntity) {
			log.Warn("foreign key violation during message creation",
				slog.String("error", err.Error()),
				slog.String("message_id", msg.ID.String()),
				slog.String("task_id", msg.TaskID.String()))
			return nil, mapped
		}

		log.Error("failed to create chat message",
			slog.String("error", err.Error()),
			slog.String("message_id", msg.ID.String()),
			slog.String("task_id", msg.TaskID.String()))
		return nil, mapped
	}

	log.Info("chat message created",
		slog.String("message_id", msg.ID.String()),
		slog.String("task_id", msg.TaskID.String()),
		slog.String("sender_id", msg.SenderID.String()))

	// Re-read so the caller gets the row exactly as later history fetches
	// will see it, sender display name included.
	return s.GetByID(ctx, msg.ID)
}

// GetByID implements store.MessageStore.GetByID.
// Soft-deleted rows are returned as stored; callers decide about blanking.
func (s *PostgresMessageStore) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*domain.ChatMessage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := fmt.Sprintf(`
		SELECT %s
		FROM chat_messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.id = $1
	`, messageColumns)

	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("chat message not found", slog.String("message_id", id.String()))
			return nil, store.ErrMessageNotFound
		}
		log.Error("failed to get chat message by ID",
			slog.String("error", err.Error()),
			slog.String("message_id", id.String()))
		return nil, MapError(err)
	}

	return msg, nil
}

// UpdateBody implements store.MessageStore.UpdateBody.
// The update matches id, sender and the not-deleted flag in one statement so
// ownership enforcement and the edit are atomic.
func (s *PostgresMessageStore) UpdateBody(
	ctx context.Context,
	id, senderID uuid.UUID,
	body string,
) (*domain.ChatMessage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if body == "" {
		return nil, domain.ErrMessageBodyEmpty
	}

	query := `
		UPDATE chat_messages
		SET body = $1, is_edited = TRUE, edited_at = $2
		WHERE id = $3 AND sender_id = $4 AND is_deleted = FALSE
	`

	result, err := s.db.ExecContext(ctx, query, body, time.Now().UTC(), id, senderID)
	if err != nil {
		log.Error("failed to update chat message body",
			slog.String("error", err.Error()),
			slog.String("message_id", id.String()))
		return nil, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Nonexistent and foreign messages are indistinguishable here on
		// purpose; the caller maps this to its authorization error.
		log.Debug("conditional message update matched no rows",
			slog.String("message_id", id.String()),
			slog.String("sender_id", senderID.String()))
		return nil, store.ErrNoRowsUpdated
	}

	return s.GetByID(ctx, id)
}

// SoftDelete implements store.MessageStore.SoftDelete.
func (s *PostgresMessageStore) SoftDelete(ctx context.Context, id, senderID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE chat_messages
		SET is_deleted = TRUE, deleted_at = $1
		WHERE id = $2 AND sender_id = $3 AND is_deleted = FALSE
	`

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id, senderID)
	if err != nil {
		log.Error("failed to soft delete chat message",
			slog.String("error", err.Error()),
			slog.String("message_id", id.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		log.Debug("conditional message delete matched no rows",
			slog.String("message_id", id.String()),
			slog.String("sender_id", senderID.String()))
		return store.ErrNoRowsUpdated
	}

	log.Info("chat message soft deleted",
		slog.String("message_id", id.String()),
		slog.String("sender_id", senderID.String()))
	return nil
}

// ListByTask implements store.MessageStore.ListByTask.
// Soft-deleted rows come back as placeholders: the row is present with its
// deletion marker but the body and attachments are blanked in the query
// itself so deleted content never leaves the database.
func (s *PostgresMessageStore) ListByTask(
	ctx context.Context,
	taskID uuid.UUID,
	limit, offset int,
) ([]*domain.ChatMessage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT
			m.id, m.task_id, m.sender_id, COALESCE(u.display_name, ''),
			CASE WHEN m.is_deleted THEN '' ELSE m.body END,
			CASE WHEN m.is_deleted THEN '[]'::jsonb ELSE m.attachments END,
			m.reply_to,
			m.is_edited, m.edited_at, m.is_deleted, m.deleted_at, m.created_at
		FROM chat_messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.task_id = $1
		ORDER BY m.created_at ASC, m.id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, taskID, limit, offset)
	if err != nil {
		log.Error("failed to list chat messages",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	messages := make([]*domain.ChatMessage, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat message row: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return messages, nil
}

// CountByTask implements store.MessageStore.CountByTask.
func (s *PostgresMessageStore) CountByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT COUNT(*)
		FROM chat_messages
		WHERE task_id = $1 AND is_deleted = FALSE
	`

	var count int64
	if err := s.db.QueryRowContext(ctx, query, taskID).Scan(&count); err != nil {
		log.Error("failed to count chat messages",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return 0, MapError(err)
	}

	return count, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*domain.ChatMessage, error) {
	var (
		msg         domain.ChatMessage
		attachments []byte
		replyTo     uuid.NullUUID
		editedAt    sql.NullTime
		deletedAt   sql.NullTime
	)

	err := row.Scan(
		&msg.ID,
		&msg.TaskID,
		&msg.SenderID,
		&msg.SenderName,
		&msg.Body,
		&attachments,
		&replyTo,
		&msg.IsEdited,
		&editedAt,
		&msg.IsDeleted,
		&deletedAt,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &msg.Attachments); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attachments: %w", err)
		}
	}
	if replyTo.Valid {
		msg.ReplyTo = &replyTo.UUID
	}
	if editedAt.Valid {
		t := editedAt.Time
		msg.EditedAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		msg.DeletedAt = &t
	}

	return &msg, nil
}
