package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rgeorgiev/taskchat-api/internal/domain"
	"github.com/rgeorgiev/taskchat-api/internal/platform/logger"
	"github.com/rgeorgiev/taskchat-api/internal/store"
)

// PostgresNotificationStore implements the store.NotificationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresNotificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNotificationStore creates a new PostgreSQL implementation of
// the NotificationStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresNotificationStore(db store.DBTX, logger *slog.Logger) *PostgresNotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresNotificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "notification_store")),
	}
}

// Ensure PostgresNotificationStore implements store.NotificationStore interface
var _ store.NotificationStore = (*PostgresNotificationStore)(nil)

// notificationColumnCount is the number of bind parameters per row in the
// multi-row insert built by CreateBatch.
const notificationColumnCount = 8

// CreateBatch implements store.NotificationStore.CreateBatch.
// All rows go out in one multi-row INSERT so fan-out costs a single round
// trip regardless of recipient count.
func (s *PostgresNotificationStore) CreateBatch(
	ctx context.Context,
	notifications []*domain.Notification,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(notifications) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(notifications))
	args := make([]any, 0, len(notifications)*notificationColumnCount)

	for i, n := range notifications {
		if err := n.Validate(); err != nil {
			log.Warn("notification validation failed during batch create",
				slog.String("error", err.Error()),
				slog.String("notification_id", n.ID.String()))
			return err
		}

		base := i * notificationColumnCount
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		args = append(args,
			n.ID,
			n.RecipientID,
			n.SenderID,
			n.Type,
			n.Title,
			n.Preview,
			[]byte(n.Payload),
			n.CreatedAt,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO notifications (id, recipient_id, sender_id, type, title, preview, payload, created_at)
		VALUES %s
	`, strings.Join(placeholders, ", "))

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to bulk insert notifications",
			slog.String("error", err.Error()),
			slog.Int("count", len(notifications)))
		return MapError(err)
	}

	log.Info("notifications persisted",
		slog.Int("count", len(notifications)))
	return nil
}
