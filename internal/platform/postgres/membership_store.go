package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rgeorgiev/taskchat-api/internal/domain"
	"github.com/rgeorgiev/taskchat-api/internal/platform/logger"
	"github.com/rgeorgiev/taskchat-api/internal/store"
)

// PostgresMembershipStore implements the store.MembershipStore interface.
// It reads the task and membership tables owned by the task CRUD module;
// the chat subsystem never writes them.
type PostgresMembershipStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMembershipStore creates a new PostgreSQL implementation of the
// MembershipStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresMembershipStore(db store.DBTX, logger *slog.Logger) *PostgresMembershipStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMembershipStore{
		db:     db,
		logger: logger.With(slog.String("component", "membership_store")),
	}
}

// Ensure PostgresMembershipStore implements store.MembershipStore interface
var _ store.MembershipStore = (*PostgresMembershipStore)(nil)

// GetMembership implements store.MembershipStore.GetMembership.
// The task creator gets the owner role even without a membership row, which
// is what gives owners their capability bypass.
func (s *PostgresMembershipStore) GetMembership(
	ctx context.Context,
	taskID, userID uuid.UUID,
) (*domain.TaskMembership, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var createdBy uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT created_by FROM tasks WHERE id = $1`, taskID,
	).Scan(&createdBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", taskID.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to look up task",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, MapError(err)
	}

	if createdBy == userID {
		return &domain.TaskMembership{
			TaskID: taskID,
			UserID: userID,
			Role:   domain.TaskRoleOwner,
			Capabilities: domain.Capabilities{
				CanEdit:    true,
				CanComment: true,
				CanUpload:  true,
			},
		}, nil
	}

	query := `
		SELECT role, can_edit, can_comment, can_upload
		FROM task_memberships
		WHERE task_id = $1 AND user_id = $2
	`

	var (
		role       string
		membership domain.TaskMembership
	)
	err = s.db.QueryRowContext(ctx, query, taskID, userID).Scan(
		&role,
		&membership.Capabilities.CanEdit,
		&membership.Capabilities.CanComment,
		&membership.Capabilities.CanUpload,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no membership for user on task",
				slog.String("task_id", taskID.String()),
				slog.String("user_id", userID.String()))
			return nil, store.ErrMembershipNotFound
		}
		log.Error("failed to get task membership",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}

	parsedRole, err := domain.ParseTaskRole(role)
	if err != nil {
		log.Error("membership row carries unknown role",
			slog.String("role", role),
			slog.String("task_id", taskID.String()))
		return nil, err
	}

	membership.TaskID = taskID
	membership.UserID = userID
	membership.Role = parsedRole
	return &membership, nil
}

// ListMemberIDs implements store.MembershipStore.ListMemberIDs.
// The UNION folds the creator in and deduplicates against an explicit
// membership row for the same user.
func (s *PostgresMembershipStore) ListMemberIDs(
	ctx context.Context,
	taskID uuid.UUID,
) ([]uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT user_id FROM task_memberships WHERE task_id = $1
		UNION
		SELECT created_by FROM tasks WHERE id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		log.Error("failed to list task member IDs",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, MapError(err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return ids, nil
}

// TaskTitle implements store.MembershipStore.TaskTitle.
func (s *PostgresMembershipStore) TaskTitle(ctx context.Context, taskID uuid.UUID) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var title string
	err := s.db.QueryRowContext(ctx,
		`SELECT title FROM tasks WHERE id = $1`, taskID,
	).Scan(&title)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrTaskNotFound
		}
		log.Error("failed to get task title",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return "", MapError(err)
	}

	return title, nil
}
