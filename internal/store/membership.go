package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/rgeorgiev/taskchat-api/internal/domain"
)

// MembershipStore is the narrow read interface to the task membership data
// owned by the task CRUD module. The chat subsystem consults it for every
// gated action but never writes to it.
type MembershipStore interface {
	// GetMembership returns the user's membership on the task. The task
	// creator is reported with the owner role even without an explicit
	// membership row. Returns ErrMembershipNotFound when the user has no
	// access, and ErrTaskNotFound when the task does not exist.
	GetMembership(ctx context.Context, taskID, userID uuid.UUID) (*domain.TaskMembership, error)

	// ListMemberIDs returns the IDs of every user with access to the task,
	// including the owner. Order is unspecified; entries are unique.
	ListMemberIDs(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error)

	// TaskTitle returns the task's display title for notification payloads.
	// Returns ErrTaskNotFound when the task does not exist.
	TaskTitle(ctx context.Context, taskID uuid.UUID) (string, error)
}
