// Package access is the single authorization service for task-scoped
// resources. Both the realtime and the HTTP paths resolve permissions here;
// no caller re-implements role or capability checks.
package access

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rgeorgiev/taskchat-api/internal/domain"
	"github.com/rgeorgiev/taskchat-api/internal/platform/logger"
	"github.com/rgeorgiev/taskchat-api/internal/store"
)

// Decision is the outcome of resolving an actor against a task.
// The zero value denies everything.
type Decision struct {
	// Allowed reports whether the actor may access the task at all.
	Allowed bool

	// Owner reports whether the actor created the task. Owners bypass
	// role and capability checks.
	Owner bool

	// Role is the actor's role on the task; empty when not allowed.
	Role domain.TaskRole

	// Capabilities are the actor's capability flags; all false when not
	// allowed.
	Capabilities domain.Capabilities
}

// CanComment reports whether the decision permits posting chat messages.
func (d Decision) CanComment() bool {
	return d.Allowed && (d.Owner || d.Capabilities.CanComment)
}

// CanEdit reports whether the decision permits editing task content.
func (d Decision) CanEdit() bool {
	return d.Allowed && (d.Owner || d.Capabilities.CanEdit)
}

// CanUpload reports whether the decision permits uploading attachments.
func (d Decision) CanUpload() bool {
	return d.Allowed && (d.Owner || d.Capabilities.CanUpload)
}

// Service resolves what an actor may do on a task.
type Service interface {
	// Resolve returns the actor's access decision for the task. A missing
	// membership yields a denying decision, not an error; errors signal
	// infrastructure failures only.
	Resolve(ctx context.Context, actorID, taskID uuid.UUID) (Decision, error)
}

// serviceImpl implements Service on top of the membership store.
type serviceImpl struct {
	memberships store.MembershipStore
	logger      *slog.Logger
}

// NewService creates the membership-store-backed access service.
// If logger is nil, a default logger will be used.
func NewService(memberships store.MembershipStore, logger *slog.Logger) Service {
	if memberships == nil {
		panic("membership store cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &serviceImpl{
		memberships: memberships,
		logger:      logger.With(slog.String("component", "access_service")),
	}
}

// Resolve implements Service.Resolve.
func (s *serviceImpl) Resolve(ctx context.Context, actorID, taskID uuid.UUID) (Decision, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	membership, err := s.memberships.GetMembership(ctx, taskID, actorID)
	if err != nil {
		if store.IsNotFoundError(err) {
			// No task or no membership both deny without disclosing which.
			log.Debug("access denied",
				slog.String("actor_id", actorID.String()),
				slog.String("task_id", taskID.String()))
			return Decision{}, nil
		}
		log.Error("failed to resolve access",
			slog.String("error", err.Error()),
			slog.String("actor_id", actorID.String()),
			slog.String("task_id", taskID.String()))
		return Decision{}, err
	}

	return Decision{
		Allowed:      true,
		Owner:        membership.IsOwner(),
		Role:         membership.Role,
		Capabilities: membership.Capabilities,
	}, nil
}
