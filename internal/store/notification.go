package store

import (
	"context"

	"github.com/rgeorgiev/taskchat-api/internal/domain"
)

// NotificationStore defines the interface for notification persistence.
// Marking notifications read belongs to the notification CRUD module and is
// not part of this interface.
type NotificationStore interface {
	// CreateBatch persists all notifications in a single multi-row insert.
	// An empty slice is a no-op. All rows must be valid; validation errors
	// abort the whole batch.
	CreateBatch(ctx context.Context, notifications []*domain.Notification) error
}
