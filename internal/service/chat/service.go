// Package chat contains the chat orchestrator: the single pipeline every
// mutating chat action flows through, regardless of whether it arrived over
// the realtime transport or plain HTTP. The pipeline order is fixed:
// validate, resolve permissions, persist, broadcast, fan out notifications.
package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/rgeorgiev/taskchat-api/internal/domain"
)

// SendRequest carries one message submission.
type SendRequest struct {
	TaskID      uuid.UUID
	SenderID    uuid.UUID
	Body        string
	Attachments []domain.Attachment
	ReplyTo     *uuid.UUID
}

// EditRequest carries one message edit.
type EditRequest struct {
	TaskID    uuid.UUID
	MessageID uuid.UUID
	EditorID  uuid.UUID
	Body      string
}

// DeleteRequest carries one message soft-delete.
type DeleteRequest struct {
	TaskID      uuid.UUID
	MessageID   uuid.UUID
	RequesterID uuid.UUID
}

// HistoryRequest carries one paginated history fetch. Page is 1-based;
// PageSize of zero means the configured default.
type HistoryRequest struct {
	TaskID      uuid.UUID
	RequesterID uuid.UUID
	Page        int
	PageSize    int
}

// Service is the chat orchestrator consumed by both entry points.
type Service interface {
	// Send validates, authorizes, persists, broadcasts, and fans out one
	// message. The returned row is the canonical one from the store; any
	// optimistic client copy is not authoritative.
	Send(ctx context.Context, req SendRequest) (*domain.ChatMessage, error)

	// Edit applies an ownership-matched edit and rebroadcasts the updated
	// row. A nonexistent and a foreign message yield the same
	// ErrMessageNotOwned.
	Edit(ctx context.Context, req EditRequest) (*domain.ChatMessage, error)

	// Delete applies an ownership-matched soft delete and rebroadcasts a
	// deletion marker without the former body.
	Delete(ctx context.Context, req DeleteRequest) error

	// History returns one page of the task's messages in ascending
	// creation order, soft-deleted bodies excluded but placeholders kept.
	History(ctx context.Context, req HistoryRequest) ([]*domain.ChatMessage, error)

	// Count returns the task's message count excluding soft-deleted rows.
	Count(ctx context.Context, taskID, requesterID uuid.UUID) (int64, error)
}

// Broadcaster delivers an event to every connection currently in a task's
// room. Implementations must be safe for concurrent use. A nil Broadcaster
// is valid and turns broadcasting into a no-op, which is how non-realtime
// deployments run.
type Broadcaster interface {
	// Broadcast sends the payload to all members of the task's room,
	// including the connection that triggered it, if any.
	Broadcast(taskID uuid.UUID, eventType string, payload any)
}

// Notifier triggers notification fan-out for persisted messages. Calls are
// fire-and-forget: implementations schedule the work asynchronously and
// swallow failures, so a notification problem never fails the send.
type Notifier interface {
	// MessageCreated fans out the standard chat_message notification to
	// every task member except the sender.
	MessageCreated(ctx context.Context, msg *domain.ChatMessage)

	// ReplyCreated additionally notifies the author of the message being
	// replied to. Callers only invoke this when that author differs from
	// the sender.
	ReplyCreated(ctx context.Context, msg *domain.ChatMessage, parentAuthorID uuid.UUID)
}
