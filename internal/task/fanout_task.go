package task

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rgeorgiev/taskchat-api/internal/domain"
)

// Common errors
var (
	ErrNilDeliverer = errors.New("notification deliverer cannot be nil")
	ErrNilMessage   = errors.New("message cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")
)

// FanoutKind distinguishes plain message fan-out from reply fan-out
type FanoutKind string

const (
	FanoutKindMessage FanoutKind = "message"
	FanoutKindReply   FanoutKind = "reply"
)

// NotificationDeliverer defines the interface for delivering chat
// notifications to task members
type NotificationDeliverer interface {
	// DeliverMessage notifies every task member except the sender
	DeliverMessage(ctx context.Context, msg *domain.ChatMessage) error

	// DeliverReply notifies the author of the replied-to message
	DeliverReply(ctx context.Context, msg *domain.ChatMessage, parentAuthorID uuid.UUID) error
}

// fanoutPayload represents the serialized data stored in the task
type fanoutPayload struct {
	MessageID      uuid.UUID  `json:"message_id"`
	TaskID         uuid.UUID  `json:"task_id"`
	Kind           FanoutKind `json:"kind"`
	ParentAuthorID uuid.UUID  `json:"parent_author_id,omitempty"`
}

// NotificationFanoutTask implements the Task interface for delivering
// notifications about a chat message
type NotificationFanoutTask struct {
	id           uuid.UUID
	msg          *domain.ChatMessage
	kind         FanoutKind
	parentAuthor uuid.UUID
	deliverer    NotificationDeliverer
	logger       *slog.Logger
	status       TaskStatus
}

// NewNotificationFanoutTask creates a fan-out task for a freshly
// persisted chat message
func NewNotificationFanoutTask(
	msg *domain.ChatMessage,
	deliverer NotificationDeliverer,
	logger *slog.Logger,
) (*NotificationFanoutTask, error) {
	return newFanoutTask(msg, FanoutKindMessage, uuid.Nil, deliverer, logger)
}

// NewReplyFanoutTask creates a fan-out task that notifies the author of
// the replied-to message
func NewReplyFanoutTask(
	msg *domain.ChatMessage,
	parentAuthorID uuid.UUID,
	deliverer NotificationDeliverer,
	logger *slog.Logger,
) (*NotificationFanoutTask, error) {
	return newFanoutTask(msg, FanoutKindReply, parentAuthorID, deliverer, logger)
}

func newFanoutTask(
	msg *domain.ChatMessage,
	kind FanoutKind,
	parentAuthorID uuid.UUID,
	deliverer NotificationDeliverer,
	logger *slog.Logger,
) (*NotificationFanoutTask, error) {
	if deliverer == nil {
		return nil, ErrNilDeliverer
	}
	if msg == nil {
		return nil, ErrNilMessage
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &NotificationFanoutTask{
		id:           uuid.New(),
		msg:          msg,
		kind:         kind,
		parentAuthor: parentAuthorID,
		deliverer:    deliverer,
		logger: logger.With(
			"task_type", TaskTypeNotificationFanout,
			"message_id", msg.ID,
		),
		status: TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *NotificationFanoutTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *NotificationFanoutTask) Type() string {
	return TaskTypeNotificationFanout
}

// Payload returns the serialized task data
func (t *NotificationFanoutTask) Payload() []byte {
	data, err := json.Marshal(fanoutPayload{
		MessageID:      t.msg.ID,
		TaskID:         t.msg.TaskID,
		Kind:           t.kind,
		ParentAuthorID: t.parentAuthor,
	})
	if err != nil {
		return nil
	}
	return data
}

// Status returns the current task status
func (t *NotificationFanoutTask) Status() TaskStatus {
	return t.status
}

// Execute delivers the notifications. A delivery error marks the task
// failed but is never propagated back to the message send path.
func (t *NotificationFanoutTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing

	var err error
	switch t.kind {
	case FanoutKindReply:
		err = t.deliverer.DeliverReply(ctx, t.msg, t.parentAuthor)
	default:
		err = t.deliverer.DeliverMessage(ctx, t.msg)
	}

	if err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("notification fan-out failed", "error", err)
		return err
	}

	t.status = TaskStatusCompleted
	return nil
}
