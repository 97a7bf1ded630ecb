// Package notify fans chat notifications out to task members. Fan-out is
// scheduled on a background task queue and never blocks or fails the
// message send that triggered it.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rgeorgiev/taskchat-api/internal/domain"
	"github.com/rgeorgiev/taskchat-api/internal/events"
	"github.com/rgeorgiev/taskchat-api/internal/service/chat"
	"github.com/rgeorgiev/taskchat-api/internal/store"
	"github.com/rgeorgiev/taskchat-api/internal/task"
)

// Pusher delivers a notification to a user's live connections, if any.
// Delivery is best effort; users without open connections are skipped.
type Pusher interface {
	Push(userID uuid.UUID, eventType string, payload any)
}

// Service schedules and performs notification fan-out. It implements both
// the chat orchestrator's Notifier (scheduling side) and the task package's
// NotificationDeliverer (execution side).
type Service struct {
	memberships   store.MembershipStore
	notifications store.NotificationStore
	queue         task.TaskQueueWriter
	pusher        Pusher
	logger        *slog.Logger
}

// Config holds the dependencies for the notification service.
type Config struct {
	Memberships   store.MembershipStore
	Notifications store.NotificationStore
	Queue         task.TaskQueueWriter

	// Pusher may be nil; live push then becomes a no-op and recipients
	// see their notifications on next fetch.
	Pusher Pusher

	Logger *slog.Logger
}

// NewService creates the notification fan-out service.
func NewService(cfg Config) *Service {
	if cfg.Memberships == nil {
		panic("membership store cannot be nil")
	}
	if cfg.Notifications == nil {
		panic("notification store cannot be nil")
	}
	if cfg.Queue == nil {
		panic("task queue cannot be nil")
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		memberships:   cfg.Memberships,
		notifications: cfg.Notifications,
		queue:         cfg.Queue,
		pusher:        cfg.Pusher,
		logger:        log.With(slog.String("component", "notify_service")),
	}
}

var (
	_ chat.Notifier              = (*Service)(nil)
	_ task.NotificationDeliverer = (*Service)(nil)
)

// MessageCreated schedules the standard fan-out for a persisted message.
func (s *Service) MessageCreated(_ context.Context, msg *domain.ChatMessage) {
	t, err := task.NewNotificationFanoutTask(msg, s, s.logger)
	if err != nil {
		s.logger.Error("failed to build fan-out task",
			slog.String("message_id", msg.ID.String()),
			slog.String("error", err.Error()))
		return
	}
	s.enqueue(t, msg)
}

// ReplyCreated schedules the extra notification for the replied-to author.
func (s *Service) ReplyCreated(_ context.Context, msg *domain.ChatMessage, parentAuthorID uuid.UUID) {
	t, err := task.NewReplyFanoutTask(msg, parentAuthorID, s, s.logger)
	if err != nil {
		s.logger.Error("failed to build reply fan-out task",
			slog.String("message_id", msg.ID.String()),
			slog.String("error", err.Error()))
		return
	}
	s.enqueue(t, msg)
}

// enqueue drops the task with a warning when the queue is full or closed.
// The message itself is already persisted and broadcast.
func (s *Service) enqueue(t task.Task, msg *domain.ChatMessage) {
	if err := s.queue.Enqueue(t); err != nil {
		s.logger.Warn("dropping notification fan-out",
			slog.String("message_id", msg.ID.String()),
			slog.String("task_id", msg.TaskID.String()),
			slog.String("error", err.Error()))
	}
}

// DeliverMessage writes one notification row per task member except the
// sender and pushes to recipients with live connections.
func (s *Service) DeliverMessage(ctx context.Context, msg *domain.ChatMessage) error {
	memberIDs, err := s.memberships.ListMemberIDs(ctx, msg.TaskID)
	if err != nil {
		return fmt.Errorf("failed to list task members: %w", err)
	}

	recipients := make([]uuid.UUID, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id != msg.SenderID {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		return nil
	}

	return s.deliver(ctx, msg, recipients, domain.NotificationTypeChatMessage)
}

// DeliverReply writes the reply notification for the replied-to author.
func (s *Service) DeliverReply(ctx context.Context, msg *domain.ChatMessage, parentAuthorID uuid.UUID) error {
	if parentAuthorID == uuid.Nil || parentAuthorID == msg.SenderID {
		return nil
	}
	return s.deliver(ctx, msg, []uuid.UUID{parentAuthorID}, domain.NotificationTypeReply)
}

func (s *Service) deliver(
	ctx context.Context,
	msg *domain.ChatMessage,
	recipients []uuid.UUID,
	typ domain.NotificationType,
) error {
	title, err := s.memberships.TaskTitle(ctx, msg.TaskID)
	if err != nil {
		return fmt.Errorf("failed to resolve task title: %w", err)
	}

	payload := domain.NotificationPayload{
		TaskID:     msg.TaskID,
		TaskTitle:  title,
		MessageID:  msg.ID,
		SenderName: msg.SenderName,
		Message:    msg.Body,
	}

	notifications := make([]*domain.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		n, err := domain.NewNotification(recipient, msg.SenderID, typ, title, payload)
		if err != nil {
			return fmt.Errorf("failed to build notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := s.notifications.CreateBatch(ctx, notifications); err != nil {
		return fmt.Errorf("failed to persist notifications: %w", err)
	}

	if s.pusher != nil {
		for _, n := range notifications {
			s.pusher.Push(n.RecipientID, events.TypeTaskNotification, n)
		}
	}

	s.logger.Debug("notifications delivered",
		slog.String("message_id", msg.ID.String()),
		slog.String("type", string(typ)),
		slog.Int("recipient_count", len(recipients)))

	return nil
}
