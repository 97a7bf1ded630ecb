package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rgeorgiev/taskchat-api/internal/domain"
	"github.com/rgeorgiev/taskchat-api/internal/events"
	"github.com/rgeorgiev/taskchat-api/internal/platform/logger"
	"github.com/rgeorgiev/taskchat-api/internal/service/access"
	"github.com/rgeorgiev/taskchat-api/internal/store"
)

// DeletedMessageEvent is the payload of a message_deleted broadcast. It
// carries only the id and the marker, never the former body.
type DeletedMessageEvent struct {
	MessageID uuid.UUID `json:"message_id"`
	TaskID    uuid.UUID `json:"task_id"`
	IsDeleted bool      `json:"is_deleted"`
}

// serviceImpl implements the Service interface.
type serviceImpl struct {
	messages        store.MessageStore
	accessSvc       access.Service
	broadcaster     Broadcaster
	notifier        Notifier
	defaultPageSize int
	maxPageSize     int
	logger          *slog.Logger
}

// Config holds the dependencies and settings for the chat service.
type Config struct {
	Messages store.MessageStore
	Access   access.Service

	// Broadcaster may be nil; broadcasting then becomes a no-op.
	Broadcaster Broadcaster

	// Notifier may be nil; fan-out then becomes a no-op.
	Notifier Notifier

	// DefaultPageSize is used when a history request does not specify a
	// page size. Zero means 50.
	DefaultPageSize int

	// MaxPageSize caps client-requested page sizes. Zero means 200.
	MaxPageSize int

	Logger *slog.Logger
}

// NewService creates the chat orchestrator.
func NewService(cfg Config) Service {
	if cfg.Messages == nil {
		panic("message store cannot be nil")
	}
	if cfg.Access == nil {
		panic("access service cannot be nil")
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	defaultPageSize := cfg.DefaultPageSize
	if defaultPageSize <= 0 {
		defaultPageSize = 50
	}
	maxPageSize := cfg.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = 200
	}

	return &serviceImpl{
		messages:        cfg.Messages,
		accessSvc:       cfg.Access,
		broadcaster:     cfg.Broadcaster,
		notifier:        cfg.Notifier,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          log.With(slog.String("component", "chat_service")),
	}
}

// Ensure serviceImpl implements Service interface
var _ Service = (*serviceImpl)(nil)

// Send implements Service.Send.
func (s *serviceImpl) Send(ctx context.Context, req SendRequest) (*domain.ChatMessage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if req.TaskID == uuid.Nil || req.SenderID == uuid.Nil {
		return nil, fmt.Errorf("%w: task and sender are required", ErrValidation)
	}
	if req.Body == "" {
		return nil, fmt.Errorf("%w: message body is required", ErrValidation)
	}

	decision, err := s.accessSvc.Resolve(ctx, req.SenderID, req.TaskID)
	if err != nil {
		return nil, newServiceError("send", "failed to resolve permissions", err)
	}
	if !decision.CanComment() {
		log.Debug("send denied",
			slog.String("task_id", req.TaskID.String()),
			slog.String("sender_id", req.SenderID.String()))
		return nil, ErrNotAuthorized
	}

	// The author of the replied-to message, when it differs from the
	// sender, gets an extra reply notification after the send succeeds.
	var replyAuthor uuid.UUID
	if req.ReplyTo != nil {
		parent, err := s.messages.GetByID(ctx, *req.ReplyTo)
		if err != nil {
			if store.IsNotFoundError(err) {
				return nil, ErrReplyNotFound
			}
			return nil, newServiceError("send", "failed to resolve reply reference", err)
		}
		if parent.TaskID != req.TaskID {
			// Cross-task references are rejected rather than silently
			// stored.
			return nil, ErrReplyNotFound
		}
		replyAuthor = parent.SenderID
	}

	msg, err := domain.NewChatMessage(req.TaskID, req.SenderID, req.Body, req.Attachments, req.ReplyTo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	canonical, err := s.messages.Create(ctx, msg)
	if err != nil {
		log.Error("failed to persist chat message",
			slog.String("error", err.Error()),
			slog.String("task_id", req.TaskID.String()))
		return nil, newServiceError("send", "failed to persist message", err)
	}

	// Persisted: from here on nothing may fail the send. The broadcast
	// carries the canonical row to every room member, sender included.
	s.broadcast(canonical.TaskID, events.TypeNewMessage, canonical)

	if s.notifier != nil {
		s.notifier.MessageCreated(ctx, canonical)
		if replyAuthor != uuid.Nil && replyAuthor != req.SenderID {
			s.notifier.ReplyCreated(ctx, canonical, replyAuthor)
		}
	}

	return canonical, nil
}

// Edit implements Service.Edit.
func (s *serviceImpl) Edit(ctx context.Context, req EditRequest) (*domain.ChatMessage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if req.TaskID == uuid.Nil || req.MessageID == uuid.Nil || req.EditorID == uuid.Nil {
		return nil, fmt.Errorf("%w: task, message, and editor are required", ErrValidation)
	}
	if req.Body == "" {
		return nil, fmt.Errorf("%w: message body is required", ErrValidation)
	}

	decision, err := s.accessSvc.Resolve(ctx, req.EditorID, req.TaskID)
	if err != nil {
		return nil, newServiceError("edit", "failed to resolve permissions", err)
	}
	if !decision.Allowed {
		return nil, ErrNotAuthorized
	}

	updated, err := s.messages.UpdateBody(ctx, req.MessageID, req.EditorID, req.Body)
	if err != nil {
		if errors.Is(err, store.ErrNoRowsUpdated) {
			return nil, ErrMessageNotOwned
		}
		log.Error("failed to edit chat message",
			slog.String("error", err.Error()),
			slog.String("message_id", req.MessageID.String()))
		return nil, newServiceError("edit", "failed to update message", err)
	}

	s.broadcast(updated.TaskID, events.TypeMessageEdited, updated)
	return updated, nil
}

// Delete implements Service.Delete.
func (s *serviceImpl) Delete(ctx context.Context, req DeleteRequest) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if req.TaskID == uuid.Nil || req.MessageID == uuid.Nil || req.RequesterID == uuid.Nil {
		return fmt.Errorf("%w: task, message, and requester are required", ErrValidation)
	}

	decision, err := s.accessSvc.Resolve(ctx, req.RequesterID, req.TaskID)
	if err != nil {
		return newServiceError("delete", "failed to resolve permissions", err)
	}
	if !decision.Allowed {
		return ErrNotAuthorized
	}

	if err := s.messages.SoftDelete(ctx, req.MessageID, req.RequesterID); err != nil {
		if errors.Is(err, store.ErrNoRowsUpdated) {
			return ErrMessageNotOwned
		}
		log.Error("failed to delete chat message",
			slog.String("error", err.Error()),
			slog.String("message_id", req.MessageID.String()))
		return newServiceError("delete", "failed to soft delete message", err)
	}

	s.broadcast(req.TaskID, events.TypeMessageDeleted, DeletedMessageEvent{
		MessageID: req.MessageID,
		TaskID:    req.TaskID,
		IsDeleted: true,
	})
	return nil
}

// History implements Service.History.
func (s *serviceImpl) History(ctx context.Context, req HistoryRequest) ([]*domain.ChatMessage, error) {
	if req.TaskID == uuid.Nil || req.RequesterID == uuid.Nil {
		return nil, fmt.Errorf("%w: task and requester are required", ErrValidation)
	}

	decision, err := s.accessSvc.Resolve(ctx, req.RequesterID, req.TaskID)
	if err != nil {
		return nil, newServiceError("history", "failed to resolve permissions", err)
	}
	if !decision.Allowed {
		return nil, ErrNotAuthorized
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}

	page := req.Page
	if page < 1 {
		page = 1
	}

	messages, err := s.messages.ListByTask(ctx, req.TaskID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, newServiceError("history", "failed to list messages", err)
	}

	return messages, nil
}

// Count implements Service.Count.
func (s *serviceImpl) Count(ctx context.Context, taskID, requesterID uuid.UUID) (int64, error) {
	if taskID == uuid.Nil || requesterID == uuid.Nil {
		return 0, fmt.Errorf("%w: task and requester are required", ErrValidation)
	}

	decision, err := s.accessSvc.Resolve(ctx, requesterID, taskID)
	if err != nil {
		return 0, newServiceError("count", "failed to resolve permissions", err)
	}
	if !decision.Allowed {
		return 0, ErrNotAuthorized
	}

	count, err := s.messages.CountByTask(ctx, taskID)
	if err != nil {
		return 0, newServiceError("count", "failed to count messages", err)
	}

	return count, nil
}

func (s *serviceImpl) broadcast(taskID uuid.UUID, eventType string, payload any) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Broadcast(taskID, eventType, payload)
}
