package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rgeorgiev/taskchat-api/internal/domain"
	"github.com/rgeorgiev/taskchat-api/internal/service/access"
	"github.com/stretchr/testify/mock"
)

// MockMessageStore mocks the store.MessageStore interface
type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) Create(
	ctx context.Context,
	msg *domain.ChatMessage,
) (*domain.ChatMessage, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatMessage), args.Error(1)
}

func (m *MockMessageStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ChatMessage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatMessage), args.Error(1)
}

func (m *MockMessageStore) UpdateBody(
	ctx context.Context,
	id, senderID uuid.UUID,
	body string,
) (*domain.ChatMessage, error) {
	args := m.Called(ctx, id, senderID, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatMessage), args.Error(1)
}

func (m *MockMessageStore) SoftDelete(ctx context.Context, id, senderID uuid.UUID) error {
	args := m.Called(ctx, id, senderID)
	return args.Error(0)
}

func (m *MockMessageStore) ListByTask(
	ctx context.Context,
	taskID uuid.UUID,
	limit, offset int,
) ([]*domain.ChatMessage, error) {
	args := m.Called(ctx, taskID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChatMessage), args.Error(1)
}

func (m *MockMessageStore) CountByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(int64), args.Error(1)
}

// MockAccessService mocks the access.Service interface
type MockAccessService struct {
	mock.Mock
}

func (m *MockAccessService) Resolve(
	ctx context.Context,
	actorID, taskID uuid.UUID,
) (access.Decision, error) {
	args := m.Called(ctx, actorID, taskID)
	return args.Get(0).(access.Decision), args.Error(1)
}

// broadcastCall records one Broadcast invocation.
type broadcastCall struct {
	TaskID    uuid.UUID
	EventType string
	Payload   any
}

// recordingBroadcaster is a thread-safe fake Broadcaster.
type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (b *recordingBroadcaster) Broadcast(taskID uuid.UUID, eventType string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, broadcastCall{TaskID: taskID, EventType: eventType, Payload: payload})
}

func (b *recordingBroadcaster) Calls() []broadcastCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]broadcastCall, len(b.calls))
	copy(out, b.calls)
	return out
}

// recordingNotifier is a fake Notifier capturing fan-out triggers.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []*domain.ChatMessage
	replies  []struct {
		Msg          *domain.ChatMessage
		ParentAuthor uuid.UUID
	}
}

func (n *recordingNotifier) MessageCreated(_ context.Context, msg *domain.ChatMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) ReplyCreated(
	_ context.Context,
	msg *domain.ChatMessage,
	parentAuthorID uuid.UUID,
) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replies = append(n.replies, struct {
		Msg          *domain.ChatMessage
		ParentAuthor uuid.UUID
	}{msg, parentAuthorID})
}
