package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rgeorgiev/taskchat-api/internal/domain"
	"github.com/rgeorgiev/taskchat-api/internal/service/access"
	"github.com/rgeorgiev/taskchat-api/internal/service/auth"
	"github.com/rgeorgiev/taskchat-api/internal/service/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockChatService mocks the chat.Service interface
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Send(ctx context.Context, req chat.SendRequest) (*domain.ChatMessage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatMessage), args.Error(1)
}

func (m *MockChatService) Edit(ctx context.Context, req chat.EditRequest) (*domain.ChatMessage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatMessage), args.Error(1)
}

func (m *MockChatService) Delete(ctx context.Context, req chat.DeleteRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockChatService) History(ctx context.Context, req chat.HistoryRequest) ([]*domain.ChatMessage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChatMessage), args.Error(1)
}

func (m *MockChatService) Count(ctx context.Context, taskID, requesterID uuid.UUID) (int64, error) {
	args := m.Called(ctx, taskID, requesterID)
	return args.Get(0).(int64), args.Error(1)
}

// stubVerifier accepts a single known token
type stubVerifier struct {
	token    string
	identity auth.Identity
}

func (v *stubVerifier) VerifyToken(_ context.Context, tokenString string) (*auth.Identity, error) {
	if tokenString != v.token {
		return nil, auth.ErrInvalidToken
	}
	identity := v.identity
	return &identity, nil
}

type handlerFixture struct {
	handler *Handler
	hub     *Hub
	chatSvc *MockChatService
	access  *MockAccessService
	conn    *Conn
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	accessSvc := new(MockAccessService)
	chatSvc := new(MockChatService)
	hub := NewHub(accessSvc, testLogger())

	handler := NewHandler(HandlerConfig{
		Hub:      hub,
		Chat:     chatSvc,
		Verifier: &stubVerifier{token: "good-token"},
		Logger:   testLogger(),
	})

	conn := testConn("actor")
	hub.Register(conn)

	return &handlerFixture{handler: handler, hub: hub, chatSvc: chatSvc, access: accessSvc, conn: conn}
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestAuthenticate(t *testing.T) {
	identity := auth.Identity{UserID: uuid.New(), DisplayName: "Ana"}
	handler := NewHandler(HandlerConfig{
		Hub:      NewHub(new(MockAccessService), testLogger()),
		Chat:     new(MockChatService),
		Verifier: &stubVerifier{token: "good-token", identity: identity},
		Logger:   testLogger(),
	})

	t.Run("bearer header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Authorization", "Bearer good-token")

		got, err := handler.authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, identity.UserID, got.UserID)
	})

	t.Run("access_token query parameter", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws?access_token=good-token", nil)

		got, err := handler.authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, "Ana", got.DisplayName)
	})

	t.Run("missing credential", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)

		_, err := handler.authenticate(r)
		assert.ErrorIs(t, err, auth.ErrMissingToken)
	})

	t.Run("bad credential", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Authorization", "Bearer forged")

		_, err := handler.authenticate(r)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestServeHTTPRejectsUnauthenticated(t *testing.T) {
	f := newHandlerFixture(t)

	r := httptest.NewRequest("GET", "/ws", nil)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)

	assert.Equal(t, 401, w.Code)
	assert.Contains(t, w.Body.String(), "authentication required")
}

func TestDispatchSendMessage(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()

	t.Run("forwards to the chat service with the connection identity", func(t *testing.T) {
		f := newHandlerFixture(t)
		payload := SendMessagePayload{RoomID: taskID, Body: "hello"}

		f.chatSvc.On("Send", ctx, chat.SendRequest{
			TaskID:   taskID,
			SenderID: f.conn.UserID(),
			Body:     "hello",
		}).Return(&domain.ChatMessage{ID: uuid.New()}, nil)

		f.handler.dispatch(ctx, f.conn, InboundEvent{
			Type:    EventSendMessage,
			Payload: mustMarshal(t, payload),
		})

		f.chatSvc.AssertExpectations(t)
		assert.Empty(t, drainEvents(f.conn))
	})

	t.Run("service error becomes a scoped error event", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.chatSvc.On("Send", ctx, mock.Anything).Return(nil, chat.ErrNotAuthorized)

		f.handler.dispatch(ctx, f.conn, InboundEvent{
			Type:    EventSendMessage,
			Payload: mustMarshal(t, SendMessagePayload{RoomID: taskID, Body: "hi"}),
		})

		evts := drainEvents(f.conn)
		require.Len(t, evts, 1)
		assert.Equal(t, EventError, evts[0].Type)
		assert.Equal(t, "not authorized", evts[0].Payload.(ErrorPayload).Message)
	})

	t.Run("malformed payload yields a validation error", func(t *testing.T) {
		f := newHandlerFixture(t)

		f.handler.dispatch(ctx, f.conn, InboundEvent{
			Type:    EventSendMessage,
			Payload: json.RawMessage(`{"room_id": 42}`),
		})

		evts := drainEvents(f.conn)
		require.Len(t, evts, 1)
		assert.Equal(t, "invalid request", evts[0].Payload.(ErrorPayload).Message)
		f.chatSvc.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})
}

func TestDispatchJoinDenied(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()
	f := newHandlerFixture(t)

	f.access.On("Resolve", ctx, f.conn.UserID(), taskID).Return(access.Decision{}, nil)

	f.handler.dispatch(ctx, f.conn, InboundEvent{
		Type:    EventJoinTask,
		Payload: mustMarshal(t, RoomPayload{RoomID: taskID}),
	})

	evts := drainEvents(f.conn)
	require.Len(t, evts, 1)
	assert.Equal(t, EventError, evts[0].Type)
	assert.Equal(t, "not authorized", evts[0].Payload.(ErrorPayload).Message)
	assert.Equal(t, 0, f.hub.RoomSize(taskID))
}

func TestDispatchEditAndDelete(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()
	messageID := uuid.New()

	t.Run("edit", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.chatSvc.On("Edit", ctx, chat.EditRequest{
			TaskID:    taskID,
			MessageID: messageID,
			EditorID:  f.conn.UserID(),
			Body:      "fixed",
		}).Return(&domain.ChatMessage{}, nil)

		f.handler.dispatch(ctx, f.conn, InboundEvent{
			Type:    EventEditMessage,
			Payload: mustMarshal(t, EditMessagePayload{RoomID: taskID, MessageID: messageID, NewBody: "fixed"}),
		})
		f.chatSvc.AssertExpectations(t)
	})

	t.Run("delete of a foreign message reports one indistinct error", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.chatSvc.On("Delete", ctx, mock.Anything).Return(chat.ErrMessageNotOwned)

		f.handler.dispatch(ctx, f.conn, InboundEvent{
			Type:    EventDeleteMessage,
			Payload: mustMarshal(t, DeleteMessagePayload{RoomID: taskID, MessageID: messageID}),
		})

		evts := drainEvents(f.conn)
		require.Len(t, evts, 1)
		assert.Equal(t, "message not found or not yours", evts[0].Payload.(ErrorPayload).Message)
	})
}

func TestDispatchTyping(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()

	t.Run("relays to other members only", func(t *testing.T) {
		f := newHandlerFixture(t)
		watcher := testConn("watcher")
		f.hub.Register(watcher)

		allowAll(f.access)
		require.NoError(t, f.hub.Join(ctx, f.conn, taskID))
		require.NoError(t, f.hub.Join(ctx, watcher, taskID))
		drainEvents(f.conn)
		drainEvents(watcher)

		f.handler.dispatch(ctx, f.conn, InboundEvent{
			Type:    EventTypingStart,
			Payload: mustMarshal(t, RoomPayload{RoomID: taskID}),
		})

		assert.Empty(t, drainEvents(f.conn))
		evts := drainEvents(watcher)
		require.Len(t, evts, 1)
		assert.Equal(t, EventUserTyping, evts[0].Type)
		assert.Equal(t, f.conn.UserID(), evts[0].Payload.(PresencePayload).UserID)
	})

	t.Run("requires current membership", func(t *testing.T) {
		f := newHandlerFixture(t)

		f.handler.dispatch(ctx, f.conn, InboundEvent{
			Type:    EventTypingStop,
			Payload: mustMarshal(t, RoomPayload{RoomID: taskID}),
		})

		evts := drainEvents(f.conn)
		require.Len(t, evts, 1)
		assert.Equal(t, "join the room first", evts[0].Payload.(ErrorPayload).Message)
	})
}

func TestDispatchUnknownEvent(t *testing.T) {
	f := newHandlerFixture(t)

	f.handler.dispatch(context.Background(), f.conn, InboundEvent{Type: "reticulate_splines"})

	evts := drainEvents(f.conn)
	require.Len(t, evts, 1)
	assert.Equal(t, EventError, evts[0].Type)
}

func TestSafeErrorMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{chat.ErrValidation, "invalid request"},
		{chat.ErrNotAuthorized, "not authorized"},
		{ErrRoomAccessDenied, "not authorized"},
		{chat.ErrMessageNotOwned, "message not found or not yours"},
		{chat.ErrReplyNotFound, "replied-to message not found"},
		{ErrNotInRoom, "join the room first"},
		{errors.New("pq: connection refused"), "something went wrong"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, safeErrorMessage(tc.err))
	}
}
