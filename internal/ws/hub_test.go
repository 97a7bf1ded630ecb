package ws

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rgeorgiev/taskchat-api/internal/domain"
	"github.com/rgeorgiev/taskchat-api/internal/events"
	"github.com/rgeorgiev/taskchat-api/internal/service/access"
	"github.com/rgeorgiev/taskchat-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// testConn builds a connection with no socket; events queue up in the
// outbound channel where tests can inspect them.
func testConn(name string) *Conn {
	identity := auth.Identity{UserID: uuid.New(), DisplayName: name}
	return newConn(nil, identity, 16, time.Second, testLogger())
}

// drainEvents empties the connection's outbound queue.
func drainEvents(c *Conn) []OutboundEvent {
	var out []OutboundEvent
	for {
		select {
		case evt := <-c.outbound:
			out = append(out, evt)
		default:
			return out
		}
	}
}

func allowAll(accessSvc *MockAccessService) {
	accessSvc.On("Resolve", mock.Anything, mock.Anything, mock.Anything).
		Return(access.Decision{Allowed: true, Role: domain.TaskRoleMember}, nil)
}

func TestHubJoin(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()

	t.Run("denied join adds no membership and emits no user_joined", func(t *testing.T) {
		accessSvc := new(MockAccessService)
		hub := NewHub(accessSvc, testLogger())

		resident := testConn("resident")
		joiner := testConn("joiner")
		hub.Register(resident)
		hub.Register(joiner)

		allowed := access.Decision{Allowed: true, Role: domain.TaskRoleMember}
		accessSvc.On("Resolve", ctx, resident.UserID(), taskID).Return(allowed, nil)
		accessSvc.On("Resolve", ctx, joiner.UserID(), taskID).Return(access.Decision{}, nil)

		require.NoError(t, hub.Join(ctx, resident, taskID))
		drainEvents(resident)

		err := hub.Join(ctx, joiner, taskID)
		assert.ErrorIs(t, err, ErrRoomAccessDenied)
		assert.Equal(t, 1, hub.RoomSize(taskID))
		assert.Empty(t, drainEvents(resident))
	})

	t.Run("successful join notifies others but not the joiner", func(t *testing.T) {
		accessSvc := new(MockAccessService)
		allowAll(accessSvc)
		hub := NewHub(accessSvc, testLogger())

		resident := testConn("resident")
		joiner := testConn("joiner")
		hub.Register(resident)
		hub.Register(joiner)

		require.NoError(t, hub.Join(ctx, resident, taskID))
		require.NoError(t, hub.Join(ctx, joiner, taskID))

		residentEvents := drainEvents(resident)
		require.Len(t, residentEvents, 1)
		assert.Equal(t, EventUserJoined, residentEvents[0].Type)
		presence := residentEvents[0].Payload.(PresencePayload)
		assert.Equal(t, joiner.UserID(), presence.UserID)
		assert.Equal(t, "joiner", presence.DisplayName)

		assert.Empty(t, drainEvents(joiner))
		assert.Equal(t, 2, hub.RoomSize(taskID))
	})

	t.Run("joining a second room leaves the first", func(t *testing.T) {
		accessSvc := new(MockAccessService)
		allowAll(accessSvc)
		hub := NewHub(accessSvc, testLogger())

		otherTask := uuid.New()
		conn := testConn("mover")
		hub.Register(conn)

		require.NoError(t, hub.Join(ctx, conn, taskID))
		require.NoError(t, hub.Join(ctx, conn, otherTask))

		assert.Equal(t, 0, hub.RoomSize(taskID))
		assert.Equal(t, 1, hub.RoomSize(otherTask))
		assert.True(t, hub.InRoom(conn, otherTask))
		assert.False(t, hub.InRoom(conn, taskID))
	})

	t.Run("rejoining the same room is a no-op", func(t *testing.T) {
		accessSvc := new(MockAccessService)
		allowAll(accessSvc)
		hub := NewHub(accessSvc, testLogger())

		conn := testConn("repeat")
		hub.Register(conn)

		require.NoError(t, hub.Join(ctx, conn, taskID))
		require.NoError(t, hub.Join(ctx, conn, taskID))
		assert.Equal(t, 1, hub.RoomSize(taskID))
	})
}

func TestHubLeave(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()

	accessSvc := new(MockAccessService)
	allowAll(accessSvc)
	hub := NewHub(accessSvc, testLogger())

	stayer := testConn("stayer")
	leaver := testConn("leaver")
	hub.Register(stayer)
	hub.Register(leaver)

	require.NoError(t, hub.Join(ctx, stayer, taskID))
	require.NoError(t, hub.Join(ctx, leaver, taskID))
	drainEvents(stayer)

	hub.Leave(leaver)

	stayerEvents := drainEvents(stayer)
	require.Len(t, stayerEvents, 1)
	assert.Equal(t, EventUserLeft, stayerEvents[0].Type)
	assert.Equal(t, leaver.UserID(), stayerEvents[0].Payload.(PresencePayload).UserID)
	assert.Equal(t, 1, hub.RoomSize(taskID))

	// Last member out collects the room
	hub.Leave(stayer)
	assert.Equal(t, 0, hub.RoomSize(taskID))
}

func TestHubDisconnectLeavesRoom(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()

	accessSvc := new(MockAccessService)
	allowAll(accessSvc)
	hub := NewHub(accessSvc, testLogger())

	stayer := testConn("stayer")
	dropper := testConn("dropper")
	hub.Register(stayer)
	hub.Register(dropper)

	require.NoError(t, hub.Join(ctx, stayer, taskID))
	require.NoError(t, hub.Join(ctx, dropper, taskID))
	drainEvents(stayer)

	hub.Disconnect(dropper)

	stayerEvents := drainEvents(stayer)
	require.Len(t, stayerEvents, 1)
	assert.Equal(t, EventUserLeft, stayerEvents[0].Type)

	// Dropped connections no longer receive pushes
	hub.Push(dropper.UserID(), "task_notification", nil)
	assert.Empty(t, drainEvents(dropper))
}

func TestHubBroadcast(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()

	accessSvc := new(MockAccessService)
	allowAll(accessSvc)
	hub := NewHub(accessSvc, testLogger())

	a := testConn("a")
	b := testConn("b")
	outsider := testConn("outsider")
	hub.Register(a)
	hub.Register(b)
	hub.Register(outsider)

	require.NoError(t, hub.Join(ctx, a, taskID))
	require.NoError(t, hub.Join(ctx, b, taskID))
	drainEvents(a)
	drainEvents(b)

	payload := map[string]string{"body": "hello"}
	hub.Broadcast(taskID, events.TypeNewMessage, payload)

	for _, c := range []*Conn{a, b} {
		evts := drainEvents(c)
		require.Len(t, evts, 1)
		assert.Equal(t, events.TypeNewMessage, evts[0].Type)
	}
	assert.Empty(t, drainEvents(outsider))
}

func TestHubBroadcastExcept(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()

	accessSvc := new(MockAccessService)
	allowAll(accessSvc)
	hub := NewHub(accessSvc, testLogger())

	typist := testConn("typist")
	watcher := testConn("watcher")
	hub.Register(typist)
	hub.Register(watcher)

	require.NoError(t, hub.Join(ctx, typist, taskID))
	require.NoError(t, hub.Join(ctx, watcher, taskID))
	drainEvents(typist)
	drainEvents(watcher)

	hub.BroadcastExcept(taskID, typist, EventUserTyping, PresencePayload{UserID: typist.UserID()})

	assert.Empty(t, drainEvents(typist))
	watcherEvents := drainEvents(watcher)
	require.Len(t, watcherEvents, 1)
	assert.Equal(t, EventUserTyping, watcherEvents[0].Type)
}

func TestHubPush(t *testing.T) {
	accessSvc := new(MockAccessService)
	hub := NewHub(accessSvc, testLogger())

	// Two connections for the same user, neither in any room
	identity := auth.Identity{UserID: uuid.New(), DisplayName: "multi"}
	first := newConn(nil, identity, 16, time.Second, testLogger())
	second := newConn(nil, identity, 16, time.Second, testLogger())
	hub.Register(first)
	hub.Register(second)

	hub.Push(identity.UserID, events.TypeTaskNotification, map[string]string{"preview": "hi"})

	for _, c := range []*Conn{first, second} {
		evts := drainEvents(c)
		require.Len(t, evts, 1)
		assert.Equal(t, events.TypeTaskNotification, evts[0].Type)
	}

	// Unknown user is a no-op
	assert.NotPanics(t, func() {
		hub.Push(uuid.New(), events.TypeTaskNotification, nil)
	})
}

func TestHubHandleRoomEvent(t *testing.T) {
	ctx := context.Background()
	taskID := uuid.New()

	accessSvc := new(MockAccessService)
	allowAll(accessSvc)
	hub := NewHub(accessSvc, testLogger())

	member := testConn("member")
	hub.Register(member)
	require.NoError(t, hub.Join(ctx, member, taskID))

	evt := events.NewRoomEvent(events.TypeTaskUpdated, taskID, map[string]string{"title": "renamed"})
	require.NoError(t, hub.HandleRoomEvent(ctx, evt))

	got := drainEvents(member)
	require.Len(t, got, 1)
	assert.Equal(t, events.TypeTaskUpdated, got[0].Type)
}

func TestSlowConsumerIsClosed(t *testing.T) {
	identity := auth.Identity{UserID: uuid.New(), DisplayName: "slow"}
	conn := newConn(nil, identity, 1, time.Second, testLogger())

	conn.send(OutboundEvent{Type: "first"})
	conn.send(OutboundEvent{Type: "overflow"})

	select {
	case <-conn.closed:
	default:
		t.Fatal("expected the overflowing connection to be closed")
	}
}

func TestHubConcurrentJoinBroadcastLeave(t *testing.T) {
	ctx := context.Background()
	accessSvc := new(MockAccessService)
	allowAll(accessSvc)
	hub := NewHub(accessSvc, testLogger())

	rooms := []uuid.UUID{uuid.New(), uuid.New()}

	// A connection that left before the storm must see none of it.
	departed := testConn("departed")
	hub.Register(departed)
	require.NoError(t, hub.Join(ctx, departed, rooms[0]))
	hub.Leave(departed)
	drainEvents(departed)

	const (
		connCount  = 8
		iterations = 50
	)

	var wg sync.WaitGroup
	for i := 0; i < connCount; i++ {
		identity := auth.Identity{UserID: uuid.New(), DisplayName: fmt.Sprintf("c%d", i)}
		conn := newConn(nil, identity, 4096, time.Second, testLogger())
		hub.Register(conn)
		room := rooms[i%len(rooms)]

		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				if err := hub.Join(ctx, c, room); err != nil {
					return
				}
				hub.Broadcast(room, EventUserTyping, PresencePayload{UserID: c.UserID()})
				hub.Push(c.UserID(), events.TypeTaskNotification, nil)
				hub.Leave(c)
			}
			hub.Disconnect(c)
		}(conn)
	}
	wg.Wait()

	for _, room := range rooms {
		assert.Equal(t, 0, hub.RoomSize(room), "every member left, room must be empty")
	}
	assert.Empty(t, drainEvents(departed), "no event may reach a connection that already left")
}
