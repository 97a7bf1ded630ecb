package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/rgeorgiev/taskchat-api/internal/events"
	"github.com/rgeorgiev/taskchat-api/internal/service/access"
	"github.com/rgeorgiev/taskchat-api/internal/service/chat"
	"github.com/rgeorgiev/taskchat-api/internal/service/notify"
)

// Hub errors delivered back to the acting connection only.
var (
	// ErrRoomAccessDenied means the permission check refused the join.
	ErrRoomAccessDenied = errors.New("no access to this room")

	// ErrNotInRoom means the action requires current room membership.
	ErrNotInRoom = errors.New("not joined to this room")
)

// Hub owns all room state. Joins, leaves, and broadcasts take the single
// hub lock, so a broadcast never misses a concurrently-joining member and
// never targets a member that already left. Sends inside the lock are
// non-blocking, see Conn.send.
type Hub struct {
	mu     sync.Mutex
	rooms  map[uuid.UUID]map[*Conn]struct{}
	byUser map[uuid.UUID]map[*Conn]struct{}

	access access.Service
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(accessSvc access.Service, logger *slog.Logger) *Hub {
	if accessSvc == nil {
		panic("access service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:  make(map[uuid.UUID]map[*Conn]struct{}),
		byUser: make(map[uuid.UUID]map[*Conn]struct{}),
		access: accessSvc,
		logger: logger.With(slog.String("component", "ws_hub")),
	}
}

var (
	_ chat.Broadcaster = (*Hub)(nil)
	_ notify.Pusher    = (*Hub)(nil)
	_ events.Handler   = (*Hub)(nil)
)

// Register adds a freshly accepted connection to the user index. The
// connection is not in any room until it joins one.
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.byUser[c.UserID()]
	if !ok {
		conns = make(map[*Conn]struct{})
		h.byUser[c.UserID()] = conns
	}
	conns[c] = struct{}{}

	h.logger.Debug("connection registered",
		slog.String("conn_id", c.id.String()),
		slog.String("user_id", c.UserID().String()))
}

// Disconnect removes the connection from its room, notifying the
// remaining members, and drops it from the user index.
func (h *Hub) Disconnect(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(c)

	if conns, ok := h.byUser[c.UserID()]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.byUser, c.UserID())
		}
	}

	h.logger.Debug("connection removed",
		slog.String("conn_id", c.id.String()),
		slog.String("user_id", c.UserID().String()))
}

// Join checks access and adds the connection to the room. The other
// members see a user_joined event; the joiner does not. A connection is
// in at most one room, so joining implies leaving the previous room.
func (h *Hub) Join(ctx context.Context, c *Conn, taskID uuid.UUID) error {
	decision, err := h.access.Resolve(ctx, c.UserID(), taskID)
	if err != nil {
		return fmt.Errorf("failed to resolve room access: %w", err)
	}
	if !decision.Allowed {
		return ErrRoomAccessDenied
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if c.currentRoom == taskID {
		return nil
	}
	h.leaveLocked(c)

	room, ok := h.rooms[taskID]
	if !ok {
		room = make(map[*Conn]struct{})
		h.rooms[taskID] = room
	}

	h.sendToRoomLocked(taskID, c, OutboundEvent{
		Type:    EventUserJoined,
		Payload: PresencePayload{UserID: c.UserID(), DisplayName: c.DisplayName()},
	})

	room[c] = struct{}{}
	c.currentRoom = taskID
	return nil
}

// Leave removes the connection from its current room, if any.
func (h *Hub) Leave(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c)
}

// leaveLocked removes c from its room and tells the remaining members.
// Empty rooms are garbage-collected. Caller holds h.mu.
func (h *Hub) leaveLocked(c *Conn) {
	if c.currentRoom == uuid.Nil {
		return
	}

	taskID := c.currentRoom
	c.currentRoom = uuid.Nil

	room, ok := h.rooms[taskID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, taskID)
		return
	}

	h.sendToRoomLocked(taskID, nil, OutboundEvent{
		Type:    EventUserLeft,
		Payload: PresencePayload{UserID: c.UserID(), DisplayName: c.DisplayName()},
	})
}

// InRoom reports whether the connection is currently joined to the room.
func (h *Hub) InRoom(c *Conn, taskID uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return c.currentRoom == taskID
}

// Broadcast delivers the event to every connection in the room, with no
// exceptions. This is the chat orchestrator's broadcaster.
func (h *Hub) Broadcast(taskID uuid.UUID, eventType string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendToRoomLocked(taskID, nil, OutboundEvent{Type: eventType, Payload: payload})
}

// BroadcastExcept delivers the event to every room member except the
// given connection. Used for presence, where the actor already knows.
func (h *Hub) BroadcastExcept(taskID uuid.UUID, except *Conn, eventType string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendToRoomLocked(taskID, except, OutboundEvent{Type: eventType, Payload: payload})
}

// Push delivers the event to every live connection of one user, in
// whatever rooms they are. This is the notification service's pusher.
func (h *Hub) Push(userID uuid.UUID, eventType string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.byUser[userID] {
		c.send(OutboundEvent{Type: eventType, Payload: payload})
	}
}

// HandleRoomEvent forwards a collaborator-raised room event (task_updated,
// member_changed) into the room.
func (h *Hub) HandleRoomEvent(_ context.Context, event events.RoomEvent) error {
	h.Broadcast(event.TaskID, event.Type, event.Payload)
	return nil
}

// RoomSize returns the number of connections currently in the room.
func (h *Hub) RoomSize(taskID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[taskID])
}

// sendToRoomLocked queues the event for every member of the room except
// skip. Caller holds h.mu.
func (h *Hub) sendToRoomLocked(taskID uuid.UUID, skip *Conn, evt OutboundEvent) {
	for c := range h.rooms[taskID] {
		if c == skip {
			continue
		}
		c.send(evt)
	}
}
