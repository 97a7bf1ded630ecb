package events

import (
	"context"

	"github.com/google/uuid"
)

// Room event types shared between the chat orchestrator, the notification
// fan-out, and the collaborator-facing hooks. These names are part of the
// client wire contract.
const (
	// TypeNewMessage carries the canonical row of a freshly persisted
	// chat message.
	TypeNewMessage = "new_message"

	// TypeMessageEdited carries the canonical row of an edited message.
	TypeMessageEdited = "message_edited"

	// TypeMessageDeleted carries only the message id and a deletion
	// marker, never the former body.
	TypeMessageDeleted = "message_deleted"

	// TypeTaskNotification is pushed to a live recipient when a
	// notification row was persisted for them.
	TypeTaskNotification = "task_notification"

	// TypeTaskUpdated is raised by the task CRUD module when task fields
	// change.
	TypeTaskUpdated = "task_updated"

	// TypeMemberChanged is raised by the team module when a task's
	// membership changes.
	TypeMemberChanged = "member_changed"
)

// RoomEvent is a transport-agnostic event addressed to one task's room.
// Modules outside the chat subsystem publish these to reach connected
// clients without depending on the websocket layer.
type RoomEvent struct {
	// Type is one of the Type* constants.
	Type string `json:"type"`

	// TaskID identifies the room the event belongs to.
	TaskID uuid.UUID `json:"task_id"`

	// Payload is the event body delivered to clients as-is.
	Payload any `json:"payload"`
}

// NewRoomEvent creates a RoomEvent for the given room.
func NewRoomEvent(eventType string, taskID uuid.UUID, payload any) RoomEvent {
	return RoomEvent{
		Type:    eventType,
		TaskID:  taskID,
		Payload: payload,
	}
}

// Handler receives room events published through an Emitter.
type Handler interface {
	// HandleRoomEvent processes the given event. Returns an error if the
	// event cannot be handled successfully.
	HandleRoomEvent(ctx context.Context, event RoomEvent) error
}

// Emitter publishes room events to all registered handlers. This is the
// narrow surface the CRUD modules use to push task_updated and
// member_changed events into live rooms.
type Emitter interface {
	// Emit publishes the given event to all registered handlers.
	Emit(ctx context.Context, event RoomEvent) error
}
