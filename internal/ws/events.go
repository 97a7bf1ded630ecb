package ws

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rgeorgiev/taskchat-api/internal/domain"
)

// Inbound event types accepted from clients.
const (
	EventJoinTask      = "join_task"
	EventLeaveTask     = "leave_task"
	EventSendMessage   = "send_message"
	EventEditMessage   = "edit_message"
	EventDeleteMessage = "delete_message"
	EventTypingStart   = "typing_start"
	EventTypingStop    = "typing_stop"
)

// Outbound event types owned by the transport. The content events
// (new_message and friends) live in the events package because other
// modules publish them too.
const (
	EventConnected         = "connected"
	EventUserJoined        = "user_joined"
	EventUserLeft          = "user_left"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventError             = "error"
)

// InboundEvent is the envelope every client frame must decode to.
type InboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// OutboundEvent is the envelope every server frame is encoded from.
type OutboundEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// RoomPayload addresses an event at one room.
type RoomPayload struct {
	RoomID uuid.UUID `json:"room_id"`
}

// SendMessagePayload carries a message submission.
type SendMessagePayload struct {
	RoomID      uuid.UUID           `json:"room_id"`
	Body        string              `json:"body"`
	Attachments []domain.Attachment `json:"attachments,omitempty"`
	ReplyTo     *uuid.UUID          `json:"reply_to,omitempty"`
}

// EditMessagePayload carries a message edit.
type EditMessagePayload struct {
	RoomID    uuid.UUID `json:"room_id"`
	MessageID uuid.UUID `json:"message_id"`
	NewBody   string    `json:"new_body"`
}

// DeleteMessagePayload carries a message soft-delete.
type DeleteMessagePayload struct {
	RoomID    uuid.UUID `json:"room_id"`
	MessageID uuid.UUID `json:"message_id"`
}

// PresencePayload identifies the user behind a user_joined, user_left, or
// typing event.
type PresencePayload struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
}

// ErrorPayload is delivered only to the connection whose action failed,
// never broadcast to a room.
type ErrorPayload struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
