package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Chat message validation errors
var (
	// ErrMessageIDEmpty is returned when a message ID is empty or nil.
	ErrMessageIDEmpty = errors.New("message ID cannot be empty")

	// ErrMessageTaskIDEmpty is returned when a message's task ID is empty or nil.
	ErrMessageTaskIDEmpty = errors.New("message task ID cannot be empty")

	// ErrMessageSenderIDEmpty is returned when a message's sender ID is empty or nil.
	ErrMessageSenderIDEmpty = errors.New("message sender ID cannot be empty")

	// ErrMessageBodyEmpty is returned when a message's body is empty.
	ErrMessageBodyEmpty = errors.New("message body cannot be empty")

	// ErrAttachmentInvalid is returned when an attachment is missing a name or URL.
	ErrAttachmentInvalid = errors.New("attachment must have a name and a URL")
)

// Attachment describes a file attached to a chat message. The file itself
// lives in external storage; messages only carry the reference.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// ChatMessage represents one message in a task's chat room. A message always
// belongs to exactly one task; TaskID is immutable after creation. Messages
// are never hard-deleted: deletion sets IsDeleted and blanks the body on
// delivery while the row persists for auditability.
type ChatMessage struct {
	ID          uuid.UUID    `json:"id"`
	TaskID      uuid.UUID    `json:"task_id"`
	SenderID    uuid.UUID    `json:"sender_id"`
	SenderName  string       `json:"sender_name,omitempty"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ReplyTo     *uuid.UUID   `json:"reply_to,omitempty"`
	IsEdited    bool         `json:"is_edited"`
	EditedAt    *time.Time   `json:"edited_at,omitempty"`
	IsDeleted   bool         `json:"is_deleted"`
	DeletedAt   *time.Time   `json:"deleted_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// NewChatMessage creates a new ChatMessage for the given task and sender.
// It generates a new UUID for the message and sets the creation timestamp.
// Returns an error if validation fails.
func NewChatMessage(
	taskID, senderID uuid.UUID,
	body string,
	attachments []Attachment,
	replyTo *uuid.UUID,
) (*ChatMessage, error) {
	msg := &ChatMessage{
		ID:          uuid.New(),
		TaskID:      taskID,
		SenderID:    senderID,
		Body:        body,
		Attachments: attachments,
		ReplyTo:     replyTo,
		CreatedAt:   time.Now().UTC(),
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}

	return msg, nil
}

// Validate checks if the ChatMessage has valid data.
// Returns an error if any field fails validation.
func (m *ChatMessage) Validate() error {
	if m.ID == uuid.Nil {
		return ErrMessageIDEmpty
	}

	if m.TaskID == uuid.Nil {
		return ErrMessageTaskIDEmpty
	}

	if m.SenderID == uuid.Nil {
		return ErrMessageSenderIDEmpty
	}

	if m.Body == "" {
		return ErrMessageBodyEmpty
	}

	for _, att := range m.Attachments {
		if att.Name == "" || att.URL == "" {
			return ErrAttachmentInvalid
		}
	}

	return nil
}
