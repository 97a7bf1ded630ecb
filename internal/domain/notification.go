package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// NotificationType identifies what kind of event a notification describes.
type NotificationType string

// Supported notification types.
const (
	NotificationTypeChatMessage NotificationType = "chat_message"
	NotificationTypeMention     NotificationType = "mention"
	NotificationTypeReply       NotificationType = "reply"
)

// NotificationPreviewLimit is the maximum number of runes kept in a
// notification's preview text.
const NotificationPreviewLimit = 100

// Notification validation errors
var (
	// ErrNotificationIDEmpty is returned when a notification ID is empty or nil.
	ErrNotificationIDEmpty = errors.New("notification ID cannot be empty")

	// ErrNotificationRecipientEmpty is returned when a notification's recipient ID is empty or nil.
	ErrNotificationRecipientEmpty = errors.New("notification recipient ID cannot be empty")

	// ErrNotificationSenderEmpty is returned when a notification's sender ID is empty or nil.
	ErrNotificationSenderEmpty = errors.New("notification sender ID cannot be empty")

	// ErrNotificationTypeInvalid is returned when a notification carries an unknown type.
	ErrNotificationTypeInvalid = errors.New("notification type is not valid")
)

// NotificationPayload is the structured payload persisted alongside a chat
// notification. It carries everything a client needs to render and navigate
// to the originating message without another round trip.
type NotificationPayload struct {
	TaskID     uuid.UUID `json:"task_id"`
	TaskTitle  string    `json:"task_title"`
	MessageID  uuid.UUID `json:"message_id"`
	SenderName string    `json:"sender_name"`
	Message    string    `json:"message"`
}

// Notification represents one durable per-recipient notification row.
// Rows are created only as a side effect of message creation and mutated
// only by the recipient marking them read.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	RecipientID uuid.UUID        `json:"recipient_id"`
	SenderID    uuid.UUID        `json:"sender_id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Preview     string           `json:"preview"`
	Payload     json.RawMessage  `json:"payload"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewNotification creates a notification for one recipient. The preview is
// truncated to NotificationPreviewLimit runes; the payload keeps the full
// message text.
func NewNotification(
	recipientID, senderID uuid.UUID,
	typ NotificationType,
	title string,
	payload NotificationPayload,
) (*Notification, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	n := &Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        typ,
		Title:       title,
		Preview:     TruncatePreview(payload.Message),
		Payload:     raw,
		CreatedAt:   time.Now().UTC(),
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}

	return n, nil
}

// Validate checks if the Notification has valid data.
func (n *Notification) Validate() error {
	if n.ID == uuid.Nil {
		return ErrNotificationIDEmpty
	}

	if n.RecipientID == uuid.Nil {
		return ErrNotificationRecipientEmpty
	}

	if n.SenderID == uuid.Nil {
		return ErrNotificationSenderEmpty
	}

	switch n.Type {
	case NotificationTypeChatMessage, NotificationTypeMention, NotificationTypeReply:
	default:
		return ErrNotificationTypeInvalid
	}

	return nil
}

// UnmarshalPayload decodes the structured payload into p.
func (n *Notification) UnmarshalPayload(p *NotificationPayload) error {
	return json.Unmarshal(n.Payload, p)
}

// TruncatePreview shortens text to NotificationPreviewLimit runes, appending
// an ellipsis when truncation occurred. Rune-based so multi-byte text is
// never cut mid-character.
func TruncatePreview(text string) string {
	runes := []rune(text)
	if len(runes) <= NotificationPreviewLimit {
		return text
	}
	return string(runes[:NotificationPreviewLimit-1]) + "…"
}
