package api

import (
	"github.com/google/uuid"
	"github.com/rgeorgiev/taskchat-api/internal/domain"
)

// Common request/response structures

// SendMessageRequest defines the payload for posting a chat message.
type SendMessageRequest struct {
	Body        string              `json:"body"                  validate:"required"`
	Attachments []domain.Attachment `json:"attachments,omitempty"`
	ReplyTo     *uuid.UUID          `json:"reply_to,omitempty"`
}

// EditMessageRequest defines the payload for editing a chat message.
type EditMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

// HistoryResponse defines the paginated message history response.
type HistoryResponse struct {
	Messages []*domain.ChatMessage `json:"messages"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

// CountResponse defines the message count response.
type CountResponse struct {
	Count int64 `json:"count"`
}
