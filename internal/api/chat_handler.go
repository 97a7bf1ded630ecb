// Package api provides HTTP handlers for the API.
package api

import (
	"log/slog"
	"net/http"

	"github.com/rgeorgiev/taskchat-api/internal/api/shared"
	"github.com/rgeorgiev/taskchat-api/internal/platform/logger"
	"github.com/rgeorgiev/taskchat-api/internal/service/chat"
)

// ChatHandler handles task chat HTTP requests. It drives the same
// orchestrator as the realtime transport, so messages posted here are
// broadcast to connected room members all the same.
type ChatHandler struct {
	chatService chat.Service
	logger      *slog.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(chatService chat.Service, logger *slog.Logger) *ChatHandler {
	if chatService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("chat service cannot be nil for ChatHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ChatHandler")
	}

	return &ChatHandler{
		chatService: chatService,
		logger:      logger.With(slog.String("component", "chat_handler")),
	}
}

// SendMessage handles POST /tasks/{taskID}/messages requests.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	taskID, ok := getPathUUID(r, "taskID")
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req SendMessageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Message body is required")
		return
	}

	msg, err := h.chatService.Send(r.Context(), chat.SendRequest{
		TaskID:      taskID,
		SenderID:    userID,
		Body:        req.Body,
		Attachments: req.Attachments,
		ReplyTo:     req.ReplyTo,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("message posted over HTTP",
		slog.String("task_id", taskID.String()),
		slog.String("message_id", msg.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, msg)
}

// EditMessage handles PUT /tasks/{taskID}/messages/{messageID} requests.
func (h *ChatHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	taskID, ok := getPathUUID(r, "taskID")
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}
	messageID, ok := getPathUUID(r, "messageID")
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid message ID")
		return
	}

	var req EditMessageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Message body is required")
		return
	}

	msg, err := h.chatService.Edit(r.Context(), chat.EditRequest{
		TaskID:    taskID,
		MessageID: messageID,
		EditorID:  userID,
		Body:      req.Body,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, msg)
}

// DeleteMessage handles DELETE /tasks/{taskID}/messages/{messageID} requests.
func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	taskID, ok := getPathUUID(r, "taskID")
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}
	messageID, ok := getPathUUID(r, "messageID")
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid message ID")
		return
	}

	err := h.chatService.Delete(r.Context(), chat.DeleteRequest{
		TaskID:      taskID,
		MessageID:   messageID,
		RequesterID: userID,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetHistory handles GET /tasks/{taskID}/messages requests. Pagination is
// 1-based via the page and page_size query parameters.
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	taskID, ok := getPathUUID(r, "taskID")
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	page := getQueryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := getQueryInt(r, "page_size", 0)

	messages, err := h.chatService.History(r.Context(), chat.HistoryRequest{
		TaskID:      taskID,
		RequesterID: userID,
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, HistoryResponse{
		Messages: messages,
		Page:     page,
		PageSize: len(messages),
	})
}

// GetCount handles GET /tasks/{taskID}/messages/count requests.
func (h *ChatHandler) GetCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	taskID, ok := getPathUUID(r, "taskID")
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	count, err := h.chatService.Count(r.Context(), taskID, userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CountResponse{Count: count})
}
