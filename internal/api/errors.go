package api

import (
	"errors"
	"net/http"

	"github.com/rgeorgiev/taskchat-api/internal/service/auth"
	"github.com/rgeorgiev/taskchat-api/internal/service/chat"
	"github.com/rgeorgiev/taskchat-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status
// codes based on the error type. This prevents leaking internal error
// types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Authorization errors. A foreign message maps here too: callers
	// cannot tell a missing message from someone else's.
	case errors.Is(err, chat.ErrNotAuthorized),
		errors.Is(err, chat.ErrMessageNotOwned):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, chat.ErrReplyNotFound),
		errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrMessageNotFound),
		errors.Is(err, store.ErrMembershipNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, chat.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal
// details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	// Authorization errors
	case errors.Is(err, chat.ErrNotAuthorized):
		return "You do not have access to this task"

	case errors.Is(err, chat.ErrMessageNotOwned):
		return "Message not found or not yours"

	// Not found errors
	case errors.Is(err, chat.ErrReplyNotFound):
		return "Replied-to message not found"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrMessageNotFound):
		return "Message not found"

	// Bad request errors
	case errors.Is(err, chat.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}
