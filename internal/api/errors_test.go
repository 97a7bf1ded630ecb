package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/rgeorgiev/taskchat-api/internal/service/auth"
	"github.com/rgeorgiev/taskchat-api/internal/service/chat"
	"github.com/rgeorgiev/taskchat-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"missing token", auth.ErrMissingToken, http.StatusUnauthorized},
		{"not authorized", chat.ErrNotAuthorized, http.StatusForbidden},
		{"message not owned", chat.ErrMessageNotOwned, http.StatusForbidden},
		{"reply not found", chat.ErrReplyNotFound, http.StatusNotFound},
		{"task not found", store.ErrTaskNotFound, http.StatusNotFound},
		{"message not found", store.ErrMessageNotFound, http.StatusNotFound},
		{"validation", chat.ErrValidation, http.StatusBadRequest},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{"wrapped sentinel", fmt.Errorf("send: %w", chat.ErrNotAuthorized), http.StatusForbidden},
		{"unknown", errors.New("pq: connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	})

	t.Run("known sentinels map to fixed text", func(t *testing.T) {
		assert.Equal(t, "Invalid token", GetSafeErrorMessage(auth.ErrExpiredToken))
		assert.Equal(t, "You do not have access to this task", GetSafeErrorMessage(chat.ErrNotAuthorized))
		assert.Equal(t, "Message not found or not yours", GetSafeErrorMessage(chat.ErrMessageNotOwned))
		assert.Equal(t, "Task not found", GetSafeErrorMessage(store.ErrTaskNotFound))
	})

	t.Run("unknown errors never leak their text", func(t *testing.T) {
		err := errors.New("dial tcp 10.0.0.5:5432: connection refused")
		msg := GetSafeErrorMessage(err)
		assert.Equal(t, "An unexpected error occurred", msg)
		assert.NotContains(t, msg, "10.0.0.5")
	})
}
