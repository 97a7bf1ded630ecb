package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatMessage(t *testing.T) {
	taskID := uuid.New()
	senderID := uuid.New()

	t.Run("creates valid message", func(t *testing.T) {
		msg, err := NewChatMessage(taskID, senderID, "hello", nil, nil)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, msg.ID)
		assert.Equal(t, taskID, msg.TaskID)
		assert.Equal(t, senderID, msg.SenderID)
		assert.Equal(t, "hello", msg.Body)
		assert.False(t, msg.IsEdited)
		assert.False(t, msg.IsDeleted)
		assert.False(t, msg.CreatedAt.IsZero())
	})

	t.Run("keeps reply reference", func(t *testing.T) {
		parent := uuid.New()
		msg, err := NewChatMessage(taskID, senderID, "re: hello", nil, &parent)
		require.NoError(t, err)
		require.NotNil(t, msg.ReplyTo)
		assert.Equal(t, parent, *msg.ReplyTo)
	})

	tests := []struct {
		name     string
		taskID   uuid.UUID
		senderID uuid.UUID
		body     string
		atts     []Attachment
		wantErr  error
	}{
		{
			name:     "missing task ID",
			taskID:   uuid.Nil,
			senderID: senderID,
			body:     "hello",
			wantErr:  ErrMessageTaskIDEmpty,
		},
		{
			name:     "missing sender ID",
			taskID:   taskID,
			senderID: uuid.Nil,
			body:     "hello",
			wantErr:  ErrMessageSenderIDEmpty,
		},
		{
			name:     "empty body",
			taskID:   taskID,
			senderID: senderID,
			body:     "",
			wantErr:  ErrMessageBodyEmpty,
		},
		{
			name:     "attachment without URL",
			taskID:   taskID,
			senderID: senderID,
			body:     "see attached",
			atts:     []Attachment{{Name: "report.pdf", Size: 1024}},
			wantErr:  ErrAttachmentInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChatMessage(tt.taskID, tt.senderID, tt.body, tt.atts, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
