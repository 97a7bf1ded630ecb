package access

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rgeorgiev/taskchat-api/internal/domain"
	"github.com/rgeorgiev/taskchat-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMembershipStore mocks the store.MembershipStore interface
type MockMembershipStore struct {
	mock.Mock
}

func (m *MockMembershipStore) GetMembership(
	ctx context.Context,
	taskID, userID uuid.UUID,
) (*domain.TaskMembership, error) {
	args := m.Called(ctx, taskID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TaskMembership), args.Error(1)
}

func (m *MockMembershipStore) ListMemberIDs(
	ctx context.Context,
	taskID uuid.UUID,
) ([]uuid.UUID, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockMembershipStore) TaskTitle(ctx context.Context, taskID uuid.UUID) (string, error) {
	args := m.Called(ctx, taskID)
	return args.String(0), args.Error(1)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()
	taskID := uuid.New()

	t.Run("owner bypasses capabilities", func(t *testing.T) {
		ms := new(MockMembershipStore)
		ms.On("GetMembership", ctx, taskID, actorID).Return(&domain.TaskMembership{
			TaskID: taskID,
			UserID: actorID,
			Role:   domain.TaskRoleOwner,
			// Even with all flags off the owner may do everything.
			Capabilities: domain.Capabilities{},
		}, nil)

		svc := NewService(ms, nil)
		decision, err := svc.Resolve(ctx, actorID, taskID)
		require.NoError(t, err)

		assert.True(t, decision.Allowed)
		assert.True(t, decision.Owner)
		assert.True(t, decision.CanComment())
		assert.True(t, decision.CanEdit())
		assert.True(t, decision.CanUpload())
	})

	t.Run("member capabilities apply", func(t *testing.T) {
		ms := new(MockMembershipStore)
		ms.On("GetMembership", ctx, taskID, actorID).Return(&domain.TaskMembership{
			TaskID: taskID,
			UserID: actorID,
			Role:   domain.TaskRoleMember,
			Capabilities: domain.Capabilities{
				CanComment: true,
			},
		}, nil)

		svc := NewService(ms, nil)
		decision, err := svc.Resolve(ctx, actorID, taskID)
		require.NoError(t, err)

		assert.True(t, decision.Allowed)
		assert.False(t, decision.Owner)
		assert.True(t, decision.CanComment())
		assert.False(t, decision.CanEdit())
		assert.False(t, decision.CanUpload())
	})

	t.Run("missing membership denies without error", func(t *testing.T) {
		ms := new(MockMembershipStore)
		ms.On("GetMembership", ctx, taskID, actorID).Return(nil, store.ErrMembershipNotFound)

		svc := NewService(ms, nil)
		decision, err := svc.Resolve(ctx, actorID, taskID)
		require.NoError(t, err)

		assert.False(t, decision.Allowed)
		assert.False(t, decision.CanComment())
	})

	t.Run("missing task denies without error", func(t *testing.T) {
		ms := new(MockMembershipStore)
		ms.On("GetMembership", ctx, taskID, actorID).Return(nil, store.ErrTaskNotFound)

		svc := NewService(ms, nil)
		decision, err := svc.Resolve(ctx, actorID, taskID)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
	})

	t.Run("infrastructure failure surfaces", func(t *testing.T) {
		dbErr := errors.New("connection refused")
		ms := new(MockMembershipStore)
		ms.On("GetMembership", ctx, taskID, actorID).Return(nil, dbErr)

		svc := NewService(ms, nil)
		_, err := svc.Resolve(ctx, actorID, taskID)
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestDecisionZeroValueDeniesEverything(t *testing.T) {
	var d Decision
	assert.False(t, d.CanComment())
	assert.False(t, d.CanEdit())
	assert.False(t, d.CanUpload())
}
