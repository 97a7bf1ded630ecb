package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// TaskRole is a user's role on a task.
type TaskRole string

// Supported task roles, from most to least privileged.
const (
	TaskRoleOwner  TaskRole = "owner"
	TaskRoleAdmin  TaskRole = "admin"
	TaskRoleMember TaskRole = "member"
	TaskRoleViewer TaskRole = "viewer"
)

// Membership validation errors
var (
	// ErrMembershipTaskIDEmpty is returned when a membership's task ID is empty or nil.
	ErrMembershipTaskIDEmpty = errors.New("membership task ID cannot be empty")

	// ErrMembershipUserIDEmpty is returned when a membership's user ID is empty or nil.
	ErrMembershipUserIDEmpty = errors.New("membership user ID cannot be empty")
)

// Capabilities are the per-membership boolean flags refining what a
// non-owner role may do inside a task.
type Capabilities struct {
	CanEdit    bool `json:"can_edit"`
	CanComment bool `json:"can_comment"`
	CanUpload  bool `json:"can_upload"`
}

// TaskMembership records one user's access to one task: their role and
// capability flags. The task creator is the owner and implicitly bypasses
// role and capability checks.
type TaskMembership struct {
	TaskID       uuid.UUID    `json:"task_id"`
	UserID       uuid.UUID    `json:"user_id"`
	Role         TaskRole     `json:"role"`
	Capabilities Capabilities `json:"capabilities"`
}

// Validate checks if the TaskMembership has valid data.
func (m *TaskMembership) Validate() error {
	if m.TaskID == uuid.Nil {
		return ErrMembershipTaskIDEmpty
	}

	if m.UserID == uuid.Nil {
		return ErrMembershipUserIDEmpty
	}

	if _, err := ParseTaskRole(string(m.Role)); err != nil {
		return err
	}

	return nil
}

// IsOwner reports whether this membership carries the owner role.
func (m *TaskMembership) IsOwner() bool {
	return m.Role == TaskRoleOwner
}

// ParseTaskRole converts a string into a TaskRole, returning an error for
// unknown values.
func ParseTaskRole(s string) (TaskRole, error) {
	switch TaskRole(s) {
	case TaskRoleOwner, TaskRoleAdmin, TaskRoleMember, TaskRoleViewer:
		return TaskRole(s), nil
	default:
		return "", fmt.Errorf("unknown task role %q", s)
	}
}
