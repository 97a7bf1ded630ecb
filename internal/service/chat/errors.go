package chat

import (
	"errors"
	"fmt"
)

// Common error types for the chat service
var (
	// ErrValidation indicates a request was missing required fields.
	ErrValidation = errors.New("invalid chat request")

	// ErrNotAuthorized indicates the caller lacks room access or the
	// capability the action requires.
	ErrNotAuthorized = errors.New("not authorized for this task")

	// ErrMessageNotOwned indicates a mutation matched no row: the message
	// does not exist or belongs to someone else. The two cases are
	// deliberately indistinguishable.
	ErrMessageNotOwned = errors.New("message not found or not owned by caller")

	// ErrReplyNotFound indicates reply_to references a message that does
	// not exist or belongs to a different task.
	ErrReplyNotFound = errors.New("replied-to message not found in this task")
)

// ServiceError wraps errors from the chat service with operation context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "send", "edit")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chat %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("chat %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// newServiceError wraps err unless it is one of the service's sentinels,
// which pass through unchanged so callers can match on them.
func newServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotAuthorized) ||
		errors.Is(err, ErrMessageNotOwned) ||
		errors.Is(err, ErrReplyNotFound) {
		return err
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
