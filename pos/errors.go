// Package pos holds the shared kernel used by every POS domain: command
// errors, validation helpers, state replay, transport error mapping, money
// rounding and identities.
package pos

import "fmt"

// StatusCode represents the category of a command rejection.
type StatusCode int

const (
	StatusInvalidArgument StatusCode = iota
	StatusFailedPrecondition
	StatusNotFound
)

func (s StatusCode) String() string {
	switch s {
	case StatusInvalidArgument:
		return "INVALID_ARGUMENT"
	case StatusFailedPrecondition:
		return "FAILED_PRECONDITION"
	case StatusNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// CommandError is returned when a command is rejected by business logic.
type CommandError struct {
	Code    StatusCode
	Message string
}

func (e *CommandError) Error() string {
	return e.Message
}

// NewInvalidArgument creates a CommandError for invalid input.
func NewInvalidArgument(message string) *CommandError {
	return &CommandError{Code: StatusInvalidArgument, Message: message}
}

// NewInvalidArgumentf creates an invalid-argument CommandError with a formatted message.
func NewInvalidArgumentf(format string, args ...interface{}) *CommandError {
	return &CommandError{Code: StatusInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NewFailedPrecondition creates a CommandError for violated preconditions.
func NewFailedPrecondition(message string) *CommandError {
	return &CommandError{Code: StatusFailedPrecondition, Message: message}
}

// NewFailedPreconditionf creates a CommandError with a formatted message.
func NewFailedPreconditionf(format string, args ...interface{}) *CommandError {
	return &CommandError{Code: StatusFailedPrecondition, Message: fmt.Sprintf(format, args...)}
}

// NewNotFound creates a CommandError for a missing entity.
func NewNotFound(message string) *CommandError {
	return &CommandError{Code: StatusNotFound, Message: message}
}

// NewNotFoundf creates a not-found CommandError with a formatted message.
func NewNotFoundf(format string, args ...interface{}) *CommandError {
	return &CommandError{Code: StatusNotFound, Message: fmt.Sprintf(format, args...)}
}
