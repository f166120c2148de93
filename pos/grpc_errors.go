package pos

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MapCommandError converts a CommandError to a gRPC status error.
// Non-CommandError values are wrapped as Internal.
func MapCommandError(err error) error {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case StatusInvalidArgument:
			return status.Error(codes.InvalidArgument, cmdErr.Message)
		case StatusFailedPrecondition:
			return status.Error(codes.FailedPrecondition, cmdErr.Message)
		case StatusNotFound:
			return status.Error(codes.NotFound, cmdErr.Message)
		}
	}
	return status.Errorf(codes.Internal, "internal error: %v", err)
}

// HTTPStatus returns the HTTP status code for an error returned by a command.
func HTTPStatus(err error) int {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return http.StatusInternalServerError
	}
	switch cmdErr.Code {
	case StatusInvalidArgument:
		return http.StatusBadRequest
	case StatusFailedPrecondition:
		return http.StatusConflict
	case StatusNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
