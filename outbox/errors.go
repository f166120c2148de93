package outbox

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FailureKind says what went wrong delivering a queued order to the hub,
// and with it whether the push is worth retrying.
type FailureKind int

const (
	// FailureUnreachable means the hub could not be dialled or was not
	// serving. The push stays queued.
	FailureUnreachable FailureKind = iota
	// FailureTimeout means the push ran out of time. The hub may or may not
	// have stored it; upserts make the retry safe.
	FailureTimeout
	// FailureHub means the hub answered but could not store the order.
	FailureHub
	// FailureRejected means the hub refused the payload. Retrying the same
	// bytes cannot succeed, so the push is dead-lettered.
	FailureRejected
	// FailureEncoding means the queued payload could not be put in an
	// envelope at all.
	FailureEncoding
)

func (k FailureKind) String() string {
	switch k {
	case FailureUnreachable:
		return "unreachable"
	case FailureTimeout:
		return "timeout"
	case FailureHub:
		return "hub"
	case FailureRejected:
		return "rejected"
	case FailureEncoding:
		return "encoding"
	}
	return fmt.Sprintf("FailureKind(%d)", int(k))
}

// SyncError is a failed push from a till to its hub.
type SyncError struct {
	Kind  FailureKind
	Cause error
}

func (e *SyncError) Error() string {
	if e.Cause == nil {
		return "sync " + e.Kind.String()
	}
	return fmt.Sprintf("sync %s: %v", e.Kind, e.Cause)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// Code is the gRPC status the hub answered with, or codes.Unknown when the
// push never got an answer.
func (e *SyncError) Code() codes.Code {
	if e.Cause == nil {
		return codes.Unknown
	}
	if s, ok := status.FromError(e.Cause); ok {
		return s.Code()
	}
	return codes.Unknown
}

// IsRejected reports whether the push can never succeed as queued.
func (e *SyncError) IsRejected() bool {
	return e.Kind == FailureRejected || e.Kind == FailureEncoding
}

// Unreachable wraps a dial or connection failure.
func Unreachable(err error) *SyncError {
	return &SyncError{Kind: FailureUnreachable, Cause: err}
}

// EncodingError wraps a payload that cannot be enveloped.
func EncodingError(err error) *SyncError {
	return &SyncError{Kind: FailureEncoding, Cause: err}
}

// HubError classifies the error returned by a push call.
func HubError(err error) *SyncError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &SyncError{Kind: FailureTimeout, Cause: err}
	}
	e := &SyncError{Kind: FailureHub, Cause: err}
	switch e.Code() {
	case codes.Unavailable:
		e.Kind = FailureUnreachable
	case codes.DeadlineExceeded, codes.Canceled:
		e.Kind = FailureTimeout
	case codes.InvalidArgument, codes.FailedPrecondition:
		e.Kind = FailureRejected
	}
	return e
}

// AsSyncError extracts a SyncError from an error chain.
func AsSyncError(err error) *SyncError {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr
	}
	return nil
}
