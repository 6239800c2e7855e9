package notify

import (
	"errors"
	"fmt"
)

var (
	ErrTransport        = errors.New("stream transport failure")
	ErrStale            = errors.New("no frame received within the heartbeat timeout")
	ErrShutdown         = errors.New("server requested shutdown")
	ErrUnexpectedStatus = errors.New("unexpected stream response status")
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrOffline          = errors.New("network is unreachable")
	ErrClientClosed     = errors.New("client is closed")
	ErrInvalidListener  = errors.New("listener does not match the event signature")
)

// FailureKind classifies why a stream stopped or a frame was rejected
type FailureKind int

const (
	FailureTransport FailureKind = iota
	FailureStale
	FailureShutdown
	FailureOffline
	FailureParse
	FailureApplication
)

var failureKindText = map[FailureKind]string{
	FailureTransport:   "transport",
	FailureStale:       "stale",
	FailureShutdown:    "shutdown",
	FailureOffline:     "offline",
	FailureParse:       "parse",
	FailureApplication: "application",
}

func (k FailureKind) String() string {
	if s, ok := failureKindText[k]; ok {
		return s
	}
	return fmt.Sprintf("failure(%d)", int(k))
}

// StreamError describes a failure of the notification stream. Only the
// transport, stale, shutdown and offline kinds ever cause a reconnect.
type StreamError struct {
	Kind FailureKind
	Err  error
}

func (e *StreamError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// Is matches another StreamError of the same kind
func (e *StreamError) Is(target error) bool {
	t, ok := target.(*StreamError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newStreamError(kind FailureKind, err error) *StreamError {
	return &StreamError{Kind: kind, Err: err}
}
