package broker

import (
	"errors"
	"fmt"
	"time"
)

// Error is the generic agent-side failure for one request.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// TimeoutError reports that a request's deadline elapsed before the
// agent produced a response.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out (%.1f s)", e.Timeout.Seconds())
}

// CancelledError reports that a request was cancelled, normally by a
// KillAll after a user interrupt.
type CancelledError struct{}

func (e *CancelledError) Error() string {
	return "request cancelled"
}

// NoAgentsError reports that no agent endpoint could be reached.
type NoAgentsError struct {
	Addresses []string
}

func (e *NoAgentsError) Error() string {
	if len(e.Addresses) == 0 {
		return "no agent addresses provided"
	}
	return fmt.Sprintf("no agents available at %v", e.Addresses)
}

// IsTimeout reports whether err is a request timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsCancelled reports whether err is a cancellation.
func IsCancelled(err error) bool {
	var ce *CancelledError
	return errors.As(err, &ce)
}

// IsNoAgents reports whether err means no agent endpoint resolved.
func IsNoAgents(err error) bool {
	var ne *NoAgentsError
	return errors.As(err, &ne)
}

// Kind names the error category for per-target error lines.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsTimeout(err):
		return "TimeoutError"
	case IsCancelled(err):
		return "CancelledError"
	case IsNoAgents(err):
		return "NoAgentsError"
	default:
		return "RequestError"
	}
}
