package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRequestRejected    = fmt.Errorf("request rejected by server")

	// Session errors
	ErrInvalidState     = fmt.Errorf("command not valid in current state")
	ErrAnalysisInFlight = fmt.Errorf("analysis already in flight")
	ErrOperationPending = fmt.Errorf("another operation is pending")
	ErrStaleResult      = fmt.Errorf("result discarded: session moved on")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// AnalysisError is returned when a frame could not be analyzed, either because the
// backend reported an error or because the request never completed.
type AnalysisError struct {
	Message string
	Err     error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed: %s", e.Message)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// ValidationError reports a rejected input before any request is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// TransportError wraps a failed write or read against one backend endpoint.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ToggleError is returned when the backend refuses an auto-capture toggle.
type ToggleError struct {
	Message string
}

func (e *ToggleError) Error() string {
	return fmt.Sprintf("auto-capture toggle failed: %s", e.Message)
}

// IsTransport reports whether err carries a [TransportError].
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
