package camera

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// ErrConstraints is returned by sources that cannot honor the requested [Constraints].
var ErrConstraints = errors.New("constraints cannot be satisfied")

// ErrStreamStopped is returned when reading from a stream after Stop.
var ErrStreamStopped = errors.New("stream stopped")

// ErrorKind tags why acquiring a stream failed.
type ErrorKind int

const (
	Unknown ErrorKind = iota
	PermissionDenied
	DeviceNotFound
	DeviceBusy
	ConstraintsUnsatisfiable
)

func (k ErrorKind) String() string {
	switch k {
	case PermissionDenied:
		return "permission_denied"
	case DeviceNotFound:
		return "device_not_found"
	case DeviceBusy:
		return "device_busy"
	case ConstraintsUnsatisfiable:
		return "constraints_unsatisfiable"
	default:
		return "unknown"
	}
}

// Hint is the user-facing sentence shown for the kind.
func (k ErrorKind) Hint() string {
	switch k {
	case PermissionDenied:
		return "Please grant camera permissions and try again."
	case DeviceNotFound:
		return "No camera found on this device."
	case DeviceBusy:
		return "Camera is being used by another application."
	case ConstraintsUnsatisfiable:
		return "Camera constraints could not be satisfied."
	default:
		return "Please check your camera and try again."
	}
}

// Error is the failure returned by [Device.Acquire].
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("camera %s", e.Kind)
	}
	return fmt.Sprintf("camera %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify maps a platform error onto an [Error]. Matching is done on errno and
// fs sentinels, never on message text. A nil err yields nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var camErr *Error
	if errors.As(err, &camErr) {
		return camErr
	}

	kind := Unknown
	switch {
	case errors.Is(err, fs.ErrPermission):
		kind = PermissionDenied
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENODEV), errors.Is(err, syscall.ENXIO):
		kind = DeviceNotFound
	case errors.Is(err, syscall.EBUSY):
		kind = DeviceBusy
	case errors.Is(err, ErrConstraints):
		kind = ConstraintsUnsatisfiable
	}

	return &Error{Kind: kind, Message: err.Error(), Err: err}
}
