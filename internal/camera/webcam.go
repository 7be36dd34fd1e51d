package camera

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrDeviceUnavailable is returned when a capture device exists but cannot be opened.
var ErrDeviceUnavailable = fmt.Errorf("capture device unavailable: %w", syscall.EBUSY)

// ErrWebcamUnsupported is returned by [NewSource] for the webcam source in builds without the gocv tag.
var ErrWebcamUnsupported = errors.New("webcam source requires building with -tags gocv")

// NewSource builds the source named by kind: "file", "dir" or "webcam".
func NewSource(kind, path string, device int) (Source, error) {
	switch kind {
	case "", "file":
		return FileSource{Path: path}, nil
	case "dir":
		return DirSource{Dir: path}, nil
	case "webcam":
		return newWebcamSource(device)
	default:
		return nil, fmt.Errorf("unknown camera source %q", kind)
	}
}
