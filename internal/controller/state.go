package controller

import "github.com/desertthunder/emotune/internal/models"

// State is the controller state.
type State int

const (
	CameraOff State = iota
	Idle
	Analyzing
	AutoCapturing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Analyzing:
		return "analyzing"
	case AutoCapturing:
		return "auto_capturing"
	default:
		return "camera_off"
	}
}

// CameraOn reports whether the camera stream is held in this state.
func (s State) CameraOn() bool {
	return s != CameraOff
}

// EventKind tags an [Event].
type EventKind int

const (
	StateChanged EventKind = iota
	ResultReady
	ErrorOccurred
	SettingsChanged
)

func (k EventKind) String() string {
	switch k {
	case ResultReady:
		return "result"
	case ErrorOccurred:
		return "error"
	case SettingsChanged:
		return "settings"
	default:
		return "state"
	}
}

// Event is a snapshot pushed to the rendering layer.
type Event struct {
	Kind     EventKind
	State    State
	Display  models.DisplayModel
	Settings models.SessionSettings
	Err      error
}
