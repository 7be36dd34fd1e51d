package tasks

import (
	"fmt"
	"path/filepath"
)

// ProgressUpdate represents a progress event during a long-running operation.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	CollectingFrames Phase = iota
	AnalyzeFrames
	FetchHealth
	FetchSettings
)

func (p Phase) String() string {
	switch p {
	case CollectingFrames:
		return "collect_frames"
	case AnalyzeFrames:
		return "analyze_frames"
	case FetchHealth:
		return "fetch_health"
	case FetchSettings:
		return "fetch_settings"
	default:
		return ""
	}
}

func collectedUpdate(total int, dir string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CollectingFrames,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Found %d frames in %s", total, dir),
	}
}

func frameDoneUpdate(step, total int, res FrameResult) ProgressUpdate {
	msg := fmt.Sprintf("%s: %s", filepath.Base(res.Path), res.Display.DominantEmotion)
	if res.Err != nil {
		msg = fmt.Sprintf("%s: %v", filepath.Base(res.Path), res.Err)
	}
	return ProgressUpdate{
		Phase:   AnalyzeFrames,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}

func endpointUpdate(phase Phase, step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching %s...", path),
	}
}
