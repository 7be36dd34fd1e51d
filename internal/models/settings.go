package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/emotune/internal/shared"
)

const (
	MinSongsBeforeRecheck      = 1
	MaxSongsBeforeRecheck      = 10
	DefaultSongsBeforeRecheck  = 3
	DefaultAutoCaptureInterval = 30 * time.Second
)

// SessionSettings is the client's copy of the server-tracked settings and play counter.
type SessionSettings struct {
	SongsBeforeRecheck  int           `json:"songs_before_recheck"`
	SongsPlayed         int           `json:"songs_played"`
	CurrentEmotion      string        `json:"current_emotion,omitempty"`
	AutoCaptureEnabled  bool          `json:"auto_capture_enabled"`
	AutoCaptureInterval time.Duration `json:"auto_capture_interval"`
	AutoPlayRandomSong  bool          `json:"auto_play_random_song"`
}

// DefaultSettings returns the settings used until the backend has been reached.
func DefaultSettings() SessionSettings {
	return SessionSettings{
		SongsBeforeRecheck:  DefaultSongsBeforeRecheck,
		AutoCaptureInterval: DefaultAutoCaptureInterval,
	}
}

// ValidateSongsBeforeRecheck checks n against [MinSongsBeforeRecheck, MaxSongsBeforeRecheck].
func ValidateSongsBeforeRecheck(n int) error {
	if n < MinSongsBeforeRecheck || n > MaxSongsBeforeRecheck {
		return &shared.ValidationError{
			Field:  "songs_before_recheck",
			Reason: fmt.Sprintf("must be between %d and %d, got %d", MinSongsBeforeRecheck, MaxSongsBeforeRecheck, n),
		}
	}
	return nil
}
