package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/emotune/internal/models"
	"github.com/desertthunder/emotune/internal/shared"
)

const (
	pathAnalyze     = "/analyze"
	pathSettings    = "/settings"
	pathReset       = "/reset"
	pathAutoCapture = "/auto-capture"
	pathHealth      = "/health"
)

// EmotionService implements [Backend] over HTTP/JSON.
type EmotionService struct {
	api *APIService
}

// NewEmotionService creates a backend client on top of api.
func NewEmotionService(api *APIService) *EmotionService {
	return &EmotionService{api: api}
}

// DataURL encodes a JPEG frame the way the backend expects it.
func DataURL(jpeg []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
}

type analyzeRequest struct {
	Image string `json:"image"`
}

type settingsPayload struct {
	SongsBeforeRecheck  int     `json:"songs_before_recheck"`
	SongsPlayed         int     `json:"songs_played"`
	CurrentEmotion      *string `json:"current_emotion"`
	AutoCaptureEnabled  bool    `json:"auto_capture_enabled"`
	AutoCaptureInterval float64 `json:"auto_capture_interval"`
	AutoPlayRandomSong  bool    `json:"auto_play_random_song"`
}

type writeResponse struct {
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	Message     string `json:"message,omitempty"`
	SongsPlayed *int   `json:"songs_played,omitempty"`
}

type toggleResponse struct {
	Success            bool   `json:"success"`
	AutoCaptureEnabled bool   `json:"auto_capture_enabled"`
	Message            string `json:"message,omitempty"`
	Error              string `json:"error,omitempty"`
}

// Analyze posts the frame to /analyze.
//
// Every failure is an [shared.AnalysisError]; transport failures carry a
// [shared.TransportError] inside it.
func (s *EmotionService) Analyze(ctx context.Context, jpeg []byte) (*models.AnalysisResult, error) {
	resp, err := s.api.PostJSON(ctx, pathAnalyze, analyzeRequest{Image: DataURL(jpeg)})
	if err != nil {
		return nil, &shared.AnalysisError{
			Message: "could not reach analysis service",
			Err:     &shared.TransportError{Endpoint: pathAnalyze, Err: err},
		}
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, &shared.AnalysisError{
			Message: fmt.Sprintf("unexpected response (HTTP %d)", resp.StatusCode),
			Err:     &shared.TransportError{Endpoint: pathAnalyze, Err: fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)},
		}
	}

	if result.Error != "" {
		return nil, &shared.AnalysisError{Message: result.Error}
	}
	if !resp.OK() {
		return nil, &shared.AnalysisError{
			Message: fmt.Sprintf("HTTP %d", resp.StatusCode),
			Err:     &shared.TransportError{Endpoint: pathAnalyze, Err: shared.ErrAPIRequest},
		}
	}

	return &result, nil
}

// GetSettings reads /settings. A missing interval is left at zero.
func (s *EmotionService) GetSettings(ctx context.Context) (*models.SessionSettings, error) {
	resp, err := s.api.Get(ctx, pathSettings)
	if err != nil {
		return nil, &shared.TransportError{Endpoint: pathSettings, Err: err}
	}
	if !resp.OK() {
		return nil, &shared.TransportError{Endpoint: pathSettings, Err: statusError(resp)}
	}

	var payload settingsPayload
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, &shared.TransportError{Endpoint: pathSettings, Err: fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)}
	}

	settings := &models.SessionSettings{
		SongsBeforeRecheck:  payload.SongsBeforeRecheck,
		SongsPlayed:         payload.SongsPlayed,
		AutoCaptureEnabled:  payload.AutoCaptureEnabled,
		AutoCaptureInterval: time.Duration(payload.AutoCaptureInterval * float64(time.Second)),
		AutoPlayRandomSong:  payload.AutoPlayRandomSong,
	}
	if payload.CurrentEmotion != nil {
		settings.CurrentEmotion = *payload.CurrentEmotion
	}
	return settings, nil
}

// UpdateSettings posts the threshold to /settings.
func (s *EmotionService) UpdateSettings(ctx context.Context, songsBeforeRecheck int) error {
	_, err := s.write(ctx, pathSettings, map[string]int{"songs_before_recheck": songsBeforeRecheck})
	return err
}

// ResetCounter posts to /reset.
func (s *EmotionService) ResetCounter(ctx context.Context) error {
	_, err := s.write(ctx, pathReset, struct{}{})
	return err
}

// SetAutoCapture posts the desired state to /auto-capture. A refusal is a [shared.ToggleError].
func (s *EmotionService) SetAutoCapture(ctx context.Context, enable bool) (bool, error) {
	resp, err := s.api.PostJSON(ctx, pathAutoCapture, map[string]bool{"enable": enable})
	if err != nil {
		return false, &shared.TransportError{Endpoint: pathAutoCapture, Err: err}
	}

	var out toggleResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return false, &shared.TransportError{Endpoint: pathAutoCapture, Err: fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)}
	}

	switch {
	case out.Error != "":
		return false, &shared.ToggleError{Message: out.Error}
	case !out.Success || !resp.OK():
		msg := out.Message
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return false, &shared.ToggleError{Message: msg}
	}

	return out.AutoCaptureEnabled, nil
}

// Health reads /health.
func (s *EmotionService) Health(ctx context.Context) (*HealthStatus, error) {
	resp, err := s.api.Get(ctx, pathHealth)
	if err != nil {
		return nil, &shared.TransportError{Endpoint: pathHealth, Err: err}
	}

	var status HealthStatus
	if err := json.Unmarshal(resp.Body, &status); err != nil {
		return nil, &shared.TransportError{Endpoint: pathHealth, Err: fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)}
	}
	if m, ok := resp.JSONData.(map[string]any); ok {
		status.Details = m
	}
	if !resp.OK() {
		return &status, &shared.TransportError{Endpoint: pathHealth, Err: fmt.Errorf("%w: %s", shared.ErrServiceUnavailable, status.Status)}
	}
	return &status, nil
}

func (s *EmotionService) write(ctx context.Context, path string, body any) (*writeResponse, error) {
	resp, err := s.api.PostJSON(ctx, path, body)
	if err != nil {
		return nil, &shared.TransportError{Endpoint: path, Err: err}
	}

	var out writeResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, &shared.TransportError{Endpoint: path, Err: fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)}
	}
	if !out.Success || !resp.OK() {
		reason := out.Error
		if reason == "" {
			reason = out.Message
		}
		if reason == "" {
			reason = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return &out, &shared.TransportError{Endpoint: path, Err: fmt.Errorf("%w: %s", shared.ErrRequestRejected, reason)}
	}
	return &out, nil
}

func statusError(resp *APIResponse) error {
	return fmt.Errorf("%w: %s", shared.ErrAPIRequest, http.StatusText(resp.StatusCode))
}
