package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/emotune/internal/camera"
	"github.com/desertthunder/emotune/internal/controller"
	"github.com/desertthunder/emotune/internal/models"
	"github.com/desertthunder/emotune/internal/shared"
)

// Controller is the session surface the control handler drives.
// [*controller.Controller] satisfies it.
type Controller interface {
	SessionID() string
	State() controller.State
	Display() models.DisplayModel
	Settings() models.SessionSettings
	StartCamera(ctx context.Context) error
	StopCamera(ctx context.Context) error
	Capture(ctx context.Context) (models.DisplayModel, error)
	ToggleAutoCapture(ctx context.Context, enable bool) (controller.State, error)
	UpdateSettings(ctx context.Context, n int) error
	ResetCounter(ctx context.Context) error
}

// StateResponse is the body of GET /state and of every successful command.
type StateResponse struct {
	SessionID string                 `json:"session_id"`
	State     string                 `json:"state"`
	CameraOn  bool                   `json:"camera_on"`
	Display   models.DisplayModel    `json:"display"`
	Settings  models.SessionSettings `json:"settings"`
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Hint  string `json:"hint,omitempty"`
}

type autoCaptureRequest struct {
	Enabled *bool `json:"enabled"`
}

type settingsRequest struct {
	SongsBeforeRecheck *int `json:"songs_before_recheck"`
}

// ControlHandler serves the control surface.
type ControlHandler struct {
	ctrl   Controller
	logger *log.Logger
}

// NewControlHandler creates a handler for ctrl.
func NewControlHandler(ctrl Controller, logger *log.Logger) *ControlHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ControlHandler{ctrl: ctrl, logger: shared.WithLogger(logger, "component", "server")}
}

// Routes implements [Handler].
func (h *ControlHandler) Routes() []string {
	return []string{"/state", "/camera/start", "/camera/stop", "/capture", "/auto-capture", "/settings", "/reset"}
}

// ServeHTTP implements [http.Handler].
func (h *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/state" {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
			return
		}
		h.writeState(w, http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
		return
	}

	var err error
	switch r.URL.Path {
	case "/camera/start":
		err = h.ctrl.StartCamera(r.Context())
	case "/camera/stop":
		err = h.ctrl.StopCamera(r.Context())
	case "/capture":
		_, err = h.ctrl.Capture(r.Context())
	case "/auto-capture":
		err = h.toggle(r)
	case "/settings":
		err = h.updateSettings(r)
	case "/reset":
		err = h.ctrl.ResetCounter(r.Context())
	default:
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return
	}

	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w, http.StatusOK)
}

func (h *ControlHandler) toggle(r *http.Request) error {
	var req autoCaptureRequest
	if err := decodeBody(r.Body, &req); err != nil {
		return err
	}
	if req.Enabled == nil {
		return fmt.Errorf("%w: enabled", shared.ErrMissingArgument)
	}
	_, err := h.ctrl.ToggleAutoCapture(r.Context(), *req.Enabled)
	return err
}

func (h *ControlHandler) updateSettings(r *http.Request) error {
	var req settingsRequest
	if err := decodeBody(r.Body, &req); err != nil {
		return err
	}
	if req.SongsBeforeRecheck == nil {
		return fmt.Errorf("%w: songs_before_recheck", shared.ErrMissingArgument)
	}
	return h.ctrl.UpdateSettings(r.Context(), *req.SongsBeforeRecheck)
}

func (h *ControlHandler) writeState(w http.ResponseWriter, status int) {
	state := h.ctrl.State()
	writeJSON(w, status, StateResponse{
		SessionID: h.ctrl.SessionID(),
		State:     state.String(),
		CameraOn:  state.CameraOn(),
		Display:   h.ctrl.Display(),
		Settings:  h.ctrl.Settings(),
	})
}

func (h *ControlHandler) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	body := errorBody{Error: err.Error()}

	var camErr *camera.Error
	if errors.As(err, &camErr) {
		body.Kind = camErr.Kind.String()
		body.Hint = camErr.Kind.Hint()
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("command failed", "status", status, "error", err)
	} else {
		h.logger.Warn("command rejected", "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

// StatusFor maps a controller error to an HTTP status.
func StatusFor(err error) int {
	var (
		camErr      *camera.Error
		analysisErr *shared.AnalysisError
		toggleErr   *shared.ToggleError
	)

	switch {
	case errors.Is(err, shared.ErrInvalidState),
		errors.Is(err, shared.ErrOperationPending),
		errors.Is(err, shared.ErrAnalysisInFlight),
		errors.Is(err, shared.ErrStaleResult):
		return http.StatusConflict
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.As(err, &camErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &analysisErr):
		if shared.IsTransport(err) {
			return http.StatusBadGateway
		}
		return http.StatusUnprocessableEntity
	case errors.As(err, &toggleErr), shared.IsTransport(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r io.Reader, v any) error {
	if err := json.NewDecoder(io.LimitReader(r, 1<<16)).Decode(v); err != nil {
		return fmt.Errorf("%w: request body: %v", shared.ErrInvalidArgument, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
