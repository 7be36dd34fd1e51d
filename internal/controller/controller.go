package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/emotune/internal/camera"
	"github.com/desertthunder/emotune/internal/models"
	"github.com/desertthunder/emotune/internal/session"
	"github.com/desertthunder/emotune/internal/shared"
)

// Camera is the capture device the controller drives.
type Camera interface {
	Acquire(ctx context.Context, c camera.Constraints) error
	AttachTo(sink camera.Sink)
	Snapshot() ([]byte, error)
	Release()
}

// Session is the request sequencer the controller delegates to.
type Session interface {
	LoadSettings(ctx context.Context) models.SessionSettings
	Settings() models.SessionSettings
	AnalyzeOnce(ctx context.Context, image []byte) (*models.AnalysisResult, error)
	ToggleAutoCapture(ctx context.Context, desired bool, round session.Round) (session.AutoState, error)
	UpdateSettings(ctx context.Context, n int) error
	ResetCounter(ctx context.Context) error
	ForceDisable()
	Close()
}

// Options configures a [Controller].
type Options struct {
	Constraints camera.Constraints
	// Sink shows every captured frame. Defaults to [camera.Discard].
	Sink camera.Sink
	// Journal, when set, receives one record per finished round.
	Journal models.Journal
	Events  chan<- Event
	Logger  *log.Logger
}

// Controller owns the session state machine.
type Controller struct {
	cam         Camera
	sess        Session
	journal     models.Journal
	events      chan<- Event
	logger      *log.Logger
	constraints camera.Constraints
	sink        camera.Sink
	sessionID   string

	mu      sync.Mutex
	state   State
	pending bool
	seq     uint64
	display models.DisplayModel
}

// New creates a controller in [CameraOff].
func New(cam Camera, sess Session, opts Options) *Controller {
	if opts.Sink == nil {
		opts.Sink = camera.Discard
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Constraints == (camera.Constraints{}) {
		opts.Constraints = camera.DefaultConstraints()
	}

	sessionID := shared.GenerateID()
	return &Controller{
		cam:         cam,
		sess:        sess,
		journal:     opts.Journal,
		events:      opts.Events,
		logger:      shared.WithLogger(opts.Logger, "component", "controller", "session_id", sessionID[:8]),
		constraints: opts.Constraints,
		sink:        opts.Sink,
		sessionID:   sessionID,
	}
}

// SessionID identifies this controller's rounds in the journal.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Display returns the last rendered model.
func (c *Controller) Display() models.DisplayModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

// Settings returns the session's settings.
func (c *Controller) Settings() models.SessionSettings {
	return c.sess.Settings()
}

// Init loads settings once. Failures fall back to defaults.
func (c *Controller) Init(ctx context.Context) models.SessionSettings {
	settings := c.sess.LoadSettings(ctx)

	c.mu.Lock()
	c.display.SongsPlayedCount = settings.SongsPlayed
	c.mu.Unlock()

	c.emitSettings(settings)
	return settings
}

// StartCamera acquires the camera and moves to [Idle]. On failure the
// controller stays in [CameraOff] and the *[camera.Error] is returned.
func (c *Controller) StartCamera(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkLocked("start camera", CameraOff); err != nil {
		c.mu.Unlock()
		return err
	}
	c.pending = true
	c.mu.Unlock()

	err := c.cam.Acquire(ctx, c.constraints)

	c.mu.Lock()
	c.pending = false
	if err != nil {
		state := c.state
		c.mu.Unlock()
		c.logger.Error("failed to start camera", "error", err)
		c.emitError(state, err)
		return err
	}
	c.cam.AttachTo(c.sink)
	c.state = Idle
	c.mu.Unlock()

	c.logger.Info("camera on")
	c.emitState(Idle)
	return nil
}

// Capture runs one manual round: snapshot, analyze, render.
func (c *Controller) Capture(ctx context.Context) (models.DisplayModel, error) {
	c.mu.Lock()
	if err := c.checkLocked("capture", Idle); err != nil {
		c.mu.Unlock()
		return models.DisplayModel{}, err
	}

	image, err := c.cam.Snapshot()
	if err != nil {
		c.mu.Unlock()
		err = &shared.AnalysisError{Message: "could not capture frame", Err: err}
		c.emitError(Idle, err)
		return models.DisplayModel{}, err
	}

	c.state = Analyzing
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	c.emitState(Analyzing)
	c.logger.Debug("capture started", "seq", seq)

	result, err := c.sess.AnalyzeOnce(ctx, image)
	return c.finishRound(seq, models.TriggerManual, result, err)
}

// ToggleAutoCapture asks the session to enable or disable auto-capture and
// follows the state it confirms. Enabling is valid from [Idle], disabling
// from [AutoCapturing].
func (c *Controller) ToggleAutoCapture(ctx context.Context, enable bool) (State, error) {
	c.mu.Lock()
	from := AutoCapturing
	if enable {
		from = Idle
	}
	if err := c.checkLocked(fmt.Sprintf("set auto-capture %t", enable), from); err != nil {
		state := c.state
		c.mu.Unlock()
		return state, err
	}
	c.pending = true
	c.mu.Unlock()

	autoState, err := c.sess.ToggleAutoCapture(ctx, enable, c.autoRound)

	c.mu.Lock()
	c.pending = false
	if err != nil {
		state := c.state
		c.mu.Unlock()
		c.emitError(state, err)
		return state, err
	}

	if c.state == CameraOff {
		c.mu.Unlock()
		if autoState == session.Enabled {
			c.logger.Warn("auto-capture confirmed after camera stopped, disabling")
			c.sess.ForceDisable()
			c.disableRemote(ctx)
		}
		return CameraOff, fmt.Errorf("%w: camera stopped during toggle", shared.ErrInvalidState)
	}

	if autoState == session.Enabled {
		c.state = AutoCapturing
	} else {
		c.state = Idle
	}
	state := c.state
	c.mu.Unlock()

	c.emitState(state)
	return state, nil
}

// StopCamera releases the camera, forces auto-capture off and invalidates
// any round still in flight. The backend is asked to disable auto-capture on
// a best-effort basis.
func (c *Controller) StopCamera(ctx context.Context) error {
	c.mu.Lock()
	if c.state == CameraOff {
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot stop camera in state %s", shared.ErrInvalidState, CameraOff)
	}
	wasAuto := c.state == AutoCapturing
	c.stopLocked()
	c.mu.Unlock()

	c.logger.Info("camera off")
	c.emitState(CameraOff)

	if wasAuto {
		c.disableRemote(ctx)
	}
	return nil
}

// UpdateSettings validates and stores a new songs-before-recheck threshold.
func (c *Controller) UpdateSettings(ctx context.Context, n int) error {
	if err := c.sess.UpdateSettings(ctx, n); err != nil {
		c.emitError(c.State(), err)
		return err
	}
	c.emitSettings(c.sess.Settings())
	return nil
}

// ResetCounter zeroes the play counter and the displayed count.
func (c *Controller) ResetCounter(ctx context.Context) error {
	if err := c.sess.ResetCounter(ctx); err != nil {
		c.emitError(c.State(), err)
		return err
	}

	c.mu.Lock()
	c.display.SongsPlayedCount = 0
	c.mu.Unlock()

	c.emitSettings(c.sess.Settings())
	return nil
}

// Close releases the camera and waits for the auto-capture loop to exit.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.state != CameraOff {
		c.stopLocked()
	}
	c.mu.Unlock()

	c.sess.Close()
}

// autoRound is the [session.Round] run on every auto-capture tick.
func (c *Controller) autoRound(ctx context.Context) {
	c.mu.Lock()
	if c.state != AutoCapturing {
		c.mu.Unlock()
		return
	}

	image, err := c.cam.Snapshot()
	if err != nil {
		c.mu.Unlock()
		c.emitError(AutoCapturing, &shared.AnalysisError{Message: "could not capture frame", Err: err})
		return
	}
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	// StopCamera cancels ctx but leaves the request running; finishRound drops the result.
	result, err := c.sess.AnalyzeOnce(context.WithoutCancel(ctx), image)
	if errors.Is(err, shared.ErrAnalysisInFlight) {
		c.logger.Debug("auto round skipped, analysis in flight", "seq", seq)
		return
	}

	_, _ = c.finishRound(seq, models.TriggerAuto, result, err)
}

func (c *Controller) finishRound(seq uint64, trigger models.Trigger, result *models.AnalysisResult, err error) (models.DisplayModel, error) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		c.logger.Info("dropping stale result", "seq", seq, "trigger", trigger)
		c.record(seq, trigger, models.OutcomeDiscarded, result, err)
		return models.DisplayModel{}, shared.ErrStaleResult
	}

	if c.state == Analyzing {
		c.state = Idle
	}
	state := c.state

	if err != nil {
		display := c.display
		c.mu.Unlock()
		c.record(seq, trigger, models.OutcomeError, result, err)
		c.emitError(state, err)
		return display, err
	}

	c.display = models.NewDisplayModel(result)
	display := c.display
	c.mu.Unlock()

	c.logger.Info("round complete", "seq", seq, "trigger", trigger, "emotion", display.DominantEmotion, "songs_played", display.SongsPlayedCount)
	c.record(seq, trigger, models.OutcomeOK, result, nil)
	c.emit(Event{Kind: ResultReady, State: state, Display: display})
	return display, nil
}

// checkLocked rejects a command unless the controller is in want and no
// start or toggle is outstanding.
func (c *Controller) checkLocked(command string, want State) error {
	if c.state != want {
		return fmt.Errorf("%w: cannot %s in state %s", shared.ErrInvalidState, command, c.state)
	}
	if c.pending {
		return fmt.Errorf("%w: cannot %s", shared.ErrOperationPending, command)
	}
	return nil
}

func (c *Controller) stopLocked() {
	c.seq++
	c.state = CameraOff
	c.sess.ForceDisable()
	c.cam.Release()
}

func (c *Controller) disableRemote(ctx context.Context) {
	if _, err := c.sess.ToggleAutoCapture(ctx, false, nil); err != nil {
		c.logger.Warn("backend did not confirm auto-capture disable", "error", err)
	}
}

func (c *Controller) record(seq uint64, trigger models.Trigger, outcome models.Outcome, result *models.AnalysisResult, err error) {
	if c.journal == nil {
		return
	}

	rec := &models.RoundRecord{
		ID:        shared.GenerateID(),
		SessionID: c.sessionID,
		Sequence:  seq,
		Trigger:   trigger,
		Outcome:   outcome,
		CreatedAt: time.Now().UTC(),
	}
	if result != nil {
		rec.DominantEmotion = result.DominantEmotion
		rec.SongsPlayed = result.SongsPlayed
	}
	if err != nil {
		rec.Error = err.Error()
	}

	if jerr := c.journal.Record(rec); jerr != nil {
		c.logger.Warn("failed to journal round", "seq", seq, "error", jerr)
	}
}

func (c *Controller) emitState(state State) {
	c.emit(Event{Kind: StateChanged, State: state, Display: c.Display()})
}

func (c *Controller) emitError(state State, err error) {
	c.emit(Event{Kind: ErrorOccurred, State: state, Display: c.Display(), Err: err})
}

func (c *Controller) emitSettings(settings models.SessionSettings) {
	c.emit(Event{Kind: SettingsChanged, State: c.State(), Display: c.Display(), Settings: settings})
}

// emit sends an event without blocking. A full channel drops it.
func (c *Controller) emit(ev Event) {
	if c.events == nil {
		return
	}
	if ev.Settings == (models.SessionSettings{}) {
		ev.Settings = c.sess.Settings()
	}
	select {
	case c.events <- ev:
	default:
	}
}
