package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/emotune/internal/models"
	"github.com/desertthunder/emotune/internal/services"
	"github.com/desertthunder/emotune/internal/shared"
)

// AutoState is the auto-capture state.
type AutoState int

const (
	Disabled AutoState = iota
	Enabled
)

func (a AutoState) String() string {
	if a == Enabled {
		return "enabled"
	}
	return "disabled"
}

// Round is one timer-driven capture-and-analyze cycle. Its context is
// cancelled when auto-capture stops.
type Round func(ctx context.Context)

// Options configures a [Session].
type Options struct {
	// Interval is used when the backend does not report one.
	Interval time.Duration
	// SongsBeforeRecheck is the threshold assumed until settings load.
	SongsBeforeRecheck int
	NewTicker          TickerFunc
	Logger             *log.Logger
}

type loop struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Session owns the settings copy, the in-flight flag and the auto-capture loop.
type Session struct {
	backend   services.Backend
	logger    *log.Logger
	newTicker TickerFunc
	interval  time.Duration

	mu        sync.Mutex
	settings  models.SessionSettings
	inFlight  bool
	auto      AutoState
	loop      *loop

	toggleMu sync.Mutex
	wg       sync.WaitGroup
}

// New creates a session with default settings and auto-capture disabled.
func New(backend services.Backend, opts Options) *Session {
	if opts.NewTicker == nil {
		opts.NewTicker = NewTimeTicker
	}
	if opts.Interval <= 0 {
		opts.Interval = models.DefaultAutoCaptureInterval
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	settings := models.DefaultSettings()
	settings.AutoCaptureInterval = opts.Interval
	if models.ValidateSongsBeforeRecheck(opts.SongsBeforeRecheck) == nil {
		settings.SongsBeforeRecheck = opts.SongsBeforeRecheck
	}

	return &Session{
		backend:   backend,
		logger:    shared.WithLogger(opts.Logger, "component", "session"),
		newTicker: opts.NewTicker,
		interval:  opts.Interval,
		settings:  settings,
	}
}

// Settings returns a copy of the current settings.
func (s *Session) Settings() models.SessionSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// AutoState reports whether the auto-capture loop is running.
func (s *Session) AutoState() AutoState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auto
}

// InFlight reports whether an analysis is outstanding.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// LoadSettings fetches settings from the backend. On failure the current
// settings are kept and the error is only logged.
//
// The server's auto-capture flag is recorded for display but does not start the loop.
func (s *Session) LoadSettings(ctx context.Context) models.SessionSettings {
	remote, err := s.backend.GetSettings(ctx)
	if err != nil {
		s.logger.Warn("failed to load settings, keeping defaults", "error", err)
		return s.Settings()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if models.ValidateSongsBeforeRecheck(remote.SongsBeforeRecheck) == nil {
		s.settings.SongsBeforeRecheck = remote.SongsBeforeRecheck
	} else {
		s.logger.Warn("ignoring out of range threshold from server", "songs_before_recheck", remote.SongsBeforeRecheck)
	}
	if remote.SongsPlayed >= 0 {
		s.settings.SongsPlayed = remote.SongsPlayed
	}
	s.settings.CurrentEmotion = remote.CurrentEmotion
	s.settings.AutoCaptureEnabled = remote.AutoCaptureEnabled
	s.settings.AutoPlayRandomSong = remote.AutoPlayRandomSong
	if remote.AutoCaptureInterval > 0 {
		s.settings.AutoCaptureInterval = remote.AutoCaptureInterval
	}

	s.logger.Info("settings loaded",
		"songs_before_recheck", s.settings.SongsBeforeRecheck,
		"songs_played", s.settings.SongsPlayed,
		"interval", s.settings.AutoCaptureInterval,
	)
	return s.settings
}

// AnalyzeOnce submits one frame. A call made while another is outstanding
// fails immediately with [shared.ErrAnalysisInFlight].
func (s *Session) AnalyzeOnce(ctx context.Context, image []byte) (*models.AnalysisResult, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, shared.ErrAnalysisInFlight
	}
	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	result, err := s.backend.Analyze(ctx, image)
	if err != nil {
		s.logger.Warn("analysis failed", "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.settings.SongsPlayed = result.SongsPlayed
	s.settings.CurrentEmotion = result.DominantEmotion
	s.mu.Unlock()

	s.logger.Debug("analysis complete", "emotion", result.DominantEmotion, "songs_played", result.SongsPlayed)
	return result, nil
}

// ToggleAutoCapture asks the backend for the desired state and follows the
// value it confirms. Enabling starts a loop calling round on every tick;
// disabling cancels it. Concurrent toggles run one after another.
//
// On error the current state is returned unchanged.
func (s *Session) ToggleAutoCapture(ctx context.Context, desired bool, round Round) (AutoState, error) {
	if desired && round == nil {
		return s.AutoState(), fmt.Errorf("%w: round is required to enable auto-capture", shared.ErrMissingArgument)
	}

	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()

	confirmed, err := s.backend.SetAutoCapture(ctx, desired)
	if err != nil {
		s.logger.Warn("auto-capture toggle failed", "desired", desired, "error", err)
		return s.AutoState(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings.AutoCaptureEnabled = confirmed
	if !confirmed {
		s.stopLocked()
		s.logger.Info("auto-capture disabled")
		return s.auto, nil
	}

	if round == nil {
		return s.auto, &shared.ToggleError{Message: "server kept auto-capture enabled"}
	}
	if s.loop == nil {
		s.startLocked(round)
	}
	return s.auto, nil
}

// ForceDisable cancels the loop without asking the backend. Safe to call repeatedly.
func (s *Session) ForceDisable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loop != nil {
		s.logger.Info("auto-capture force disabled")
	}
	s.stopLocked()
}

// UpdateSettings validates n locally, then stores it on the backend. Local
// settings change only after the backend confirms.
func (s *Session) UpdateSettings(ctx context.Context, n int) error {
	if err := models.ValidateSongsBeforeRecheck(n); err != nil {
		return err
	}

	if err := s.backend.UpdateSettings(ctx, n); err != nil {
		s.logger.Warn("settings update failed", "songs_before_recheck", n, "error", err)
		if !shared.IsTransport(err) {
			err = &shared.TransportError{Endpoint: "/settings", Err: err}
		}
		return err
	}

	s.mu.Lock()
	s.settings.SongsBeforeRecheck = n
	s.mu.Unlock()

	s.logger.Info("settings updated", "songs_before_recheck", n)
	return nil
}

// ResetCounter zeroes the play counter on the backend and then locally.
func (s *Session) ResetCounter(ctx context.Context) error {
	if err := s.backend.ResetCounter(ctx); err != nil {
		s.logger.Warn("counter reset failed", "error", err)
		return err
	}

	s.mu.Lock()
	s.settings.SongsPlayed = 0
	s.mu.Unlock()

	s.logger.Info("counter reset")
	return nil
}

// Close stops the loop and waits for it to exit. Do not call it from inside a [Round].
func (s *Session) Close() {
	s.ForceDisable()
	s.wg.Wait()
}

func (s *Session) startLocked(round Round) {
	interval := s.settings.AutoCaptureInterval
	if interval <= 0 {
		interval = s.interval
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &loop{ctx: ctx, cancel: cancel}
	ticker := s.newTicker(interval)

	s.loop = l
	s.auto = Enabled
	s.wg.Add(1)
	go s.run(l, ticker, round)

	s.logger.Info("auto-capture enabled", "interval", interval)
}

func (s *Session) stopLocked() {
	if s.loop != nil {
		s.loop.cancel()
		s.loop = nil
	}
	s.auto = Disabled
	s.settings.AutoCaptureEnabled = false
}

func (s *Session) run(l *loop, ticker Ticker, round Round) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C():
			if l.ctx.Err() != nil {
				return
			}
			round(l.ctx)

			// drop a tick that queued up while the round ran
			select {
			case <-ticker.C():
			default:
			}
		}
	}
}
