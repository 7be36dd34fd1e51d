package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/emotune/internal/controller"
	"github.com/desertthunder/emotune/internal/models"
	"github.com/desertthunder/emotune/internal/shared"
)

type fakeController struct {
	mu        sync.Mutex
	state     controller.State
	display   models.DisplayModel
	settings  models.SessionSettings
	calls     []string
	err       error
	threshold int
}

func newFakeController() *fakeController {
	return &fakeController{settings: models.DefaultSettings()}
}

func (f *fakeController) call(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeController) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeController) Init(context.Context) models.SessionSettings {
	f.call("init")
	return f.settings
}
func (f *fakeController) State() controller.State          { return f.state }
func (f *fakeController) Display() models.DisplayModel     { return f.display }
func (f *fakeController) Settings() models.SessionSettings { return f.settings }

func (f *fakeController) StartCamera(context.Context) error {
	if err := f.call("start"); err != nil {
		return err
	}
	f.state = controller.Idle
	return nil
}

func (f *fakeController) Capture(context.Context) (models.DisplayModel, error) {
	return f.display, f.call("capture")
}

func (f *fakeController) ToggleAutoCapture(_ context.Context, enable bool) (controller.State, error) {
	name := "auto-off"
	if enable {
		name = "auto-on"
	}
	if err := f.call(name); err != nil {
		return f.state, err
	}
	if enable {
		f.state = controller.AutoCapturing
	} else {
		f.state = controller.Idle
	}
	return f.state, nil
}

func (f *fakeController) StopCamera(context.Context) error {
	f.state = controller.CameraOff
	return f.call("stop")
}

func (f *fakeController) UpdateSettings(_ context.Context, n int) error {
	if err := f.call("settings"); err != nil {
		return err
	}
	f.threshold = n
	f.settings.SongsBeforeRecheck = n
	return nil
}

func (f *fakeController) ResetCounter(context.Context) error {
	return f.call("reset")
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs the resulting command, feeding its message back.
func press(t *testing.T, m *Model, s string) {
	t.Helper()
	_, cmd := m.Update(keyPress(s))
	if cmd == nil {
		return
	}
	if msg := cmd(); msg != nil {
		m.Update(msg)
	}
}

func sampleDisplay() models.DisplayModel {
	return models.NewDisplayModel(&models.AnalysisResult{
		DominantEmotion: "happy",
		EmotionScores:   models.EmotionScores{
			{Label: "happy", Score: 80.2},
			{Label: "sad", Score: 12.3},
		},
		PlaylistURL: "https://example.com/playlist",
		SongURL:     "https://example.com/song",
		SongName:    "Good Day",
		SongArtist:  "The Band",
		SongsPlayed: 2,
	})
}

func TestModelCommands(t *testing.T) {
	t.Run("start then capture", func(t *testing.T) {
		f := newFakeController()
		m := NewModel(context.Background(), f, nil, nil)

		press(t, m, "s")
		if m.state != controller.Idle {
			t.Fatalf("expected Idle, got %v", m.state)
		}
		press(t, m, "c")

		calls := f.Calls()
		if len(calls) != 2 || calls[0] != "start" || calls[1] != "capture" {
			t.Errorf("unexpected calls %v", calls)
		}
		if len(m.running) != 0 {
			t.Errorf("expected no running commands, got %v", m.running)
		}
	})

	t.Run("auto toggles on current state", func(t *testing.T) {
		f := newFakeController()
		f.state = controller.Idle
		m := NewModel(context.Background(), f, nil, nil)
		m.state = controller.Idle

		press(t, m, "a")
		if m.state != controller.AutoCapturing {
			t.Fatalf("expected AutoCapturing, got %v", m.state)
		}
		press(t, m, "a")
		if m.state != controller.Idle {
			t.Fatalf("expected Idle, got %v", m.state)
		}

		calls := f.Calls()
		if len(calls) != 2 || calls[0] != "auto-on" || calls[1] != "auto-off" {
			t.Errorf("unexpected calls %v", calls)
		}
	})

	t.Run("command errors are shown", func(t *testing.T) {
		f := newFakeController()
		f.err = shared.ErrInvalidState
		m := NewModel(context.Background(), f, nil, nil)

		press(t, m, "c")
		if !errors.Is(m.err, shared.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", m.err)
		}
		if !strings.Contains(m.View(), "Error:") {
			t.Error("expected error in view")
		}
	})

	t.Run("commands wait for running one", func(t *testing.T) {
		f := newFakeController()
		m := NewModel(context.Background(), f, nil, nil)

		_, first := m.Update(keyPress("s"))
		if first == nil {
			t.Fatal("expected command")
		}
		_, second := m.Update(keyPress("c"))
		if second != nil {
			t.Error("expected capture to be held while start is running")
		}
		if !strings.Contains(m.status, "start camera") {
			t.Errorf("unexpected status %q", m.status)
		}

		_, stop := m.Update(keyPress("x"))
		if stop == nil {
			t.Error("expected stop to run while another command is running")
		}
	})

	t.Run("threshold edit and save", func(t *testing.T) {
		f := newFakeController()
		m := NewModel(context.Background(), f, nil, nil)
		start := m.threshold

		press(t, m, "+")
		press(t, m, "+")
		if m.threshold != start+2 || !m.dirty {
			t.Fatalf("expected dirty threshold %d, got %d dirty=%v", start+2, m.threshold, m.dirty)
		}
		press(t, m, "u")
		if f.threshold != start+2 {
			t.Errorf("expected controller to receive %d, got %d", start+2, f.threshold)
		}
		if m.dirty {
			t.Error("expected threshold to be clean after save")
		}
	})

	t.Run("threshold is clamped", func(t *testing.T) {
		m := NewModel(context.Background(), newFakeController(), nil, nil)
		for range 20 {
			press(t, m, "+")
		}
		if m.threshold != models.MaxSongsBeforeRecheck {
			t.Errorf("expected %d, got %d", models.MaxSongsBeforeRecheck, m.threshold)
		}
		for range 20 {
			press(t, m, "-")
		}
		if m.threshold != models.MinSongsBeforeRecheck {
			t.Errorf("expected %d, got %d", models.MinSongsBeforeRecheck, m.threshold)
		}
	})

	t.Run("reset", func(t *testing.T) {
		f := newFakeController()
		m := NewModel(context.Background(), f, nil, nil)
		press(t, m, "r")
		if calls := f.Calls(); len(calls) != 1 || calls[0] != "reset" {
			t.Errorf("unexpected calls %v", calls)
		}
	})

	t.Run("quit", func(t *testing.T) {
		m := NewModel(context.Background(), newFakeController(), nil, nil)
		_, cmd := m.Update(keyPress("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestModelLinks(t *testing.T) {
	t.Run("opens visible links", func(t *testing.T) {
		var opened []string
		open := func(url string) error {
			opened = append(opened, url)
			return nil
		}
		f := newFakeController()
		f.display = sampleDisplay()
		m := NewModel(context.Background(), f, nil, open)
		m.display = f.display

		press(t, m, "o")
		press(t, m, "p")
		if len(opened) != 2 || opened[0] != "https://example.com/song" || opened[1] != "https://example.com/playlist" {
			t.Errorf("unexpected opened links %v", opened)
		}
	})

	t.Run("hidden links are not opened", func(t *testing.T) {
		called := false
		m := NewModel(context.Background(), newFakeController(), nil, func(string) error {
			called = true
			return nil
		})

		press(t, m, "o")
		if called {
			t.Error("expected no browser call without a result")
		}
		if m.status != "No link to open" {
			t.Errorf("unexpected status %q", m.status)
		}
	})
}

func TestModelEvents(t *testing.T) {
	t.Run("result events render and enter history", func(t *testing.T) {
		events := make(chan controller.Event, 1)
		m := NewModel(context.Background(), newFakeController(), events, nil)

		display := sampleDisplay()
		events <- controller.Event{Kind: controller.ResultReady, State: controller.AutoCapturing, Display: display, Settings: models.DefaultSettings()}

		msg := m.waitForEvent()()
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Error("expected event listener to be re-armed")
		}
		if m.state != controller.AutoCapturing {
			t.Errorf("expected AutoCapturing, got %v", m.state)
		}
		if len(m.history.Items()) != 1 {
			t.Errorf("expected 1 history item, got %d", len(m.history.Items()))
		}

		view := m.View()
		for _, want := range []string{"happy", "80%", "Good Day", "The Band", "https://example.com/playlist"} {
			if !strings.Contains(view, want) {
				t.Errorf("expected view to contain %q", want)
			}
		}
	})

	t.Run("error events set the error", func(t *testing.T) {
		events := make(chan controller.Event, 1)
		m := NewModel(context.Background(), newFakeController(), events, nil)

		events <- controller.Event{Kind: controller.ErrorOccurred, State: controller.Idle, Err: &shared.AnalysisError{Message: "No face detected"}}
		m.Update(m.waitForEvent()())
		if m.err == nil || !strings.Contains(m.View(), "No face detected") {
			t.Errorf("expected analysis error in view, got %v", m.err)
		}
	})

	t.Run("closed channel stops listening", func(t *testing.T) {
		events := make(chan controller.Event)
		close(events)
		m := NewModel(context.Background(), newFakeController(), events, nil)

		msg := m.waitForEvent()()
		if got, ok := msg.(Msg); !ok || got.kind != MsgEventsClosed {
			t.Fatalf("expected MsgEventsClosed, got %#v", msg)
		}
		if _, cmd := m.Update(msg); cmd != nil {
			t.Error("expected no further command")
		}
	})

	t.Run("settings load on init", func(t *testing.T) {
		f := newFakeController()
		f.settings.SongsBeforeRecheck = 7
		m := NewModel(context.Background(), f, nil, nil)

		m.Update(m.loadSettings()())
		if m.threshold != 7 {
			t.Errorf("expected threshold 7, got %d", m.threshold)
		}
	})
}

func TestView(t *testing.T) {
	m := NewModel(context.Background(), newFakeController(), nil, nil)
	view := m.View()
	if !strings.Contains(view, "Press s to start the camera.") {
		t.Errorf("expected start hint, got:\n%s", view)
	}

	m.state = controller.Idle
	if !strings.Contains(m.View(), "Press c to capture") {
		t.Error("expected capture hint")
	}
}
