package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/emotune/internal/controller"
	"github.com/desertthunder/emotune/internal/models"
	"github.com/desertthunder/emotune/internal/shared"
)

// Controller is the session surface the TUI drives. [*controller.Controller]
// satisfies it.
type Controller interface {
	Init(ctx context.Context) models.SessionSettings
	State() controller.State
	Display() models.DisplayModel
	Settings() models.SessionSettings
	StartCamera(ctx context.Context) error
	Capture(ctx context.Context) (models.DisplayModel, error)
	ToggleAutoCapture(ctx context.Context, enable bool) (controller.State, error)
	StopCamera(ctx context.Context) error
	UpdateSettings(ctx context.Context, n int) error
	ResetCounter(ctx context.Context) error
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	ctrl   Controller
	events <-chan controller.Event
	open   func(string) error

	state     controller.State
	display   models.DisplayModel
	settings  models.SessionSettings
	threshold int
	dirty     bool
	running   map[string]bool
	status    string
	err       error

	history     list.Model
	showHistory bool
	spinner     spinner.Model
	bar         progress.Model
	help        help.Model
	keys        keyMap
	width       int
	height      int
}

// NewModel creates a TUI model. events should be the channel the controller
// was built with. A nil open defaults to [shared.OpenBrowser].
func NewModel(ctx context.Context, ctrl Controller, events <-chan controller.Event, open func(string) error) *Model {
	if open == nil {
		open = shared.OpenBrowser
	}

	history := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	history.Title = "Results"
	history.SetShowHelp(false)

	settings := models.DefaultSettings()
	return &Model{
		ctx:       ctx,
		ctrl:      ctrl,
		events:    events,
		open:      open,
		settings:  settings,
		threshold: settings.SongsBeforeRecheck,
		running:   make(map[string]bool),
		history:   history,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(30), progress.WithoutPercentage()),
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init loads settings and starts listening for controller events.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadSettings(), m.waitForEvent(), m.spinner.Tick)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.history.SetSize(msg.Width-4, max(msg.Height-20, 5))
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	if m.showHistory {
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSettingsLoaded:
		m.applySettings(msg.data.(models.SessionSettings))
		m.display = m.ctrl.Display()
		return m, nil

	case MsgControllerEvent:
		ev := msg.data.(controller.Event)
		m.state = ev.State
		m.display = ev.Display
		m.applySettings(ev.Settings)
		switch ev.Kind {
		case controller.ResultReady:
			m.err = nil
			m.status = fmt.Sprintf("Detected %s", ev.Display.DominantEmotion)
			cmd := m.history.InsertItem(0, resultItem{display: ev.Display, at: time.Now()})
			return m, tea.Batch(cmd, m.waitForEvent())
		case controller.ErrorOccurred:
			m.err = ev.Err
		}
		return m, m.waitForEvent()

	case MsgCommandDone:
		res := msg.data.(commandResult)
		delete(m.running, res.name)
		m.err = res.err
		if res.err == nil {
			m.status = doneStatus(res.name)
			if res.name == "save threshold" {
				m.dirty = false
			}
		}
		m.state = m.ctrl.State()
		m.display = m.ctrl.Display()
		m.applySettings(m.ctrl.Settings())
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.stop):
		return m, m.run("stop camera", m.ctrl.StopCamera)

	case key.Matches(msg, m.keys.history):
		m.showHistory = !m.showHistory
		return m, nil

	case key.Matches(msg, m.keys.more):
		m.setThreshold(m.threshold + 1)
		return m, nil

	case key.Matches(msg, m.keys.less):
		m.setThreshold(m.threshold - 1)
		return m, nil

	case key.Matches(msg, m.keys.song):
		return m, m.openLink(m.display.SongLinkVisible, m.display.SongURL)

	case key.Matches(msg, m.keys.playlist):
		return m, m.openLink(m.display.PlaylistLinkVisible, m.display.PlaylistURL)
	}

	if len(m.running) > 0 && m.isCommand(msg) {
		m.status = fmt.Sprintf("Waiting for %s...", m.runningName())
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.start):
		return m, m.run("start camera", m.ctrl.StartCamera)

	case key.Matches(msg, m.keys.capture):
		return m, m.run("capture", func(ctx context.Context) error {
			_, err := m.ctrl.Capture(ctx)
			return err
		})

	case key.Matches(msg, m.keys.auto):
		enable := m.state != controller.AutoCapturing
		return m, m.run("auto-capture", func(ctx context.Context) error {
			_, err := m.ctrl.ToggleAutoCapture(ctx, enable)
			return err
		})

	case key.Matches(msg, m.keys.apply):
		n := m.threshold
		return m, m.run("save threshold", func(ctx context.Context) error {
			return m.ctrl.UpdateSettings(ctx, n)
		})

	case key.Matches(msg, m.keys.reset):
		return m, m.run("reset counter", m.ctrl.ResetCounter)
	}

	if m.showHistory {
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) isCommand(msg tea.KeyMsg) bool {
	return key.Matches(msg, m.keys.start, m.keys.capture, m.keys.auto, m.keys.apply, m.keys.reset)
}

func (m *Model) runningName() string {
	for name := range m.running {
		return name
	}
	return ""
}

// run executes a controller command off the update loop.
func (m *Model) run(name string, fn func(context.Context) error) tea.Cmd {
	m.running[name] = true
	m.status = fmt.Sprintf("%s...", name)
	ctx := m.ctx
	return func() tea.Msg {
		return commandDoneMsg(name, fn(ctx))
	}
}

func (m *Model) openLink(visible bool, url string) tea.Cmd {
	if !visible || url == "" {
		m.status = "No link to open"
		return nil
	}
	open := m.open
	return func() tea.Msg {
		return commandDoneMsg("open", open(url))
	}
}

func (m *Model) setThreshold(n int) {
	n = min(max(n, models.MinSongsBeforeRecheck), models.MaxSongsBeforeRecheck)
	m.threshold = n
	m.dirty = n != m.settings.SongsBeforeRecheck
}

func (m *Model) applySettings(s models.SessionSettings) {
	if s == (models.SessionSettings{}) {
		return
	}
	m.settings = s
	if !m.dirty {
		m.threshold = s.SongsBeforeRecheck
	}
}

func (m *Model) loadSettings() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return settingsLoadedMsg(m.ctrl.Init(ctx))
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		if events == nil {
			return eventsClosedMsg()
		}
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg()
		}
		return controllerEventMsg(ev)
	}
}

func doneStatus(name string) string {
	switch name {
	case "open":
		return "Opened in browser"
	case "capture":
		return ""
	default:
		return fmt.Sprintf("%s: done", name)
	}
}

// View renders the current state.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("emotune"))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")

	if m.showHistory {
		b.WriteString(m.history.View())
	} else {
		b.WriteString(m.renderResult())
	}

	b.WriteString("\n")
	b.WriteString(m.renderCounter())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(styles.help.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderStatus() string {
	camera := styles.warn.Render("off")
	if m.state.CameraOn() {
		camera = styles.ok.Render("on")
	}

	auto := "off"
	if m.state == controller.AutoCapturing {
		auto = styles.ok.Render(fmt.Sprintf("every %s", m.settings.AutoCaptureInterval))
	}

	line := fmt.Sprintf("%s %s   %s %s   %s %s",
		styles.label.Render("Camera"), camera,
		styles.label.Render("Auto"), auto,
		styles.label.Render("State"), m.state,
	)
	if m.state == controller.Analyzing || len(m.running) > 0 {
		line += " " + m.spinner.View()
	}
	return line
}

func (m *Model) renderResult() string {
	if !m.display.HasResult() {
		if m.state == controller.CameraOff {
			return styles.help.Render("Press s to start the camera.")
		}
		return styles.help.Render("Press c to capture or a for auto-capture.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", styles.label.Render("Emotion"), styles.ok.Render(m.display.DominantEmotion))
	for _, s := range m.display.SortedScores {
		fmt.Fprintf(&b, "%s %s %3d%%\n", styles.label.Render(s.Label), m.bar.ViewAs(float64(s.Percentage)/100), s.Percentage)
	}

	if m.display.PlaylistLinkVisible {
		fmt.Fprintf(&b, "\n%s %s", styles.label.Render("Playlist"), styles.link.Render(m.display.PlaylistURL))
	}
	if m.display.SongLinkVisible {
		fmt.Fprintf(&b, "\n%s %s", styles.label.Render("Song"), styles.link.Render(m.display.SongLinkLabel))
	}
	if m.display.SongInfoVisible {
		fmt.Fprintf(&b, "\n%s %s - %s", styles.label.Render("Playing"), m.display.SongName, m.display.SongArtist)
	}
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderCounter() string {
	threshold := fmt.Sprintf("%d", m.threshold)
	if m.dirty {
		threshold = styles.warn.Render(fmt.Sprintf("%d* (u to save)", m.threshold))
	}
	return fmt.Sprintf("%s %d   %s %s",
		styles.label.Render("Played"), m.display.SongsPlayedCount,
		styles.label.Render("Recheck"), threshold,
	)
}
