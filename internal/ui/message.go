package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/emotune/internal/controller"
	"github.com/desertthunder/emotune/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSettingsLoaded MsgKind = iota
	MsgControllerEvent
	MsgCommandDone
	MsgEventsClosed
)

type commandResult struct {
	name string
	err  error
}

// settingsLoadedMsg is the constructor for [MsgSettingsLoaded]
func settingsLoadedMsg(settings models.SessionSettings) Msg {
	return Msg{kind: MsgSettingsLoaded, data: settings}
}

// controllerEventMsg is the constructor for [MsgControllerEvent]
func controllerEventMsg(ev controller.Event) Msg {
	return Msg{kind: MsgControllerEvent, data: ev}
}

// commandDoneMsg is the constructor for [MsgCommandDone]
func commandDoneMsg(name string, err error) Msg {
	return Msg{kind: MsgCommandDone, data: commandResult{name: name, err: err}}
}

// eventsClosedMsg is the constructor for [MsgEventsClosed]
func eventsClosedMsg() Msg {
	return Msg{kind: MsgEventsClosed}
}
