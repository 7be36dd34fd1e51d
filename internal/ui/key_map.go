package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	start    key.Binding
	capture  key.Binding
	auto     key.Binding
	stop     key.Binding
	more     key.Binding
	less     key.Binding
	apply    key.Binding
	reset    key.Binding
	song     key.Binding
	playlist key.Binding
	history  key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		start:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start camera")),
		capture:  key.NewBinding(key.WithKeys("c", " "), key.WithHelp("c", "capture")),
		auto:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "auto-capture")),
		stop:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop camera")),
		more:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "threshold up")),
		less:     key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "threshold down")),
		apply:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "save threshold")),
		reset:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset counter")),
		song:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open song")),
		playlist: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "open playlist")),
		history:  key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "history")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.start, k.capture, k.auto, k.stop, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.start, k.capture, k.auto, k.stop},
		{k.more, k.less, k.apply, k.reset},
		{k.song, k.playlist, k.history, k.quit},
	}
}
