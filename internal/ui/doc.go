// Package ui implements an interactive terminal front end for a capture
// session using bubbletea's Elm architecture.
//
// The [Model] drives a [Controller] and renders its state:
//   - camera and auto-capture status, with a spinner while a round is analyzing
//   - ranked emotion scores as [progress] bars
//   - playlist and song links (opened in the browser with o/p)
//   - the play counter and the songs-before-recheck threshold
//   - a history list of this session's results
//
// Controller commands block on the network, so each runs inside a [tea.Cmd].
// Controller events arrive on a channel that the model re-arms after every
// message, so auto-capture results render as they land.
//
// Key bindings are defined in one [keyMap] and shown with bubbles/help.
package ui
