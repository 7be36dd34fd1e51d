// Package controller is the top-level state machine reacting to user commands.
//
// # States
//
//	CameraOff --StartCamera--> Idle
//	Idle --Capture--> Analyzing --result or error--> Idle
//	Idle --ToggleAutoCapture(true)--> AutoCapturing
//	AutoCapturing --ToggleAutoCapture(false)--> Idle
//	any camera-on state --StopCamera--> CameraOff
//
// Commands that are not valid in the current state fail with
// [shared.ErrInvalidState] and change nothing. Settings updates and counter
// resets are valid in every state.
//
// # Sequencing
//
// Every round takes a fresh sequence number and StopCamera bumps it, so a
// response that arrives after the camera was stopped is dropped with
// [shared.ErrStaleResult] and the display keeps its previous value.
//
// # Events
//
// When an events channel is configured, state changes, results and errors are
// sent on it without blocking. A full channel drops the event.
package controller
