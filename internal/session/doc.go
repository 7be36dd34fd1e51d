// Package session sequences requests against the analysis backend.
//
// A [Session] keeps the client's copy of [models.SessionSettings], allows at
// most one outstanding analysis, and runs the auto-capture loop. The loop calls
// a [Round] on every tick of a [Ticker]; rounds never overlap and ticks that
// land while one is running are dropped.
//
// Auto-capture follows the backend: the local state only changes to the value
// the server confirmed. [Session.ForceDisable] is the one local-only override,
// used when the camera goes away.
package session
