// Package services talks to the emotion analysis backend over HTTP/JSON.
//
// # Raw Access
//
// [APIService] issues raw GET and POST requests and returns the status, headers
// and body untouched, detecting JSON bodies. The `emotune api` command uses it
// directly. Every request waits on an optional [rate.Limiter] first.
//
// # Backend Contract
//
// [Backend] is the contract the session depends on. [EmotionService] implements
// it on top of [APIService]:
//   - /analyze: POST {image: data URL} → [models.AnalysisResult]
//   - /settings: GET → [models.SessionSettings], POST {songs_before_recheck} → {success}
//   - /reset: POST → {success, songs_played}
//   - /auto-capture: POST {enable} → {success, auto_capture_enabled, message, error}
//   - /health: GET → {status, timestamp}
//
// # Authentication
//
// A backend behind an auth proxy can be given a bearer token. [NewHTTPClient]
// wraps the transport with an [oauth2.StaticTokenSource] so every request carries it.
//
// # Error Handling
//
// Failures are reported with the typed errors from the shared package:
//   - [shared.AnalysisError] : /analyze returned an error field or never completed
//   - [shared.TransportError] : a settings, reset or health call failed
//   - [shared.ToggleError] : the backend refused an auto-capture toggle
//   - [shared.ErrRequestRejected] : a write answered with success=false
package services
