package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// Request is one call recorded by [Backend].
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Backend is an in-process stand-in for the analysis server. It keeps the same
// settings and play counter the real one does and records every request.
type Backend struct {
	*httptest.Server

	// Started receives one value for every /analyze request, before any hold applies.
	Started chan struct{}

	mu                 sync.Mutex
	requests           []Request
	overrides          map[string]http.HandlerFunc
	gate               chan struct{}
	songsBeforeRecheck int
	songsPlayed        int
	currentEmotion     string
	autoCapture        bool
	intervalSeconds    int
}

// NewBackend starts a backend that is shut down when the test ends.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		Started:            make(chan struct{}, 64),
		overrides:          make(map[string]http.HandlerFunc),
		songsBeforeRecheck: 3,
		intervalSeconds:    30,
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(func() {
		b.Release()
		b.Close()
	})
	return b
}

// Handle replaces the default behavior for method and path.
func (b *Backend) Handle(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides[method+" "+path] = h
}

// Fail makes method and path answer with status and body.
func (b *Backend) Fail(method, path string, status int, body string) {
	b.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	})
}

// Hold makes /analyze block until [Backend.Release].
func (b *Backend) Hold() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gate == nil {
		b.gate = make(chan struct{})
	}
}

// Release unblocks held /analyze requests. Safe to call when nothing is held.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gate != nil {
		close(b.gate)
		b.gate = nil
	}
}

// SetSongsPlayed seeds the server-side counter.
func (b *Backend) SetSongsPlayed(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.songsPlayed = n
}

// SetInterval sets the auto_capture_interval reported by GET /settings.
func (b *Backend) SetInterval(seconds int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.intervalSeconds = seconds
}

// SongsBeforeRecheck returns the threshold the backend currently holds.
func (b *Backend) SongsBeforeRecheck() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.songsBeforeRecheck
}

// AutoCapture reports the backend's auto-capture flag.
func (b *Backend) AutoCapture() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.autoCapture
}

// Requests returns the recorded requests in arrival order.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Count returns how many requests hit path.
func (b *Backend) Count(path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}

// LastBody returns the body of the most recent request to path.
func (b *Backend) LastBody(path string) []byte {
	reqs := b.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Path == path {
			return reqs[i].Body
		}
	}
	return nil
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	b.mu.Lock()
	b.requests = append(b.requests, Request{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: body})
	override := b.overrides[r.Method+" "+r.URL.Path]
	gate := b.gate
	b.mu.Unlock()

	if r.URL.Path == "/analyze" {
		select {
		case b.Started <- struct{}{}:
		default:
		}
		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
	}

	if override != nil {
		override(w, r)
		return
	}

	switch r.Method + " " + r.URL.Path {
	case "POST /analyze":
		b.analyze(w)
	case "GET /settings":
		b.getSettings(w)
	case "POST /settings":
		b.postSettings(w, body)
	case "POST /reset":
		b.reset(w)
	case "POST /auto-capture":
		b.toggle(w, body)
	case "GET /health":
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
	}
}

func (b *Backend) analyze(w http.ResponseWriter) {
	b.mu.Lock()
	b.songsPlayed++
	b.currentEmotion = "happy"
	played := b.songsPlayed
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{
		"dominant_emotion": "happy",
		"emotion_scores": {"sad": 12.3, "happy": 80.2, "neutral": 7.5},
		"playlist_url": "https://open.spotify.com/playlist/happy",
		"song_url": "https://open.spotify.com/track/good-day",
		"song_name": "Good Day",
		"song_artist": "The Band",
		"songs_played": %d
	}`, played)
}

func (b *Backend) getSettings(w http.ResponseWriter) {
	b.mu.Lock()
	resp := map[string]any{
		"songs_before_recheck":  b.songsBeforeRecheck,
		"songs_played":          b.songsPlayed,
		"current_emotion":       b.currentEmotion,
		"auto_capture_enabled":  b.autoCapture,
		"auto_capture_interval": b.intervalSeconds,
		"auto_play_random_song": true,
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) postSettings(w http.ResponseWriter, body []byte) {
	var req struct {
		SongsBeforeRecheck *int `json:"songs_before_recheck"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.SongsBeforeRecheck == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid body"})
		return
	}

	b.mu.Lock()
	b.songsBeforeRecheck = *req.SongsBeforeRecheck
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (b *Backend) reset(w http.ResponseWriter) {
	b.mu.Lock()
	b.songsPlayed = 0
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "songs_played": 0})
}

func (b *Backend) toggle(w http.ResponseWriter, body []byte) {
	var req struct {
		Enable bool `json:"enable"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	b.mu.Lock()
	b.autoCapture = req.Enable
	b.mu.Unlock()

	message := "Auto-capture disabled"
	if req.Enable {
		message = "Auto-capture enabled"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":              true,
		"message":              message,
		"auto_capture_enabled": req.Enable,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
