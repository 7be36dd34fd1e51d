package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/emotune/internal/shared"
	tu "github.com/desertthunder/emotune/internal/testing"
)

func newEmotionService(t *testing.T) (*EmotionService, *tu.Backend) {
	t.Helper()
	backend := tu.NewBackend(t)
	return NewEmotionService(NewAPIService(backend.URL, nil)), backend
}

func TestEmotionService(t *testing.T) {
	ctx := context.Background()

	t.Run("Analyze", func(t *testing.T) {
		t.Run("Sends Data URL", func(t *testing.T) {
			svc, backend := newEmotionService(t)
			frame := []byte{0xff, 0xd8, 0xff, 0xd9}

			result, err := svc.Analyze(ctx, frame)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			var body struct {
				Image string `json:"image"`
			}
			if err := json.Unmarshal(backend.LastBody("/analyze"), &body); err != nil {
				t.Fatalf("failed to decode request: %v", err)
			}
			want := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame)
			if body.Image != want {
				t.Errorf("expected %s, got %s", want, body.Image)
			}

			if result.DominantEmotion != "happy" || result.SongsPlayed != 1 {
				t.Errorf("unexpected result %+v", result)
			}
			if result.EmotionScores[0].Label != "sad" {
				t.Errorf("expected key order preserved, got %v", result.EmotionScores)
			}
		})

		t.Run("Error Field", func(t *testing.T) {
			svc, backend := newEmotionService(t)
			backend.Fail(http.MethodPost, "/analyze", http.StatusBadRequest, `{"error": "No face detected"}`)

			_, err := svc.Analyze(ctx, []byte("x"))
			var ae *shared.AnalysisError
			if !errors.As(err, &ae) {
				t.Fatalf("expected AnalysisError, got %v", err)
			}
			if ae.Message != "No face detected" {
				t.Errorf("unexpected message %q", ae.Message)
			}
			if shared.IsTransport(err) {
				t.Error("expected server-reported error not to be a transport error")
			}
		})

		t.Run("Transport Failure", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection reset"))}
			svc := NewEmotionService(NewAPIService("http://example.com", client))

			_, err := svc.Analyze(ctx, []byte("x"))
			var ae *shared.AnalysisError
			if !errors.As(err, &ae) {
				t.Fatalf("expected AnalysisError, got %v", err)
			}
			if !shared.IsTransport(err) {
				t.Error("expected transport error inside analysis error")
			}
		})

		t.Run("Non-JSON Body", func(t *testing.T) {
			svc, backend := newEmotionService(t)
			backend.Fail(http.MethodPost, "/analyze", http.StatusBadGateway, "<html>bad gateway</html>")

			_, err := svc.Analyze(ctx, []byte("x"))
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Error Status Without Error Field", func(t *testing.T) {
			svc, backend := newEmotionService(t)
			backend.Fail(http.MethodPost, "/analyze", http.StatusInternalServerError, `{}`)

			_, err := svc.Analyze(ctx, []byte("x"))
			var ae *shared.AnalysisError
			if !errors.As(err, &ae) || !strings.Contains(ae.Message, "500") {
				t.Errorf("expected HTTP 500 analysis error, got %v", err)
			}
		})
	})

	t.Run("GetSettings", func(t *testing.T) {
		t.Run("Decodes Payload", func(t *testing.T) {
			svc, backend := newEmotionService(t)
			backend.SetSongsPlayed(2)
			backend.SetInterval(15)

			s, err := svc.GetSettings(ctx)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if s.SongsBeforeRecheck != 3 || s.SongsPlayed != 2 {
				t.Errorf("unexpected settings %+v", s)
			}
			if s.AutoCaptureInterval != 15*time.Second {
				t.Errorf("expected 15s interval, got %v", s.AutoCaptureInterval)
			}
			if !s.AutoPlayRandomSong {
				t.Error("expected auto play flag")
			}
		})

		t.Run("Null Current Emotion", func(t *testing.T) {
			svc, backend := newEmotionService(t)
			backend.Fail(http.MethodGet, "/settings", http.StatusOK, `{"songs_before_recheck": 4, "songs_played": 0, "current_emotion": null}`)

			s, err := svc.GetSettings(ctx)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if s.CurrentEmotion != "" || s.SongsBeforeRecheck != 4 || s.AutoCaptureInterval != 0 {
				t.Errorf("unexpected settings %+v", s)
			}
		})

		t.Run("Server Error", func(t *testing.T) {
			svc, backend := newEmotionService(t)
			backend.Fail(http.MethodGet, "/settings", http.StatusServiceUnavailable, `{}`)

			_, err := svc.GetSettings(ctx)
			if !shared.IsTransport(err) || !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected transport error, got %v", err)
			}
		})
	})

	t.Run("UpdateSettings", func(t *testing.T) {
		t.Run("Sends Threshold", func(t *testing.T) {
			svc, backend := newEmotionService(t)

			if err := svc.UpdateSettings(ctx, 5); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got := string(backend.LastBody("/settings")); got != `{"songs_before_recheck":5}` {
				t.Errorf("unexpected body %s", got)
			}
			if backend.SongsBeforeRecheck() != 5 {
				t.Errorf("expected backend to store 5, got %d", backend.SongsBeforeRecheck())
			}
		})

		t.Run("Rejected", func(t *testing.T) {
			svc, backend := newEmotionService(t)
			backend.Fail(http.MethodPost, "/settings", http.StatusOK, `{"success": false, "error": "read only"}`)

			err := svc.UpdateSettings(ctx, 5)
			if !shared.IsTransport(err) || !errors.Is(err, shared.ErrRequestRejected) {
				t.Errorf("expected rejected transport error, got %v", err)
			}
			if !strings.Contains(err.Error(), "read only") {
				t.Errorf("expected reason in error, got %v", err)
			}
		})
	})

	t.Run("ResetCounter", func(t *testing.T) {
		svc, backend := newEmotionService(t)
		backend.SetSongsPlayed(7)

		if err := svc.ResetCounter(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		s, _ := svc.GetSettings(ctx)
		if s.SongsPlayed != 0 {
			t.Errorf("expected counter reset, got %d", s.SongsPlayed)
		}

		backend.Fail(http.MethodPost, "/reset", http.StatusInternalServerError, `{"success": false}`)
		if err := svc.ResetCounter(ctx); !errors.Is(err, shared.ErrRequestRejected) {
			t.Errorf("expected rejected error, got %v", err)
		}
	})

	t.Run("SetAutoCapture", func(t *testing.T) {
		t.Run("Confirmed", func(t *testing.T) {
			svc, backend := newEmotionService(t)

			enabled, err := svc.SetAutoCapture(ctx, true)
			if err != nil || !enabled {
				t.Fatalf("expected enabled, got %v %v", enabled, err)
			}
			if !backend.AutoCapture() {
				t.Error("expected backend flag set")
			}
			if got := string(backend.LastBody("/auto-capture")); got != `{"enable":true}` {
				t.Errorf("unexpected body %s", got)
			}
		})

		t.Run("Server Settles Differently", func(t *testing.T) {
			svc, backend := newEmotionService(t)
			backend.Fail(http.MethodPost, "/auto-capture", http.StatusOK, `{"success": true, "auto_capture_enabled": false}`)

			enabled, err := svc.SetAutoCapture(ctx, true)
			if err != nil || enabled {
				t.Errorf("expected server value false, got %v %v", enabled, err)
			}
		})

		t.Run("Error Field", func(t *testing.T) {
			svc, backend := newEmotionService(t)
			backend.Fail(http.MethodPost, "/auto-capture", http.StatusInternalServerError, `{"error": "scheduler offline"}`)

			_, err := svc.SetAutoCapture(ctx, true)
			var te *shared.ToggleError
			if !errors.As(err, &te) || te.Message != "scheduler offline" {
				t.Errorf("expected toggle error, got %v", err)
			}
		})

		t.Run("Unsuccessful", func(t *testing.T) {
			svc, backend := newEmotionService(t)
			backend.Fail(http.MethodPost, "/auto-capture", http.StatusOK, `{"success": false, "message": "busy"}`)

			_, err := svc.SetAutoCapture(ctx, false)
			var te *shared.ToggleError
			if !errors.As(err, &te) || te.Message != "busy" {
				t.Errorf("expected toggle error, got %v", err)
			}
		})
	})

	t.Run("Health", func(t *testing.T) {
		svc, backend := newEmotionService(t)

		status, err := svc.Health(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if status.Status != "healthy" || status.Timestamp == "" || status.Details["status"] != "healthy" {
			t.Errorf("unexpected status %+v", status)
		}

		backend.Fail(http.MethodGet, "/health", http.StatusServiceUnavailable, `{"status": "degraded"}`)
		status, err = svc.Health(ctx)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected unavailable error, got %v", err)
		}
		if status == nil || status.Status != "degraded" {
			t.Errorf("expected degraded status, got %+v", status)
		}
	})
}
