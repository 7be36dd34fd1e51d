package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/emotune/internal/camera"
	"github.com/desertthunder/emotune/internal/server"
	"github.com/desertthunder/emotune/internal/services"
	"github.com/desertthunder/emotune/internal/shared"
	tu "github.com/desertthunder/emotune/internal/testing"
	"github.com/urfave/cli/v3"
)

// newTestRunner returns a runner wired to an in-process backend, writing to out.
func newTestRunner(t *testing.T) (*Runner, *tu.Backend, *bytes.Buffer) {
	t.Helper()
	backend := tu.NewBackend(t)
	config := shared.DefaultConfig()
	config.Backend.URL = backend.URL
	config.Database.Path = filepath.Join(t.TempDir(), "journal.db")

	out := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: config,
		API:    services.NewAPIService(backend.URL, backend.Client()),
		Logger: shared.NewLogger(io.Discard),
		Output: out,
	})
	return runner, backend, out
}

func run(t *testing.T, cmd *cli.Command, args ...string) error {
	t.Helper()
	return cmd.Run(context.Background(), append([]string{cmd.Name}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			api := services.NewAPIService("http://example.test", nil)

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				API:        api,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.emotion == nil || runner.engine == nil {
				t.Error("expected emotion service and engine to be built")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.api.BaseURL() != strings.TrimSuffix(runner.config.Backend.URL, "/") {
				t.Errorf("expected api on config URL, got %s", runner.api.BaseURL())
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "tui", "serve", "analyze", "batch", "settings", "reset", "auto-capture", "health", "history", "api"} {
			if !names[want] {
				t.Errorf("expected command %q to be registered", want)
			}
		}
	})

	t.Run("constraints", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		runner.config.Camera.Width = 1280
		runner.config.Camera.Height = 0
		runner.config.Camera.FacingMode = camera.FacingEnvironment

		c := runner.constraints()
		if c.Width != 1280 || c.Height != camera.DefaultConstraints().Height || c.FacingMode != camera.FacingEnvironment {
			t.Errorf("unexpected constraints %+v", c)
		}
	})
}

func TestSessionCommands(t *testing.T) {
	t.Run("settings get", func(t *testing.T) {
		r, _, out := newTestRunner(t)
		if err := run(t, settingsCommand(r), "get", "--json"); err != nil {
			t.Fatalf("settings get failed: %v", err)
		}
		if !strings.Contains(out.String(), `"songs_before_recheck": 3`) {
			t.Errorf("unexpected output %s", out.String())
		}
	})

	t.Run("settings set", func(t *testing.T) {
		r, backend, out := newTestRunner(t)
		if err := run(t, settingsCommand(r), "set", "-n", "5"); err != nil {
			t.Fatalf("settings set failed: %v", err)
		}
		if backend.SongsBeforeRecheck() != 5 {
			t.Errorf("expected backend threshold 5, got %d", backend.SongsBeforeRecheck())
		}
		if !strings.Contains(out.String(), "set to 5") {
			t.Errorf("unexpected output %q", out.String())
		}
	})

	t.Run("settings set rejects out of range without a request", func(t *testing.T) {
		r, backend, _ := newTestRunner(t)
		err := run(t, settingsCommand(r), "set", "-n", "11")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		if backend.Count("/settings") != 0 {
			t.Error("expected no settings request")
		}
	})

	t.Run("reset", func(t *testing.T) {
		r, backend, _ := newTestRunner(t)
		backend.SetSongsPlayed(3)
		if err := run(t, resetCommand(r)); err != nil {
			t.Fatalf("reset failed: %v", err)
		}
		if backend.Count("/reset") != 1 {
			t.Error("expected one reset request")
		}
	})

	t.Run("auto-capture", func(t *testing.T) {
		r, backend, out := newTestRunner(t)
		if err := run(t, autoCaptureCommand(r), "on"); err != nil {
			t.Fatalf("auto-capture failed: %v", err)
		}
		if !backend.AutoCapture() || !strings.Contains(out.String(), "Auto-capture is on") {
			t.Errorf("expected auto-capture on, got %q", out.String())
		}

		if err := run(t, autoCaptureCommand(r), "sideways"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if err := run(t, autoCaptureCommand(r)); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("health", func(t *testing.T) {
		r, _, out := newTestRunner(t)
		if err := run(t, healthCommand(r)); err != nil {
			t.Fatalf("health failed: %v", err)
		}
		if !strings.Contains(out.String(), "healthy") {
			t.Errorf("unexpected output %q", out.String())
		}
	})

	t.Run("health reports unavailable backend", func(t *testing.T) {
		r, backend, _ := newTestRunner(t)
		backend.Fail(http.MethodGet, "/health", http.StatusServiceUnavailable, `{"status":"down"}`)
		if err := run(t, healthCommand(r)); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestAnalyzeCommands(t *testing.T) {
	t.Run("analyze image", func(t *testing.T) {
		r, backend, out := newTestRunner(t)
		image := tu.WriteFrame(t, t.TempDir(), "face.png")

		if err := run(t, analyzeCommand(r), "--image", image, "--format", "json"); err != nil {
			t.Fatalf("analyze failed: %v", err)
		}
		if backend.Count("/analyze") != 1 {
			t.Errorf("expected one analyze request, got %d", backend.Count("/analyze"))
		}
		for _, want := range []string{`"dominant_emotion": "happy"`, `"song_name": "Good Day"`} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("expected output to contain %s, got %s", want, out.String())
			}
		}
	})

	t.Run("analyze missing image is a camera error", func(t *testing.T) {
		r, backend, _ := newTestRunner(t)
		err := run(t, analyzeCommand(r), "--image", filepath.Join(t.TempDir(), "missing.png"))

		var camErr *camera.Error
		if !errors.As(err, &camErr) || camErr.Kind != camera.DeviceNotFound {
			t.Fatalf("expected DeviceNotFound camera error, got %v", err)
		}
		if backend.Count("/analyze") != 0 {
			t.Error("expected no analyze request")
		}
	})

	t.Run("analyze rejects csv", func(t *testing.T) {
		r, _, _ := newTestRunner(t)
		if err := run(t, analyzeCommand(r), "--format", "csv"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("batch dir", func(t *testing.T) {
		r, backend, out := newTestRunner(t)
		dir := t.TempDir()
		tu.WriteFrame(t, dir, "a.png")
		tu.WriteFrame(t, dir, "b.png")

		if err := run(t, batchCommand(r), "--dir", dir, "--rate", "100"); err != nil {
			t.Fatalf("batch failed: %v", err)
		}
		if backend.Count("/analyze") != 2 {
			t.Errorf("expected 2 analyze requests, got %d", backend.Count("/analyze"))
		}
		if !strings.Contains(out.String(), "2/2 frames analyzed") {
			t.Errorf("unexpected output %s", out.String())
		}
	})

	t.Run("batch requires input", func(t *testing.T) {
		r, _, _ := newTestRunner(t)
		if err := run(t, batchCommand(r)); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("history records journaled rounds", func(t *testing.T) {
		r, _, out := newTestRunner(t)
		r.config.Database.Enabled = true
		image := tu.WriteFrame(t, t.TempDir(), "face.png")

		if err := run(t, analyzeCommand(r), "--image", image); err != nil {
			t.Fatalf("analyze failed: %v", err)
		}
		out.Reset()

		if err := run(t, historyCommand(r), "--format", "csv"); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected header and one row, got %q", out.String())
		}
		if !strings.Contains(lines[1], "manual") || !strings.Contains(lines[1], "happy") {
			t.Errorf("unexpected row %q", lines[1])
		}
	})

	t.Run("history counts emotions", func(t *testing.T) {
		r, _, out := newTestRunner(t)
		r.config.Database.Enabled = true
		image := tu.WriteFrame(t, t.TempDir(), "face.png")

		for range 2 {
			if err := run(t, analyzeCommand(r), "--image", image); err != nil {
				t.Fatalf("analyze failed: %v", err)
			}
		}
		out.Reset()

		if err := run(t, historyCommand(r), "--counts"); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if !strings.Contains(out.String(), "Emotion counts") || !strings.Contains(out.String(), "happy      2") {
			t.Errorf("unexpected output %q", out.String())
		}
	})

	t.Run("history writes file", func(t *testing.T) {
		r, _, out := newTestRunner(t)
		path := filepath.Join(t.TempDir(), "out", "history.md")

		if err := run(t, historyCommand(r), "--format", "md", "--output", path); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(out.String(), "Wrote 0 rounds") {
			t.Errorf("unexpected output %q", out.String())
		}
	})
}

func TestAPICommands(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		r, _, out := newTestRunner(t)
		if err := run(t, apiCommand(r), "get", "/settings"); err != nil {
			t.Fatalf("api get failed: %v", err)
		}
		if !strings.Contains(out.String(), `"songs_played": 0`) {
			t.Errorf("unexpected output %s", out.String())
		}
	})

	t.Run("get non-2xx", func(t *testing.T) {
		r, _, _ := newTestRunner(t)
		if err := run(t, apiCommand(r), "get", "/nope"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("post", func(t *testing.T) {
		r, backend, _ := newTestRunner(t)
		if err := run(t, apiCommand(r), "post", "-d", `{"songs_before_recheck":4}`, "/settings"); err != nil {
			t.Fatalf("api post failed: %v", err)
		}
		if backend.SongsBeforeRecheck() != 4 {
			t.Errorf("expected threshold 4, got %d", backend.SongsBeforeRecheck())
		}
	})

	t.Run("post invalid JSON", func(t *testing.T) {
		r, backend, _ := newTestRunner(t)
		if err := run(t, apiCommand(r), "post", "-d", `{nope`, "/settings"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if len(backend.Requests()) != 0 {
			t.Error("expected no request")
		}
	})

	t.Run("dump", func(t *testing.T) {
		r, _, out := newTestRunner(t)
		save := filepath.Join(t.TempDir(), "dump.json")
		if err := run(t, apiCommand(r), "dump", "--save", save); err != nil {
			t.Fatalf("api dump failed: %v", err)
		}
		for _, want := range []string{`"health"`, `"settings"`, `"healthy"`} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("expected %s in output", want)
			}
		}
		tu.AssertFileExists(t, save)
	})
}

func TestSetup(t *testing.T) {
	t.Run("existing config", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "config.toml")
		dbPath := filepath.Join(dir, "journal.db")
		content := "[database]\npath = \"" + filepath.ToSlash(dbPath) + "\"\n"
		if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		out := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: out})
		if err := run(t, setupCommand(r), "--config", configPath); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
		tu.AssertFileExists(t, dbPath)
		if !strings.Contains(out.String(), "Round journal ready") {
			t.Errorf("unexpected output %q", out.String())
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[camera]\nquality = 0\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		r := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: &bytes.Buffer{}})
		if err := run(t, setupCommand(r), "--config", configPath); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestServe(t *testing.T) {
	r, _, _ := newTestRunner(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	router := server.NewBasicRouter()
	router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "pong")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.serve(ctx, server.NewHTTPServer(addr, router)) }()

	var resp *http.Response
	for range 50 {
		resp, err = http.Get("http://" + addr + "/ping")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong" {
		t.Errorf("expected pong, got %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
