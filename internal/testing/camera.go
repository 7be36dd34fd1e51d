package testing

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/desertthunder/emotune/internal/camera"
)

// SolidFrame returns a w×h image filled with c.
func SolidFrame(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

// WriteFrame writes a small PNG into dir and returns its path.
func WriteFrame(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create frame %s: %v", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, SolidFrame(8, 6, color.RGBA{R: 200, G: 120, B: 40, A: 255})); err != nil {
		t.Fatalf("Failed to encode frame %s: %v", path, err)
	}
	return path
}

// FakeSource is a [camera.Source] that serves a fixed frame, or fails with OpenErr.
type FakeSource struct {
	OpenErr error
	Frame   image.Image

	mu      sync.Mutex
	opened  int
	streams []*FakeStream
}

func (s *FakeSource) Open(ctx context.Context, c camera.Constraints) (camera.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened++
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	frame := s.Frame
	if frame == nil {
		frame = SolidFrame(4, 4, color.White)
	}
	st := &FakeStream{frame: frame, Constraints: c}
	s.streams = append(s.streams, st)
	return st, nil
}

// Opened reports how many times Open was called.
func (s *FakeSource) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// Streams returns every stream handed out so far.
func (s *FakeSource) Streams() []*FakeStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*FakeStream(nil), s.streams...)
}

// FakeStream counts frames and stops.
type FakeStream struct {
	Constraints camera.Constraints

	mu     sync.Mutex
	frame  image.Image
	frames int
	stops  int
}

func (s *FakeStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stops > 0 {
		return nil, camera.ErrStreamStopped
	}
	s.frames++
	return s.frame, nil
}

func (s *FakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

// Stops reports how many times Stop was called.
func (s *FakeStream) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// RecordingSink counts the frames shown on it.
type RecordingSink struct {
	mu    sync.Mutex
	shown int
}

func (s *RecordingSink) Show(image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown++
}

func (s *RecordingSink) Shown() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shown
}
