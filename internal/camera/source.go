package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

const (
	FacingUser        = "user"
	FacingEnvironment = "environment"
)

// Constraints are the ideal stream properties. Width and Height are hints.
type Constraints struct {
	Width      int
	Height     int
	FacingMode string
}

// DefaultConstraints asks for a 640x480 front-facing stream.
func DefaultConstraints() Constraints {
	return Constraints{Width: 640, Height: 480, FacingMode: FacingUser}
}

// Validate rejects constraints no source could honor.
func (c Constraints) Validate() error {
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("%w: negative resolution %dx%d", ErrConstraints, c.Width, c.Height)
	}
	switch c.FacingMode {
	case "", FacingUser, FacingEnvironment:
		return nil
	default:
		return fmt.Errorf("%w: unknown facing mode %q", ErrConstraints, c.FacingMode)
	}
}

// Source opens frame streams.
type Source interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream yields frames until stopped.
type Stream interface {
	Frame() (image.Image, error)
	Stop() error
}

// Sink receives every frame taken by [Device.Snapshot], standing in for a preview surface.
type Sink interface {
	Show(frame image.Image)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(frame image.Image)

func (f SinkFunc) Show(frame image.Image) { f(frame) }

// Discard is a [Sink] that drops frames.
var Discard Sink = SinkFunc(func(image.Image) {})

var imageExts = []string{".jpg", ".jpeg", ".png"}

// FileSource streams a single still image, re-read on every frame so it can be
// swapped on disk while the stream is open.
type FileSource struct {
	Path string
}

func (s FileSource) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	info, err := os.Stat(s.Path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", s.Path, os.ErrNotExist)
	}

	return &fileStream{paths: []string{s.Path}}, nil
}

// DirSource cycles through the images of a directory in name order.
type DirSource struct {
	Dir string
}

func (s DirSource) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(imageExts, strings.ToLower(filepath.Ext(e.Name()))) {
			paths = append(paths, filepath.Join(s.Dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images in %s: %w", s.Dir, os.ErrNotExist)
	}

	return &fileStream{paths: paths}, nil
}

type fileStream struct {
	mu      sync.Mutex
	paths   []string
	next    int
	stopped bool
}

func (s *fileStream) Frame() (image.Image, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, ErrStreamStopped
	}
	path := s.paths[s.next]
	s.next = (s.next + 1) % len(s.paths)
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func (s *fileStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}
