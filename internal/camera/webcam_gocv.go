//go:build gocv

package camera

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// WebcamSource streams from a local capture device through OpenCV.
type WebcamSource struct {
	Device int
}

func (s WebcamSource) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	webcam, err := gocv.OpenVideoCapture(s.Device)
	if err != nil {
		return nil, fmt.Errorf("open device %d: %w", s.Device, err)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return nil, fmt.Errorf("device %d busy or unavailable: %w", s.Device, ErrDeviceUnavailable)
	}
	if c.Width > 0 {
		webcam.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
	}
	if c.Height > 0 {
		webcam.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
	}

	return &webcamStream{webcam: webcam, mat: gocv.NewMat()}, nil
}

type webcamStream struct {
	mu      sync.Mutex
	webcam  *gocv.VideoCapture
	mat     gocv.Mat
	stopped bool
}

func (s *webcamStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, ErrStreamStopped
	}
	if ok := s.webcam.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, fmt.Errorf("read frame: empty capture")
	}
	return s.mat.ToImage()
}

func (s *webcamStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true
	s.mat.Close()
	return s.webcam.Close()
}

func newWebcamSource(device int) (Source, error) {
	return WebcamSource{Device: device}, nil
}
