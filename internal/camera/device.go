package camera

import (
	"bytes"
	"context"
	"image/jpeg"
	"sync"

	"github.com/charmbracelet/log"
)

// DefaultQuality is the JPEG quality used for snapshots.
const DefaultQuality = 80

// State is the stream state of a [Device].
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// Device wraps a [Source] and owns at most one open [Stream].
type Device struct {
	source  Source
	quality int
	logger  *log.Logger

	mu     sync.Mutex
	stream Stream
	sink   Sink
}

// NewDevice creates an idle device. A quality outside [1,100] falls back to [DefaultQuality].
func NewDevice(source Source, quality int, logger *log.Logger) *Device {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &Device{source: source, quality: quality, logger: logger}
}

// State reports whether a stream is open.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream != nil {
		return Active
	}
	return Idle
}

// Acquire opens a stream. Acquiring an active device is a no-op. Failures are
// returned as *[Error] and leave the device idle.
func (d *Device) Acquire(ctx context.Context, c Constraints) error {
	d.mu.Lock()
	if d.stream != nil {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	stream, err := d.source.Open(ctx, c)
	if err != nil {
		camErr := Classify(err)
		d.logger.Warn("camera acquire failed", "kind", camErr.Kind, "error", err)
		return camErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream != nil {
		_ = stream.Stop()
		return nil
	}
	d.stream = stream
	d.logger.Info("camera started", "width", c.Width, "height", c.Height, "facing", c.FacingMode)
	return nil
}

// AttachTo binds the stream to sink. Every snapshot is shown on it.
func (d *Device) AttachTo(sink Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sink = sink
}

// Snapshot grabs the current frame, shows it on the sink and returns it as JPEG.
//
// Calling Snapshot on an idle or unattached device panics.
func (d *Device) Snapshot() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil {
		panic("camera: Snapshot on idle device")
	}
	if d.sink == nil {
		panic("camera: Snapshot on unattached device")
	}

	frame, err := d.stream.Frame()
	if err != nil {
		return nil, err
	}
	d.sink.Show(frame)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: d.quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Release stops the stream and detaches the sink. Releasing an idle device is a no-op.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil {
		return
	}
	if err := d.stream.Stop(); err != nil {
		d.logger.Warn("camera stop failed", "error", err)
	}
	d.stream = nil
	d.sink = nil
	d.logger.Info("camera stopped")
}
