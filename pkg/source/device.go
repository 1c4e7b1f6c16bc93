package source

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/video-system/go-cam-recorder/internal/ffmpeg"
)

// captureRestartDelay paces relaunch attempts after the capture process dies
const captureRestartDelay = time.Second

// captureProc is the slice of ffmpeg.CaptureProcess the device needs
type captureProc interface {
	Stdout() io.ReadCloser
	Stop() error
}

// Device captures from a physical camera through an FFmpeg subprocess that
// decodes the device stream to raw RGB frames on stdout. The reader goroutine
// slices stdout into frames and publishes each into the mailbox, so Read
// always sees the newest complete frame.
//
// A capture process that dies mid-run (device unplugged, decoder error) is
// relaunched with a delay; until fresh frames arrive the mailbox reports
// absent rather than replaying a stale image.
type Device struct {
	name string
	cfg  DeviceConfig
	log  *zap.Logger

	start        func(ctx context.Context) (captureProc, error)
	restartDelay time.Duration

	mailbox Mailbox
	seq     uint64

	mu      sync.Mutex
	proc    captureProc
	cancel  context.CancelFunc
	stopped chan struct{}
}

// DeviceConfig describes the capture device and requested geometry
type DeviceConfig struct {
	Device      string // /dev/video0
	InputFormat string // v4l2; empty = platform default
	Width       int
	Height      int
	Framerate   float64
}

// NewDevice creates a device-backed source
func NewDevice(name string, cfg DeviceConfig, ff *ffmpeg.FFmpeg, log *zap.Logger) *Device {
	if cfg.InputFormat == "" {
		cfg.InputFormat = ffmpeg.DefaultInputFormat()
	}
	if cfg.Framerate <= 0 {
		cfg.Framerate = 30
	}
	return &Device{
		name: name,
		cfg:  cfg,
		log:  log.With(zap.String("camera", name)),
		start: func(ctx context.Context) (captureProc, error) {
			return ff.StartCapture(ctx, ffmpeg.CaptureConfig{
				Device:      cfg.Device,
				InputFormat: cfg.InputFormat,
				Width:       cfg.Width,
				Height:      cfg.Height,
				Framerate:   cfg.Framerate,
			})
		},
		restartDelay: captureRestartDelay,
	}
}

func (d *Device) Name() string { return d.name }

func (d *Device) Width() int { return d.cfg.Width }

func (d *Device) Height() int { return d.cfg.Height }

func (d *Device) FPS() float64 { return d.cfg.Framerate }

// Start launches the capture process and the frame reader
func (d *Device) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, d.cancel = context.WithCancel(ctx)

	proc, err := d.start(ctx)
	if err != nil {
		d.cancel()
		return err
	}

	d.proc = proc
	d.stopped = make(chan struct{})

	go d.run(ctx, proc)

	d.log.Info("capture started",
		zap.String("device", d.cfg.Device),
		zap.Int("width", d.cfg.Width),
		zap.Int("height", d.cfg.Height),
		zap.Float64("fps", d.cfg.Framerate))
	return nil
}

// Stop terminates the capture process and waits for the reader to exit
func (d *Device) Stop() {
	d.mu.Lock()
	cancel, proc, stopped := d.cancel, d.proc, d.stopped
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if proc != nil {
		proc.Stop()
	}
	if stopped != nil {
		<-stopped
	}
	d.log.Info("capture stopped")
}

// Read returns a copy of the latest decoded frame
func (d *Device) Read() (*Frame, bool) {
	return d.mailbox.Get()
}

// run supervises the capture process, relaunching it when the stream dies
// while the device is still supposed to be recording.
func (d *Device) run(ctx context.Context, proc captureProc) {
	defer close(d.stopped)

	for {
		d.readFrames(ctx, proc.Stdout())
		proc.Stop()

		if ctx.Err() != nil {
			return
		}

		// The stream died mid-run. Drop the stale frame so readers see
		// absence instead of a frozen image.
		d.mailbox.Clear()
		d.log.Warn("capture stream lost, relaunching",
			zap.String("device", d.cfg.Device))

		var next captureProc
		for next == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.restartDelay):
			}

			p, err := d.start(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				d.log.Error("capture relaunch failed", zap.Error(err))
				continue
			}
			next = p
		}

		proc = next
		d.mu.Lock()
		d.proc = next
		d.mu.Unlock()
		d.log.Info("capture relaunched", zap.String("device", d.cfg.Device))
	}
}

// readFrames slices the raw stdout stream into frames until it ends
func (d *Device) readFrames(ctx context.Context, r io.Reader) {
	frameSize := FrameBytes(d.cfg.Width, d.cfg.Height)
	buf := make([]byte, frameSize)

	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				d.log.Warn("frame read failed", zap.Error(err))
			}
			return
		}

		d.seq++
		data := make([]byte, frameSize)
		copy(data, buf)

		d.mailbox.Put(&Frame{
			Data:      data,
			Width:     d.cfg.Width,
			Height:    d.cfg.Height,
			Seq:       d.seq,
			Timestamp: time.Now(),
		})
	}
}
