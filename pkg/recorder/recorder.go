// Package recorder implements the per-camera recording pipeline: a relay
// goroutine forwarding source frames into a bounded queue, and a driver
// goroutine pacing those frames into an external encoder process with timed
// file rotation. Capture is never blocked on disk or encoder latency.
package recorder

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/video-system/go-cam-recorder/pkg/source"
)

// Config holds per-recorder pipeline settings
type Config struct {
	// TargetFPS is the constant rate delivered to the encoder. Defaults
	// to the source's nominal rate.
	TargetFPS float64

	// SplitInterval is how long each segment file runs before rotation
	SplitInterval time.Duration

	// QueueSize bounds the relay-to-driver queue
	QueueSize int

	// PollInterval is the relay's source polling period. Defaults to
	// polling ~1.2x faster than the source's nominal rate so capture
	// jitter does not starve the queue.
	PollInterval time.Duration

	// Tick is the driver's idle yield between iterations
	Tick time.Duration

	// OpenRetryDelay is the pause before retrying a failed segment open
	OpenRetryDelay time.Duration
}

func (c *Config) applyDefaults(srcFPS float64) {
	if c.TargetFPS <= 0 {
		c.TargetFPS = srcFPS
	}
	if c.TargetFPS <= 0 {
		c.TargetFPS = 30
	}
	if c.SplitInterval <= 0 {
		c.SplitInterval = 5 * time.Minute
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.PollInterval <= 0 {
		fps := srcFPS
		if fps <= 0 {
			fps = c.TargetFPS
		}
		c.PollInterval = time.Duration(float64(time.Second) / (fps * 1.2))
	}
	if c.Tick <= 0 {
		c.Tick = 2 * time.Millisecond
	}
	if c.OpenRetryDelay <= 0 {
		c.OpenRetryDelay = time.Second
	}
}

// Recorder owns one camera's pipeline and the lifecycle of its two
// background goroutines.
type Recorder struct {
	name  string
	src   source.Source
	cfg   Config
	queue *Queue
	log   *zap.Logger
	drv   *driver

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	relayStop  chan struct{}
	driverStop chan struct{}
	relayDone  chan struct{}
	driverDone chan struct{}

	errMu   sync.Mutex
	lastErr error
}

// New creates a recorder for one camera. The namer supplies output paths and
// the encoder opens one sink per segment.
func New(name string, src source.Source, enc Encoder, namer SegmentNamer, cfg Config, log *zap.Logger) *Recorder {
	cfg.applyDefaults(src.FPS())

	queue := NewQueue(cfg.QueueSize)
	log = log.With(zap.String("camera", name))

	r := &Recorder{
		name:  name,
		src:   src,
		cfg:   cfg,
		queue: queue,
		log:   log,
	}
	r.drv = newDriver(name, cfg, queue, enc, namer, src.Width(), src.Height(), log)
	r.drv.onError = r.recordError
	return r
}

// OnSegment registers a callback invoked after each segment is finalized.
// Must be set before Start.
func (r *Recorder) OnSegment(fn func(SegmentInfo)) {
	r.drv.onSegment = fn
}

// Start launches the relay and driver goroutines. Idempotent.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.relayStop = make(chan struct{})
	r.driverStop = make(chan struct{})
	r.relayDone = make(chan struct{})
	r.driverDone = make(chan struct{})

	rl := &relay{
		camera: r.name,
		src:    r.src,
		queue:  r.queue,
		poll:   r.cfg.PollInterval,
	}

	go func() {
		defer close(r.relayDone)
		rl.run(r.relayStop)
	}()
	go func() {
		defer close(r.driverDone)
		r.drv.run(ctx, r.driverStop)
	}()

	r.running = true
	r.log.Info("recorder started",
		zap.Float64("target_fps", r.cfg.TargetFPS),
		zap.Duration("split_interval", r.cfg.SplitInterval),
		zap.Int("queue_size", r.cfg.QueueSize))
	return nil
}

// Stop shuts the pipeline down in order: the relay stops enqueuing first,
// then the driver drains the remaining queue and closes the final segment.
// The encoder process is never killed during a normal stop; Close waits for
// it to finalize the file.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	close(r.relayStop)
	<-r.relayDone

	close(r.driverStop)
	<-r.driverDone

	// Backstop for any process still attached to the context; by now the
	// driver has closed its encoder cleanly.
	r.cancel()

	r.log.Info("recorder stopped", zap.Uint64("frames_dropped", r.queue.Dropped()))
}

// Name returns the camera name
func (r *Recorder) Name() string { return r.name }

// State reports the driver's current state
func (r *Recorder) State() State {
	return r.drv.State()
}

// QueueLen reports the current queue depth
func (r *Recorder) QueueLen() int {
	return r.queue.Len()
}

// LastError returns the most recent segment-level error, if any. Such errors
// are recovered by rotation, so a non-nil value does not mean recording has
// stopped.
func (r *Recorder) LastError() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.lastErr
}

func (r *Recorder) recordError(err error) {
	r.errMu.Lock()
	r.lastErr = err
	r.errMu.Unlock()
}
