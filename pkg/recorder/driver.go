package recorder

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/video-system/go-cam-recorder/internal/metrics"
	"github.com/video-system/go-cam-recorder/pkg/source"
)

// State of the pacer/driver
type State int32

const (
	StateStarting State = iota // no segment open yet
	StateStreaming             // segment open, writing
	StateRotating              // closing old segment, opening new
	StateStopping              // draining queue, closing final segment
	StateStopped               // terminal
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateStreaming:
		return "streaming"
	case StateRotating:
		return "rotating"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// driver drains the queue and feeds the encoder at a constant wall-clock
// cadence. The encoder requires a fixed input rate; the true arrival rate is
// bursty, so the driver duplicates the last frame to cover stalls and skips
// ahead when arrivals outpace the cadence. It also rotates the output file
// on a timer and reopens a fresh segment after encoder failures.
//
// All cadence state (segStart, framesWritten, last) is owned by the run
// goroutine; only state is observed from outside.
type driver struct {
	camera string
	cfg    Config
	queue  *Queue
	enc    Encoder
	namer  SegmentNamer
	width  int
	height int
	log    *zap.Logger

	now       func() time.Time
	onSegment func(SegmentInfo)
	onError   func(error)

	state atomic.Int32

	ctx           context.Context
	sink          SegmentSink
	segPath       string
	segStart      time.Time
	framesWritten int
	last          *source.Frame
	lastWritten   uint64
}

func newDriver(camera string, cfg Config, q *Queue, enc Encoder, namer SegmentNamer, width, height int, log *zap.Logger) *driver {
	return &driver{
		camera: camera,
		cfg:    cfg,
		queue:  q,
		enc:    enc,
		namer:  namer,
		width:  width,
		height: height,
		log:    log,
		now:    time.Now,
	}
}

func (d *driver) State() State {
	return State(d.state.Load())
}

func (d *driver) setState(s State) {
	d.state.Store(int32(s))
}

// run loops until stop is closed and the queue has been drained. The final
// segment is always closed before returning.
func (d *driver) run(ctx context.Context, stop <-chan struct{}) {
	d.ctx = ctx
	frameInterval := time.Duration(float64(time.Second) / d.cfg.TargetFPS)

	defer d.setState(StateStopped)
	defer d.closeSegment()

	for {
		stopping := false
		select {
		case <-stop:
			stopping = true
			if d.State() != StateStopping {
				d.setState(StateStopping)
				d.log.Debug("draining queue", zap.Int("depth", d.queue.Len()))
			}
		default:
		}

		// Non-blocking drain: at most one frame per iteration so the
		// cadence, not the queue depth, governs output.
		if f, ok := d.queue.Pop(); ok {
			d.last = f
			metrics.QueueDepth.WithLabelValues(d.camera).Set(float64(d.queue.Len()))
		}

		if d.last == nil {
			// Nothing ever received; write nothing.
			if stopping {
				return
			}
			time.Sleep(d.cfg.Tick)
			continue
		}

		if d.sink == nil {
			if err := d.openSegment(); err != nil {
				d.fail("open", err)
				if stopping {
					// Stop must complete even when no encoder can
					// be launched; buffered frames are lost.
					return
				}
				time.Sleep(d.cfg.OpenRetryDelay)
				continue
			}
		}

		elapsed := d.now().Sub(d.segStart)
		expected := int(elapsed / frameInterval)

		// Catch-up by duplication: repeat the latest frame until the
		// wall-clock frame count is satisfied.
		for d.framesWritten < expected {
			if err := d.sink.Write(d.last.Data); err != nil {
				d.fail("write", err)
				d.abandonSegment()
				break
			}
			d.framesWritten++
			metrics.FramesWritten.WithLabelValues(d.camera).Inc()
			if d.last.Seq == d.lastWritten && d.last.Seq != 0 {
				metrics.FramesDuplicated.WithLabelValues(d.camera).Inc()
			}
			d.lastWritten = d.last.Seq
		}

		if d.sink != nil && elapsed > d.cfg.SplitInterval {
			d.setState(StateRotating)
			d.closeSegment()
			// Reopened on the next iteration; openSegment resets the
			// cadence clock.
		}

		if stopping && d.queue.Len() == 0 {
			return
		}

		time.Sleep(d.cfg.Tick)
	}
}

// openSegment derives a path and launches a fresh encoder, resetting all
// cadence counters.
func (d *driver) openSegment() error {
	now := d.now()
	path, err := d.namer.SegmentPath(now)
	if err != nil {
		return err
	}

	sink, err := d.enc.Open(d.ctx, path, d.width, d.height, d.cfg.TargetFPS)
	if err != nil {
		return err
	}

	d.sink = sink
	d.segPath = path
	d.segStart = now
	d.framesWritten = 0
	d.setState(StateStreaming)

	metrics.SegmentsOpened.WithLabelValues(d.camera).Inc()
	d.log.Info("segment opened", zap.String("path", path))
	return nil
}

// closeSegment flushes and finalizes the current segment, if any. Blocks
// until the encoder process has exited so the file is playable.
func (d *driver) closeSegment() {
	if d.sink == nil {
		return
	}

	err := d.sink.Close()
	if err != nil {
		d.log.Warn("segment close", zap.String("path", d.segPath), zap.Error(err))
	}

	metrics.SegmentsClosed.WithLabelValues(d.camera).Inc()
	d.log.Info("segment closed",
		zap.String("path", d.segPath),
		zap.Int("frames", d.framesWritten))

	if d.onSegment != nil {
		d.onSegment(SegmentInfo{
			Path:   d.segPath,
			Start:  d.segStart,
			End:    d.now(),
			Frames: d.framesWritten,
		})
	}
	d.sink = nil
}

// abandonSegment discards a segment whose encoder died mid-write. Close is
// still attempted so a salvageable file gets its trailer; the next iteration
// opens a replacement.
func (d *driver) abandonSegment() {
	if d.sink == nil {
		return
	}
	d.setState(StateRotating)
	d.closeSegment()
}

func (d *driver) fail(kind string, err error) {
	metrics.EncoderFailures.WithLabelValues(d.camera, kind).Inc()
	d.log.Error("encoder failure", zap.String("kind", kind), zap.Error(err))
	if d.onError != nil {
		d.onError(err)
	}
}
