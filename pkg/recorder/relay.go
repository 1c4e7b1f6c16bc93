package recorder

import (
	"time"

	"github.com/video-system/go-cam-recorder/internal/metrics"
	"github.com/video-system/go-cam-recorder/pkg/source"
)

// relay bridges the pull-based source into the queue. It polls the latest
// frame at a bounded rate and forwards new frames only; absence of a frame
// is normal and produces no error.
type relay struct {
	camera string
	src    source.Source
	queue  *Queue
	poll   time.Duration

	lastSeq uint64
}

// run loops until stop is closed. Frames are forwarded in capture order; a
// full queue drops the incoming frame without blocking.
func (rl *relay) run(stop <-chan struct{}) {
	ticker := time.NewTicker(rl.poll)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			f, ok := rl.src.Read()
			if !ok || f.Seq == rl.lastSeq {
				continue
			}
			rl.lastSeq = f.Seq

			if rl.queue.Push(f) {
				metrics.FramesRelayed.WithLabelValues(rl.camera).Inc()
			} else {
				metrics.FramesDropped.WithLabelValues(rl.camera).Inc()
			}
			metrics.QueueDepth.WithLabelValues(rl.camera).Set(float64(rl.queue.Len()))
		}
	}
}
