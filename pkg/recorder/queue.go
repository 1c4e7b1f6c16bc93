package recorder

import (
	"sync"

	"github.com/video-system/go-cam-recorder/pkg/source"
)

// DefaultQueueSize bounds the frame queue between relay and driver
const DefaultQueueSize = 150

// Queue is a bounded FIFO frame buffer. Push never blocks: when the queue is
// full the incoming frame is dropped, favoring recency over completeness
// (the driver papers over gaps by duplicating the last known frame).
type Queue struct {
	mu      sync.Mutex
	items   []*source.Frame
	max     int
	dropped uint64
}

// NewQueue creates a queue holding at most max frames
func NewQueue(max int) *Queue {
	if max <= 0 {
		max = DefaultQueueSize
	}
	return &Queue{max: max}
}

// Push appends a frame. Returns false if the queue was full and the frame
// was dropped.
func (q *Queue) Push(f *source.Frame) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.max {
		q.dropped++
		return false
	}
	q.items = append(q.items, f)
	return true
}

// Pop removes and returns the oldest frame
func (q *Queue) Pop() (*source.Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	f := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return f, true
}

// Len returns the current queue depth
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns the number of frames dropped on overflow
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
