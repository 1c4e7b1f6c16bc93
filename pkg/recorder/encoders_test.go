package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// memEncoder is an in-memory Encoder recording every sink it opens. Write
// and open failures can be injected per segment index.
type memEncoder struct {
	mu       sync.Mutex
	sinks    []*memSink
	openErrs map[int]error // open attempt index -> error
	failSink map[int]bool  // sink index -> writes fail after first frame
	opens    int
}

func newMemEncoder() *memEncoder {
	return &memEncoder{
		openErrs: make(map[int]error),
		failSink: make(map[int]bool),
	}
}

func (e *memEncoder) Open(_ context.Context, path string, width, height int, fps float64) (SegmentSink, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	attempt := e.opens
	e.opens++
	if err, ok := e.openErrs[attempt]; ok {
		return nil, err
	}

	s := &memSink{path: path, failWrites: e.failSink[len(e.sinks)]}
	e.sinks = append(e.sinks, s)
	return s, nil
}

func (e *memEncoder) snapshot() []*memSink {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*memSink, len(e.sinks))
	copy(out, e.sinks)
	return out
}

func (e *memEncoder) openAttempts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opens
}

type memSink struct {
	mu         sync.Mutex
	path       string
	frames     [][]byte
	closed     bool
	failWrites bool
}

func (s *memSink) Write(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: sink closed", ErrEncoderPipe)
	}
	if s.failWrites && len(s.frames) >= 1 {
		return fmt.Errorf("%w: injected failure", ErrEncoderPipe)
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	s.frames = append(s.frames, cp)
	return nil
}

func (s *memSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memSink) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *memSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *memSink) frameAt(i int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[i]
}

// stubNamer hands out numbered paths without touching the filesystem
type stubNamer struct {
	mu sync.Mutex
	n  int
}

func (n *stubNamer) SegmentPath(t time.Time) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.n++
	return fmt.Sprintf("seg-%03d.mp4", n.n), nil
}
