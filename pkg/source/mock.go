package source

import (
	"context"
	"encoding/binary"
	"sync"
	"time"
)

// Mock is a synthetic camera for tests and bring-up without hardware. It
// paints a color cycle so consecutive frames differ, and stamps the frame
// sequence number into the first 8 data bytes so consumers can verify
// ordering and distinctness.
type Mock struct {
	name   string
	width  int
	height int
	fps    float64

	mailbox Mailbox
	seq     uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewMock creates a mock camera source
func NewMock(name string, width, height int, fps float64) *Mock {
	return &Mock{
		name:   name,
		width:  width,
		height: height,
		fps:    fps,
	}
}

func (m *Mock) Name() string { return m.name }

func (m *Mock) Width() int { return m.width }

func (m *Mock) Height() int { return m.height }

func (m *Mock) FPS() float64 { return m.fps }

// Start begins generating frames at the nominal rate
func (m *Mock) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, m.cancel = context.WithCancel(ctx)
	m.stopped = make(chan struct{})

	go m.run(ctx)
	return nil
}

// Stop halts frame generation
func (m *Mock) Stop() {
	m.mu.Lock()
	cancel, stopped := m.cancel, m.stopped
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-stopped
	}
}

// Read returns a copy of the latest generated frame
func (m *Mock) Read() (*Frame, bool) {
	return m.mailbox.Get()
}

func (m *Mock) run(ctx context.Context) {
	defer close(m.stopped)

	interval := time.Duration(float64(time.Second) / m.fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.seq++
			m.mailbox.Put(m.generate(m.seq))
		}
	}
}

// generate paints a full frame whose color depends on the sequence number
func (m *Mock) generate(seq uint64) *Frame {
	data := make([]byte, FrameBytes(m.width, m.height))

	r := byte(seq % 255)
	g := byte((seq * 2) % 255)
	b := byte((seq * 3) % 255)
	for i := 0; i < len(data); i += 3 {
		data[i] = r
		data[i+1] = g
		data[i+2] = b
	}

	binary.BigEndian.PutUint64(data[:8], seq)

	return &Frame{
		Data:      data,
		Width:     m.width,
		Height:    m.height,
		Seq:       seq,
		Timestamp: time.Now(),
	}
}

// FrameSeq extracts the sequence number a Mock stamped into frame data
func FrameSeq(data []byte) uint64 {
	if len(data) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(data[:8])
}
