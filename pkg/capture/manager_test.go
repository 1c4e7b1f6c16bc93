package capture

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/video-system/go-cam-recorder/pkg/recorder"
)

// nullEncoder counts frames instead of launching ffmpeg
type nullEncoder struct {
	mu    sync.Mutex
	opens int
}

type nullSink struct {
	enc    *nullEncoder
	frames int
}

func (e *nullEncoder) Open(_ context.Context, _ string, _, _ int, _ float64) (recorder.SegmentSink, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opens++
	return &nullSink{enc: e}, nil
}

func (e *nullEncoder) openCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opens
}

func (s *nullSink) Write(_ []byte) error { return nil }
func (s *nullSink) Close() error         { return nil }

func testManagerConfig(t *testing.T, cameras int) *Config {
	t.Helper()
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	cfg.Storage.Root = t.TempDir()
	cfg.Record.SplitInterval = time.Hour
	for i := 0; i < cameras; i++ {
		cfg.Cameras = append(cfg.Cameras, CameraConfig{
			Width:     16,
			Height:    12,
			Framerate: 30,
			Mock:      true,
		})
	}
	cfg.applyDefaults()
	return cfg
}

func TestManagerRequiresCameras(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	cfg.Storage.Root = t.TempDir()

	_, err = newManager(cfg, nil, &nullEncoder{}, zap.NewNop())
	assert.Error(t, err)
}

func TestManagerSessionID(t *testing.T) {
	cfg := testManagerConfig(t, 1)

	a, err := newManager(cfg, nil, &nullEncoder{}, zap.NewNop())
	require.NoError(t, err)
	b, err := newManager(cfg, nil, &nullEncoder{}, zap.NewNop())
	require.NoError(t, err)

	assert.NotEmpty(t, a.SessionID())
	assert.NotEqual(t, a.SessionID(), b.SessionID())
}

func TestManagerStartStop(t *testing.T) {
	cfg := testManagerConfig(t, 2)
	enc := &nullEncoder{}

	m, err := newManager(cfg, nil, enc, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, m.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return m.IsRecording()
	}, 3*time.Second, 20*time.Millisecond)

	m.Stop()
	assert.False(t, m.IsRecording())
	assert.GreaterOrEqual(t, enc.openCount(), 2)
	assert.NoError(t, m.GetError())
}

func TestManagerStatuses(t *testing.T) {
	cfg := testManagerConfig(t, 2)

	m, err := newManager(cfg, nil, &nullEncoder{}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	sts := m.Statuses()
	require.Len(t, sts, 2)
	assert.Equal(t, "camera_0", sts[0].Name)
	assert.Equal(t, "camera_1", sts[1].Name)
	assert.Equal(t, 16, sts[0].Width)
	assert.Equal(t, 30.0, sts[0].FPS)
}

func TestManagerSegmentsIndexed(t *testing.T) {
	cfg := testManagerConfig(t, 1)
	cfg.Record.SplitInterval = 300 * time.Millisecond

	m, err := newManager(cfg, nil, &nullEncoder{}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, m.Start(context.Background()))
	time.Sleep(800 * time.Millisecond)
	m.Stop()

	segs, ok := m.Segments("camera_0")
	require.True(t, ok)
	assert.NotEmpty(t, segs)
	for _, s := range segs {
		assert.Contains(t, s.Path, "camera_0")
		assert.False(t, s.EndTime.Before(s.StartTime))
	}

	_, ok = m.Segments("no-such-camera")
	assert.False(t, ok)
}

func TestManagerWaitUnblocksOnStop(t *testing.T) {
	cfg := testManagerConfig(t, 1)

	m, err := newManager(cfg, nil, &nullEncoder{}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		m.Wait()
		close(done)
	}()

	m.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after Stop")
	}
}
