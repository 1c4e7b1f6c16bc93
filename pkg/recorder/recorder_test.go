package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/video-system/go-cam-recorder/pkg/source"
)

func newTestRecorder(t *testing.T, cfg Config, enc Encoder) (*Recorder, *source.Mock) {
	t.Helper()
	src := source.NewMock("cam0", 8, 8, 60)
	rec := New("cam0", src, enc, &stubNamer{}, cfg, zap.NewNop())
	return rec, src
}

func TestRecorderStartIdempotent(t *testing.T) {
	enc := newMemEncoder()
	rec, src := newTestRecorder(t, Config{SplitInterval: time.Hour}, enc)

	require.NoError(t, src.Start(context.Background()))
	defer src.Stop()

	require.NoError(t, rec.Start(context.Background()))
	require.NoError(t, rec.Start(context.Background()), "second Start must be a no-op")
	rec.Stop()
	rec.Stop() // idempotent as well
}

func TestRecorderDrainOnStop(t *testing.T) {
	enc := newMemEncoder()
	rec, src := newTestRecorder(t, Config{SplitInterval: time.Hour}, enc)

	require.NoError(t, src.Start(context.Background()))
	defer src.Stop()
	require.NoError(t, rec.Start(context.Background()))

	require.Eventually(t, func() bool { return rec.State() == StateStreaming },
		2*time.Second, 5*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	rec.Stop()

	assert.Equal(t, 0, rec.QueueLen(), "queue must be empty after Stop")
	assert.Equal(t, StateStopped, rec.State())

	sinks := enc.snapshot()
	require.NotEmpty(t, sinks)
	for i, s := range sinks {
		assert.True(t, s.isClosed(), "sink %d still open after Stop", i)
	}
}

func TestRecorderRotationProducesSegments(t *testing.T) {
	enc := newMemEncoder()
	cfg := Config{
		TargetFPS:     30,
		SplitInterval: 400 * time.Millisecond,
	}
	rec, src := newTestRecorder(t, cfg, enc)

	require.NoError(t, src.Start(context.Background()))
	defer src.Stop()

	var segments []SegmentInfo
	rec.OnSegment(func(info SegmentInfo) { segments = append(segments, info) })

	require.NoError(t, rec.Start(context.Background()))
	time.Sleep(1100 * time.Millisecond)
	rec.Stop()

	// ~2 full rotations plus the final partial segment
	require.GreaterOrEqual(t, len(segments), 2)
	require.LessOrEqual(t, len(segments), 4)

	// Complete segments carry roughly split_interval * fps frames
	full := segments[0]
	assert.InDelta(t, 12, full.Frames, 6, "a 400ms segment at 30fps holds ~12 frames")
	assert.True(t, full.End.After(full.Start))
}

func TestRecorderFramesInCaptureOrder(t *testing.T) {
	enc := newMemEncoder()
	rec, src := newTestRecorder(t, Config{TargetFPS: 30, SplitInterval: time.Hour}, enc)

	require.NoError(t, src.Start(context.Background()))
	defer src.Stop()
	require.NoError(t, rec.Start(context.Background()))
	time.Sleep(600 * time.Millisecond)
	rec.Stop()

	sinks := enc.snapshot()
	require.Len(t, sinks, 1)
	require.Greater(t, sinks[0].frameCount(), 5)

	// Sequence numbers embedded by the mock must be non-decreasing: the
	// driver may duplicate or skip, but never reorder.
	var prev uint64
	for i := 0; i < sinks[0].frameCount(); i++ {
		seq := source.FrameSeq(sinks[0].frameAt(i))
		assert.GreaterOrEqual(t, seq, prev, "frame %d out of order", i)
		prev = seq
	}
	assert.Greater(t, prev, uint64(1), "later frames should carry advanced sequences")
}

func TestRecorderSurvivesEncoderFailure(t *testing.T) {
	enc := newMemEncoder()
	enc.failSink[0] = true
	rec, src := newTestRecorder(t, Config{TargetFPS: 50, SplitInterval: time.Hour, OpenRetryDelay: 10 * time.Millisecond}, enc)

	require.NoError(t, src.Start(context.Background()))
	defer src.Stop()
	require.NoError(t, rec.Start(context.Background()))

	require.Eventually(t, func() bool {
		sinks := enc.snapshot()
		return len(sinks) >= 2 && sinks[1].frameCount() > 0
	}, 3*time.Second, 10*time.Millisecond, "recorder must rotate to a fresh segment after pipe failure")

	assert.ErrorIs(t, rec.LastError(), ErrEncoderPipe)

	rec.Stop()
	assert.Equal(t, StateStopped, rec.State())
}

func TestRecorderNeverOpensWithoutFrames(t *testing.T) {
	enc := newMemEncoder()
	// Source is constructed but never started: Read always reports absent
	src := source.NewMock("dead", 8, 8, 30)
	rec := New("dead", src, enc, &stubNamer{}, Config{SplitInterval: time.Hour}, zap.NewNop())

	require.NoError(t, rec.Start(context.Background()))
	time.Sleep(200 * time.Millisecond)
	rec.Stop()

	assert.Empty(t, enc.snapshot(), "a camera that never produces a frame yields no segment")
}
