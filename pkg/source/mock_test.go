package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProducesFrames(t *testing.T) {
	m := NewMock("cam0", 32, 24, 60)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	var f *Frame
	require.Eventually(t, func() bool {
		var ok bool
		f, ok = m.Read()
		return ok
	}, time.Second, 5*time.Millisecond, "no frame produced")

	assert.Equal(t, 32, f.Width)
	assert.Equal(t, 24, f.Height)
	assert.Len(t, f.Data, FrameBytes(32, 24))
	assert.Equal(t, f.Seq, FrameSeq(f.Data))
}

func TestMockSequenceAdvances(t *testing.T) {
	m := NewMock("cam0", 16, 16, 100)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	var first *Frame
	require.Eventually(t, func() bool {
		var ok bool
		first, ok = m.Read()
		return ok
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		f, ok := m.Read()
		return ok && f.Seq > first.Seq
	}, time.Second, time.Millisecond, "sequence did not advance")
}

func TestMockStopHaltsGeneration(t *testing.T) {
	m := NewMock("cam0", 16, 16, 100)
	require.NoError(t, m.Start(context.Background()))

	require.Eventually(t, func() bool {
		_, ok := m.Read()
		return ok
	}, time.Second, time.Millisecond)

	m.Stop()

	f1, _ := m.Read()
	time.Sleep(50 * time.Millisecond)
	f2, _ := m.Read()
	assert.Equal(t, f1.Seq, f2.Seq, "frames generated after Stop")
}
