package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/video-system/go-cam-recorder/pkg/capture"
	"github.com/video-system/go-cam-recorder/pkg/storage"
)

type fakeManager struct {
	recording bool
	err       error
	statuses  []capture.CameraStatus
	segments  map[string][]storage.SegmentRecord
}

func (f *fakeManager) SessionID() string   { return "test-session" }
func (f *fakeManager) StorageRoot() string { return "/tmp/recordings" }
func (f *fakeManager) IsRecording() bool   { return f.recording }
func (f *fakeManager) GetError() error     { return f.err }

func (f *fakeManager) Statuses() []capture.CameraStatus { return f.statuses }

func (f *fakeManager) Segments(name string) ([]storage.SegmentRecord, bool) {
	segs, ok := f.segments[name]
	return segs, ok
}

func newTestServer(m *fakeManager) *Server {
	return NewServer(ServerConfig{Host: "127.0.0.1", Port: 0, Manager: m}, zap.NewNop())
}

func doGet(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeManager{})

	w, body := doGet(t, s, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestStatus(t *testing.T) {
	m := &fakeManager{
		recording: true,
		statuses: []capture.CameraStatus{
			{Name: "camera_0", State: "streaming"},
			{Name: "camera_1", State: "streaming"},
		},
	}
	s := newTestServer(m)

	w, body := doGet(t, s, "/api/v1/status")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test-session", body["session_id"])
	assert.Equal(t, true, body["recording"])
	assert.Equal(t, float64(2), body["cameras"])
	assert.NotContains(t, body, "last_error")
}

func TestStatusReportsError(t *testing.T) {
	s := newTestServer(&fakeManager{err: errors.New("encoder gone")})

	_, body := doGet(t, s, "/api/v1/status")
	assert.Equal(t, "encoder gone", body["last_error"])
}

func TestCameras(t *testing.T) {
	m := &fakeManager{
		statuses: []capture.CameraStatus{
			{Name: "front", State: "streaming", Width: 1280, Height: 720, FPS: 30},
		},
	}
	s := newTestServer(m)

	w, body := doGet(t, s, "/api/v1/cameras")
	assert.Equal(t, http.StatusOK, w.Code)

	cams, ok := body["cameras"].([]any)
	require.True(t, ok)
	require.Len(t, cams, 1)
	cam := cams[0].(map[string]any)
	assert.Equal(t, "front", cam["name"])
	assert.Equal(t, float64(1280), cam["width"])
}

func TestSegments(t *testing.T) {
	now := time.Now()
	m := &fakeManager{
		segments: map[string][]storage.SegmentRecord{
			"front": {
				{Path: "/tmp/front/2026-08-30/10-00-00.mp4", StartTime: now, EndTime: now.Add(5 * time.Minute), Frames: 9000},
			},
		},
	}
	s := newTestServer(m)

	w, body := doGet(t, s, "/api/v1/cameras/front/segments")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "front", body["camera"])
	assert.Equal(t, float64(1), body["count"])
}

func TestSegmentsUnknownCamera(t *testing.T) {
	s := newTestServer(&fakeManager{segments: map[string][]storage.SegmentRecord{}})

	w, body := doGet(t, s, "/api/v1/cameras/nope/segments")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, body["error"], "nope")
}
