// Package capture wires cameras, recorders and storage into one manager.
package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/video-system/go-cam-recorder/internal/ffmpeg"
	"github.com/video-system/go-cam-recorder/pkg/recorder"
	"github.com/video-system/go-cam-recorder/pkg/source"
	"github.com/video-system/go-cam-recorder/pkg/storage"
)

// Manager owns one recorder pipeline per camera plus the shared storage root
type Manager struct {
	cfg       *Config
	log       *zap.Logger
	sessionID string
	root      string

	mu      sync.RWMutex
	cameras []*camera

	ctx    context.Context
	cancel context.CancelFunc
}

// camera bundles one source with its recorder and segment index
type camera struct {
	name  string
	src   source.Source
	rec   *recorder.Recorder
	index *storage.Index
}

// NewManager creates recorders for all configured cameras. Cameras are
// auto-scanned when none are configured and none are mocked.
func NewManager(cfg *Config, log *zap.Logger) (*Manager, error) {
	ff, err := ffmpeg.New()
	if err != nil {
		return nil, fmt.Errorf("init ffmpeg: %w", err)
	}

	version, err := ff.Version(context.Background())
	if err != nil {
		return nil, fmt.Errorf("get ffmpeg version: %w", err)
	}
	log.Info("ffmpeg ready", zap.String("version", version))

	enc := &recorder.FFmpegEncoder{
		FF:        ff,
		Codec:     cfg.Encode.Codec,
		Preset:    cfg.Encode.Preset,
		Bitrate:   cfg.Encode.Bitrate,
		Timestamp: cfg.Encode.Timestamp,
	}

	return newManager(cfg, ff, enc, log)
}

// newManager is the encoder-injectable constructor used by tests
func newManager(cfg *Config, ff *ffmpeg.FFmpeg, enc recorder.Encoder, log *zap.Logger) (*Manager, error) {
	root, err := storage.Resolve(cfg.Storage.Root, log)
	if err != nil {
		return nil, err
	}
	log.Info("storage root resolved", zap.String("root", root))

	cams := cfg.Cameras
	if len(cams) == 0 && ff != nil {
		cams = scannedCameras(ff, log)
	}
	if len(cams) == 0 {
		return nil, fmt.Errorf("no cameras configured or detected")
	}

	m := &Manager{
		cfg:       cfg,
		log:       log,
		sessionID: uuid.NewString(),
		root:      root,
	}

	for _, cc := range cams {
		cam, err := m.buildCamera(cc, ff, enc)
		if err != nil {
			return nil, fmt.Errorf("camera %s: %w", cc.Name, err)
		}
		m.cameras = append(m.cameras, cam)
		log.Info("camera configured",
			zap.String("camera", cc.Name),
			zap.Bool("mock", cc.Mock),
			zap.String("device", cc.Device))
	}

	log.Info("session created",
		zap.String("session_id", m.sessionID),
		zap.Int("cameras", len(m.cameras)))
	return m, nil
}

func (m *Manager) buildCamera(cc CameraConfig, ff *ffmpeg.FFmpeg, enc recorder.Encoder) (*camera, error) {
	var src source.Source
	if cc.Mock {
		src = source.NewMock(cc.Name, cc.Width, cc.Height, cc.Framerate)
	} else {
		if ff == nil {
			return nil, fmt.Errorf("device capture requires ffmpeg")
		}
		src = source.NewDevice(cc.Name, source.DeviceConfig{
			Device:      cc.Device,
			InputFormat: cc.InputFormat,
			Width:       cc.Width,
			Height:      cc.Height,
			Framerate:   cc.Framerate,
		}, ff, m.log)
	}

	layout := storage.NewLayout(m.root, cc.Name)
	index, err := storage.OpenIndex(layout.CameraDir())
	if err != nil {
		return nil, err
	}

	rec := recorder.New(cc.Name, src, enc, layout, recorder.Config{
		TargetFPS:     m.cfg.Record.TargetFPS,
		SplitInterval: m.cfg.Record.SplitInterval,
		QueueSize:     m.cfg.Record.QueueSize,
	}, m.log)

	name := cc.Name
	rec.OnSegment(func(info recorder.SegmentInfo) {
		if err := index.Append(storage.SegmentRecord{
			Path:      info.Path,
			StartTime: info.Start,
			EndTime:   info.End,
			Frames:    info.Frames,
		}); err != nil {
			m.log.Warn("index append failed",
				zap.String("camera", name), zap.Error(err))
		}
	})

	return &camera{name: cc.Name, src: src, rec: rec, index: index}, nil
}

// scannedCameras probes local devices, following the first three found
func scannedCameras(ff *ffmpeg.FFmpeg, log *zap.Logger) []CameraConfig {
	devices := source.Scan(context.Background(), ff)
	if len(devices) > 3 {
		devices = devices[:3]
	}

	var cams []CameraConfig
	for i, d := range devices {
		fps := d.Framerate
		if fps <= 0 {
			fps = 30
		}
		cams = append(cams, CameraConfig{
			Name:      fmt.Sprintf("camera_%d", i),
			Device:    d.Path,
			Width:     d.Width,
			Height:    d.Height,
			Framerate: fps,
		})
		log.Info("camera detected", zap.String("device", d.Path),
			zap.Int("width", d.Width), zap.Int("height", d.Height))
	}
	return cams
}

// Start launches all sources and recorders. A camera that fails to start is
// logged and skipped; the rest keep recording.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	m.ctx, m.cancel = context.WithCancel(ctx)
	ctx = m.ctx
	m.mu.Unlock()

	for _, cam := range m.cameras {
		if err := cam.src.Start(ctx); err != nil {
			m.log.Error("source start failed",
				zap.String("camera", cam.name), zap.Error(err))
			continue
		}
		if err := cam.rec.Start(ctx); err != nil {
			m.log.Error("recorder start failed",
				zap.String("camera", cam.name), zap.Error(err))
		}
	}

	m.log.Info("recording started", zap.Int("cameras", len(m.cameras)))
	return nil
}

// Stop drains and closes every pipeline, then releases the devices
func (m *Manager) Stop() {
	for _, cam := range m.cameras {
		cam.rec.Stop()
	}
	for _, cam := range m.cameras {
		cam.src.Stop()
	}

	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	m.log.Info("all recorders stopped")
}

// Wait blocks until the manager context is cancelled
func (m *Manager) Wait() {
	m.mu.RLock()
	ctx := m.ctx
	m.mu.RUnlock()
	if ctx != nil {
		<-ctx.Done()
	}
}

// SessionID returns the identifier minted for this run
func (m *Manager) SessionID() string {
	return m.sessionID
}

// StorageRoot returns the resolved recordings root
func (m *Manager) StorageRoot() string {
	return m.root
}

// CameraStatus is the externally visible state of one pipeline
type CameraStatus struct {
	Name       string  `json:"name"`
	State      string  `json:"state"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	QueueDepth int     `json:"queue_depth"`
	Segments   int     `json:"segments"`
	LastError  string  `json:"last_error,omitempty"`
}

// Statuses reports all camera pipelines
func (m *Manager) Statuses() []CameraStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]CameraStatus, 0, len(m.cameras))
	for _, cam := range m.cameras {
		st := CameraStatus{
			Name:       cam.name,
			State:      cam.rec.State().String(),
			Width:      cam.src.Width(),
			Height:     cam.src.Height(),
			FPS:        cam.src.FPS(),
			QueueDepth: cam.rec.QueueLen(),
			Segments:   cam.index.Len(),
		}
		if err := cam.rec.LastError(); err != nil {
			st.LastError = err.Error()
		}
		out = append(out, st)
	}
	return out
}

// Segments returns the finished segments for one camera
func (m *Manager) Segments(name string) ([]storage.SegmentRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, cam := range m.cameras {
		if cam.name == name {
			return cam.index.Segments(), true
		}
	}
	return nil, false
}

// IsRecording reports whether any pipeline is streaming
func (m *Manager) IsRecording() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, cam := range m.cameras {
		switch cam.rec.State() {
		case recorder.StateStreaming, recorder.StateRotating:
			return true
		}
	}
	return false
}

// GetError returns the first recorder error, or nil
func (m *Manager) GetError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, cam := range m.cameras {
		if err := cam.rec.LastError(); err != nil {
			return err
		}
	}
	return nil
}
