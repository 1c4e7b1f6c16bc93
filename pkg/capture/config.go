package capture

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/video-system/go-cam-recorder/pkg/logger"
)

// Config holds all recorder configuration
type Config struct {
	Storage StorageConfig  `yaml:"storage"`
	Record  RecordConfig   `yaml:"record"`
	Encode  EncodeConfig   `yaml:"encode"`
	Cameras []CameraConfig `yaml:"cameras"`
	API     APIConfig      `yaml:"api"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Log     LogConfig      `yaml:"log"`
}

// StorageConfig configures where recordings land
type StorageConfig struct {
	Root string `yaml:"root"` // empty = auto-detect removable media
}

// RecordConfig configures the per-camera pipeline
type RecordConfig struct {
	SplitInterval time.Duration `yaml:"split_interval"` // file rotation period
	QueueSize     int           `yaml:"queue_size"`     // bounded frame queue
	TargetFPS     float64       `yaml:"target_fps"`     // 0 = follow source
}

// EncodeConfig configures the encoder subprocess
type EncodeConfig struct {
	Codec     string `yaml:"codec"`     // libx264, h264_videotoolbox
	Preset    string `yaml:"preset"`    // ultrafast, fast, medium
	Bitrate   int    `yaml:"bitrate"`   // kbps, 0 = encoder default
	Timestamp bool   `yaml:"timestamp"` // overlay wall-clock time on frames
}

// CameraConfig describes one camera
type CameraConfig struct {
	Name        string  `yaml:"name"`
	Device      string  `yaml:"device"`       // /dev/video0
	InputFormat string  `yaml:"input_format"` // v4l2; empty = platform default
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	Framerate   float64 `yaml:"framerate"`
	Mock        bool    `yaml:"mock"`
}

// APIConfig configures the control API
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Port int `yaml:"port"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string            `yaml:"level"`
	File  logger.FileConfig `yaml:"file"` // empty path = stderr only
}

// overrides are environment knobs layered on top of the file, for container
// deployments that cannot edit the YAML.
type overrides struct {
	StorageRoot   string        `env:"CAMREC_STORAGE_ROOT"`
	SplitInterval time.Duration `env:"CAMREC_SPLIT_INTERVAL"`
	LogLevel      string        `env:"CAMREC_LOG_LEVEL"`
	APIPort       int           `env:"CAMREC_API_PORT"`
	MetricsPort   int           `env:"CAMREC_METRICS_PORT"`
}

// LoadConfig loads configuration from a YAML file, applies environment
// overrides and fills defaults. An empty path yields the default config.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		// Expand environment variables
		data = []byte(os.ExpandEnv(string(data)))

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	var ov overrides
	if err := env.Parse(&ov); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}
	if ov.StorageRoot != "" {
		cfg.Storage.Root = ov.StorageRoot
	}
	if ov.SplitInterval > 0 {
		cfg.Record.SplitInterval = ov.SplitInterval
	}
	if ov.LogLevel != "" {
		cfg.Log.Level = ov.LogLevel
	}
	if ov.APIPort > 0 {
		cfg.API.Port = ov.APIPort
	}
	if ov.MetricsPort > 0 {
		cfg.Metrics.Port = ov.MetricsPort
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Record.SplitInterval == 0 {
		c.Record.SplitInterval = 5 * time.Minute
	}
	if c.Record.QueueSize == 0 {
		c.Record.QueueSize = 150
	}
	if c.Encode.Codec == "" {
		c.Encode.Codec = "libx264"
	}
	if c.Encode.Preset == "" {
		c.Encode.Preset = "fast"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9090
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	for i := range c.Cameras {
		cam := &c.Cameras[i]
		if cam.Name == "" {
			cam.Name = fmt.Sprintf("camera_%d", i)
		}
		if cam.Width == 0 {
			cam.Width = 1280
		}
		if cam.Height == 0 {
			cam.Height = 720
		}
		if cam.Framerate == 0 {
			cam.Framerate = 30
		}
	}
}

// MockCameras returns n synthetic camera configs for running without
// hardware.
func MockCameras(n int) []CameraConfig {
	cams := make([]CameraConfig, n)
	for i := range cams {
		cams[i] = CameraConfig{
			Name:      fmt.Sprintf("camera_%d", i),
			Width:     1280,
			Height:    720,
			Framerate: 30,
			Mock:      true,
		}
	}
	return cams
}
