package source

import (
	"context"
	"path/filepath"
	"runtime"
	"time"

	"github.com/video-system/go-cam-recorder/internal/ffmpeg"
)

// DeviceInfo describes a discovered capture device
type DeviceInfo struct {
	Path      string
	Width     int
	Height    int
	Framerate float64
}

// Scan enumerates local video devices and probes each one. Devices that do
// not answer a probe within a short timeout are skipped; on non-Linux
// platforms the glob finds nothing and the result is empty.
func Scan(ctx context.Context, ff *ffmpeg.FFmpeg) []DeviceInfo {
	if runtime.GOOS != "linux" {
		return nil
	}

	paths, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil
	}

	var devices []DeviceInfo
	for _, p := range paths {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		info, err := ff.GetVideoInfo(probeCtx, p)
		cancel()
		if err != nil {
			continue
		}
		devices = append(devices, DeviceInfo{
			Path:      p,
			Width:     info.Width,
			Height:    info.Height,
			Framerate: info.Framerate,
		})
	}
	return devices
}
