package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"
)

// CaptureConfig holds configuration for a device capture process
type CaptureConfig struct {
	Device      string  // /dev/video0, "0", rtsp://...
	InputFormat string  // v4l2, avfoundation, dshow; empty = auto-detect
	Width       int
	Height      int
	Framerate   float64
	PixelFormat string // raw output format, default rgb24
}

// CaptureProcess is a running FFmpeg process emitting raw frames on stdout
type CaptureProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	done   chan error

	stopOnce sync.Once
	stopErr  error
}

// StartCapture launches FFmpeg reading a capture device and writing raw
// frames of the requested geometry to stdout. The caller reads exactly
// Width*Height*3 bytes per frame.
func (f *FFmpeg) StartCapture(ctx context.Context, cfg CaptureConfig) (*CaptureProcess, error) {
	if cfg.PixelFormat == "" {
		cfg.PixelFormat = "rgb24"
	}

	args := []string{"-loglevel", "error"}
	if cfg.InputFormat != "" {
		args = append(args, "-f", cfg.InputFormat)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
	}
	if cfg.Framerate > 0 {
		args = append(args, "-framerate", fmt.Sprintf("%.3f", cfg.Framerate))
	}
	args = append(args,
		"-i", cfg.Device,
		"-an",
		"-f", "rawvideo",
		"-pix_fmt", cfg.PixelFormat,
	)
	if cfg.Width > 0 && cfg.Height > 0 {
		// Force the output geometry so readers can slice the stream into
		// fixed-size frames even when the device negotiates another mode.
		args = append(args, "-s", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
	}
	args = append(args, "pipe:1")

	cmd := exec.CommandContext(ctx, f.binaryPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg capture: %w", err)
	}

	proc := &CaptureProcess{
		cmd:    cmd,
		stdout: stdout,
		done:   make(chan error, 1),
	}

	go func() {
		proc.done <- cmd.Wait()
	}()

	return proc, nil
}

// Stdout returns the raw frame stream
func (cp *CaptureProcess) Stdout() io.ReadCloser {
	return cp.stdout
}

// Stop closes the frame stream and terminates the process, escalating to
// Kill if it ignores the interrupt. Idempotent.
func (cp *CaptureProcess) Stop() error {
	cp.stopOnce.Do(func() { cp.stopErr = cp.stop() })
	return cp.stopErr
}

func (cp *CaptureProcess) stop() error {
	cp.stdout.Close()
	if cp.cmd.Process != nil {
		cp.cmd.Process.Signal(os.Interrupt)
	}

	select {
	case err := <-cp.done:
		return err
	case <-time.After(3 * time.Second):
		cp.cmd.Process.Kill()
		return <-cp.done
	}
}

// DefaultInputFormat returns the capture demuxer for the current OS
func DefaultInputFormat() string {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "v4l2"
	}
}
