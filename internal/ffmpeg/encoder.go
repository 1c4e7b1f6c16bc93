package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// launchGrace is how long StartEncoder watches the process for an immediate
// exit (missing codec, unwritable path) before handing it to the caller.
const launchGrace = 150 * time.Millisecond

// killGrace is how long a process may outlive a cancelled context before it
// is killed. Close finishes well within this during an orderly shutdown.
const killGrace = 10 * time.Second

// EncoderConfig holds configuration for one segment's encoder process
type EncoderConfig struct {
	// Input geometry. Frames arrive as raw interleaved pixels on stdin.
	PixelFormat string  // rgb24, yuv420p, nv12
	Width       int
	Height      int
	Framerate   float64

	// Encoding
	Codec     string // libx264, h264_nvenc, h264_videotoolbox
	Preset    string // ultrafast, fast, medium
	Bitrate   int    // kbps, 0 = crf default
	Timestamp bool   // burn wall-clock time into each frame

	// Output file for this segment
	OutputPath string
}

// Process represents a running FFmpeg encoder owning one output file.
// Frames are written to stdin; Close finalizes the container.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	done   chan error
	exited chan struct{}

	mu     sync.Mutex
	closed bool
}

// StartEncoder launches an encoder process for a single segment file. It
// returns an error if the process cannot be started or exits within the
// launch grace period.
//
// The process is deliberately not bound to ctx: cancelling the context must
// not kill an encoder that is still flushing its trailer, or the output file
// becomes unplayable. Close owns the normal termination path; a cancelled
// context only reaps the process after killGrace.
func (f *FFmpeg) StartEncoder(ctx context.Context, cfg EncoderConfig) (*Process, error) {
	args := buildEncoderArgs(cfg)

	cmd := exec.Command(f.binaryPath, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("get stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	proc := &Process{
		cmd:    cmd,
		stdin:  stdin,
		done:   make(chan error, 1),
		exited: make(chan struct{}),
	}

	// Wait for process in background
	go func() {
		err := cmd.Wait()
		proc.done <- err
		close(proc.exited)
	}()

	// Backstop for abandoned processes after ctx cancellation
	go func() {
		select {
		case <-proc.exited:
		case <-ctx.Done():
			select {
			case <-proc.exited:
			case <-time.After(killGrace):
				cmd.Process.Kill()
			}
		}
	}()

	// An encoder that dies this fast never accepted input; treat it as a
	// launch failure rather than letting the first Write discover it.
	select {
	case err := <-proc.done:
		return nil, fmt.Errorf("ffmpeg exited during startup: %w", exitErr(err))
	case <-time.After(launchGrace):
	}

	return proc, nil
}

// Write writes raw frame bytes to FFmpeg stdin
func (p *Process) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, fmt.Errorf("encoder stdin already closed")
	}
	return p.stdin.Write(data)
}

// Close closes stdin and waits for FFmpeg to flush and exit. The output file
// is not complete until this returns.
func (p *Process) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.stdin.Close()
	p.mu.Unlock()
	return <-p.done
}

// Kill forcefully terminates the process. The output file is left corrupt;
// only use when Close cannot complete.
func (p *Process) Kill() error {
	return p.cmd.Process.Kill()
}

// Done returns a channel that receives the exit error
func (p *Process) Done() <-chan error {
	return p.done
}

func exitErr(err error) error {
	if err == nil {
		return fmt.Errorf("exit status 0")
	}
	return err
}

// timestampFilter overlays the encode-time wall clock in the frame corner
const timestampFilter = "drawtext=text='%{localtime\\:%Y-%m-%d %T}':x=8:y=8:fontsize=16:fontcolor=white:box=1:boxcolor=black@0.4"

// buildEncoderArgs builds FFmpeg arguments for raw-frames-in, one-file-out
// segment encoding
func buildEncoderArgs(cfg EncoderConfig) []string {
	args := []string{
		"-y", // Overwrite output

		// Raw frame input on stdin
		"-f", "rawvideo",
		"-pix_fmt", cfg.PixelFormat,
		"-s", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-r", fmt.Sprintf("%.3f", cfg.Framerate),
		"-i", "pipe:0",

		// Video encoding
		"-an",
		"-c:v", cfg.Codec,
		"-preset", cfg.Preset,
	}

	if cfg.Bitrate > 0 {
		args = append(args, "-b:v", fmt.Sprintf("%dk", cfg.Bitrate))
	}

	if cfg.Timestamp {
		args = append(args, "-vf", timestampFilter)
	}

	// A finalized, seekable file per segment
	args = append(args,
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		cfg.OutputPath,
	)

	return args
}
