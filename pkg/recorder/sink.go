package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/video-system/go-cam-recorder/internal/ffmpeg"
)

var (
	// ErrEncoderLaunch means the encoder executable is missing or the
	// process exited right after starting.
	ErrEncoderLaunch = errors.New("recorder: encoder launch failed")

	// ErrEncoderPipe means a write reached a dead encoder input stream.
	ErrEncoderPipe = errors.New("recorder: encoder pipe closed")
)

// Encoder opens one SegmentSink per output file
type Encoder interface {
	Open(ctx context.Context, path string, width, height int, fps float64) (SegmentSink, error)
}

// SegmentSink receives one segment's raw frames. Close finalizes the file
// and must be called on every exit path.
type SegmentSink interface {
	Write(frame []byte) error
	Close() error
}

// SegmentNamer derives the output path for a segment opened at t, creating
// parent directories as needed.
type SegmentNamer interface {
	SegmentPath(t time.Time) (string, error)
}

// SegmentInfo describes a closed segment
type SegmentInfo struct {
	Path   string
	Start  time.Time
	End    time.Time
	Frames int
}

// FFmpegEncoder adapts the ffmpeg subprocess wrapper to the Encoder
// interface used by the driver.
type FFmpegEncoder struct {
	FF        *ffmpeg.FFmpeg
	Codec     string
	Preset    string
	Bitrate   int
	Timestamp bool
}

// Open launches an encoder process writing to path
func (e *FFmpegEncoder) Open(ctx context.Context, path string, width, height int, fps float64) (SegmentSink, error) {
	codec := e.Codec
	if codec == "" {
		codec = "libx264"
	}
	preset := e.Preset
	if preset == "" {
		preset = "fast"
	}

	proc, err := e.FF.StartEncoder(ctx, ffmpeg.EncoderConfig{
		PixelFormat: "rgb24",
		Width:       width,
		Height:      height,
		Framerate:   fps,
		Codec:       codec,
		Preset:      preset,
		Bitrate:     e.Bitrate,
		Timestamp:   e.Timestamp,
		OutputPath:  path,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoderLaunch, err)
	}
	return &ffmpegSink{proc: proc}, nil
}

type ffmpegSink struct {
	proc *ffmpeg.Process
}

func (s *ffmpegSink) Write(frame []byte) error {
	if _, err := s.proc.Write(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrEncoderPipe, err)
	}
	return nil
}

func (s *ffmpegSink) Close() error {
	return s.proc.Close()
}
