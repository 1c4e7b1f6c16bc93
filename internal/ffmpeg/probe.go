package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ProbeResult holds probe output
type ProbeResult struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

// ProbeFormat holds format-level information
type ProbeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// ProbeStream holds stream-level information
type ProbeStream struct {
	Index        int    `json:"index"`
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"` // video, audio
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	PixFmt       string `json:"pix_fmt,omitempty"`
	FrameRate    string `json:"r_frame_rate,omitempty"`
	AvgFrameRate string `json:"avg_frame_rate,omitempty"`
	Duration     string `json:"duration,omitempty"`
}

// Probe analyzes a file or device and returns metadata
func (f *FFmpeg) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(ctx, f.probePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	return &result, nil
}

// VideoInfo is the simplified shape of the first video stream
type VideoInfo struct {
	Width     int
	Height    int
	Framerate float64
	Codec     string
	PixelFmt  string
	Duration  float64
}

// GetVideoInfo probes a path and extracts the first video stream
func (f *FFmpeg) GetVideoInfo(ctx context.Context, path string) (*VideoInfo, error) {
	probe, err := f.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	for _, s := range probe.Streams {
		if s.CodecType != "video" {
			continue
		}
		info := &VideoInfo{
			Width:    s.Width,
			Height:   s.Height,
			Codec:    s.CodecName,
			PixelFmt: s.PixFmt,
		}
		info.Framerate = parseFramerate(s.AvgFrameRate)
		if info.Framerate == 0 {
			info.Framerate = parseFramerate(s.FrameRate)
		}
		if probe.Format.Duration != "" {
			info.Duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)
		}
		return info, nil
	}

	return nil, fmt.Errorf("no video stream in %s", path)
}

// parseFramerate converts "30000/1001" or "30" to a float
func parseFramerate(s string) float64 {
	if s == "" || s == "0/0" {
		return 0
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		return n / d
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
