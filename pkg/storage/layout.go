package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Layout derives segment paths as root/<camera>/<YYYY-MM-DD>/<HH-MM-SS>.<ext>
type Layout struct {
	Root   string
	Camera string
	Ext    string // without dot, default mp4
}

// NewLayout creates a path layout for one camera
func NewLayout(root, camera string) *Layout {
	return &Layout{Root: root, Camera: camera, Ext: "mp4"}
}

// SegmentPath returns the output path for a segment starting at t, creating
// the dated directory. Failure here is a storage error, fatal to persisting.
func (l *Layout) SegmentPath(t time.Time) (string, error) {
	dir := filepath.Join(l.Root, l.Camera, t.Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create segment dir %s: %w", dir, err)
	}

	ext := l.Ext
	if ext == "" {
		ext = "mp4"
	}

	// A reopen within the same second (encoder failure recovery) must not
	// overwrite the abandoned file.
	base := t.Format("15-04-05")
	path := filepath.Join(dir, base+"."+ext)
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.%s", base, n, ext))
	}
}

// CameraDir returns the camera's directory under the root
func (l *Layout) CameraDir() string {
	return filepath.Join(l.Root, l.Camera)
}
