// Package storage resolves where recordings land on disk and keeps a
// per-camera index of finished segment files.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
)

// recordingsDir is appended to whichever root is resolved
const recordingsDir = "Recordings"

// Resolve returns a writable recordings root. An explicitly configured root
// wins; otherwise removable media mount points are scanned and the user's
// home directory is the fallback. The returned directory exists on success.
func Resolve(configured string, log *zap.Logger) (string, error) {
	if configured != "" {
		if err := ensureDir(configured); err != nil {
			return "", fmt.Errorf("storage root %s: %w", configured, err)
		}
		return configured, nil
	}

	if runtime.GOOS == "linux" {
		if root, ok := removableRoot(); ok {
			if err := ensureDir(root); err == nil {
				log.Info("recording to removable media", zap.String("root", root))
				return root, nil
			}
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	root := filepath.Join(home, recordingsDir)
	if err := ensureDir(root); err != nil {
		return "", fmt.Errorf("storage root %s: %w", root, err)
	}
	return root, nil
}

// removableRoot looks for the first writable mount under the usual Linux
// media paths.
func removableRoot() (string, bool) {
	bases := []string{"/media/" + os.Getenv("USER"), "/mnt"}
	for _, base := range bases {
		mounts, err := os.ReadDir(base)
		if err != nil {
			continue
		}
		for _, m := range mounts {
			if !m.IsDir() {
				continue
			}
			full := filepath.Join(base, m.Name())
			if isWritable(full) {
				return filepath.Join(full, recordingsDir), true
			}
		}
	}
	return "", false
}

func isWritable(dir string) bool {
	probe, err := os.CreateTemp(dir, ".camrec_*")
	if err != nil {
		return false
	}
	probe.Close()
	os.Remove(probe.Name())
	return true
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
