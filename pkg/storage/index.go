package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const indexFile = "index.json"

// SegmentRecord describes one finished segment file
type SegmentRecord struct {
	Path      string    `json:"path"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Frames    int       `json:"frames"`
	SizeBytes int64     `json:"size_bytes"`
}

// Index is a per-camera journal of completed segments, persisted as JSON in
// the camera directory and reloaded across restarts.
type Index struct {
	mu      sync.Mutex
	dir     string
	records []SegmentRecord
}

// OpenIndex loads the index for a camera directory, creating the directory
// if needed. A missing index file yields an empty index; a corrupt one is
// discarded rather than blocking recording.
func OpenIndex(cameraDir string) (*Index, error) {
	if err := os.MkdirAll(cameraDir, 0755); err != nil {
		return nil, fmt.Errorf("create camera dir %s: %w", cameraDir, err)
	}

	idx := &Index{dir: cameraDir}

	data, err := os.ReadFile(filepath.Join(cameraDir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}

	if err := json.Unmarshal(data, &idx.records); err != nil {
		idx.records = nil
	}
	return idx, nil
}

// Append records a finished segment and persists the index
func (i *Index) Append(rec SegmentRecord) error {
	if info, err := os.Stat(rec.Path); err == nil {
		rec.SizeBytes = info.Size()
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.records = append(i.records, rec)
	return i.persist()
}

// Segments returns a copy of all recorded segments
func (i *Index) Segments() []SegmentRecord {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]SegmentRecord, len(i.records))
	copy(out, i.records)
	return out
}

// Len returns the number of recorded segments
func (i *Index) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.records)
}

// persist writes the journal atomically; callers hold the lock
func (i *Index) persist() error {
	data, err := json.MarshalIndent(i.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	tmp := filepath.Join(i.dir, indexFile+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return os.Rename(tmp, filepath.Join(i.dir, indexFile))
}
