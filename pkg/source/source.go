// Package source provides camera frame sources. A Source runs its own
// acquisition loop and exposes only the most recent successfully decoded
// frame; Read never blocks and never queues.
package source

import "context"

// Source is a camera-like frame producer
type Source interface {
	// Name identifies the camera for paths and logs
	Name() string

	// Geometry and nominal rate of produced frames
	Width() int
	Height() int
	FPS() float64

	// Start launches the acquisition loop. Idempotent behavior is not
	// required; callers start a source exactly once.
	Start(ctx context.Context) error

	// Stop halts acquisition and releases the device
	Stop()

	// Read returns a copy of the latest frame, or false if none is
	// available yet. Non-blocking.
	Read() (*Frame, bool)
}
