package source

import "time"

// Frame is one decoded image: raw interleaved RGB bytes plus the geometry it
// was captured at. A Frame handed out of a Source is always an independent
// copy; the pipeline may hold it for as long as it needs.
type Frame struct {
	Data      []byte // len = Width*Height*3
	Width     int
	Height    int
	Seq       uint64
	Timestamp time.Time
}

// FrameBytes returns the buffer size of one raw RGB frame
func FrameBytes(width, height int) int {
	return width * height * 3
}

// Clone returns a deep copy of the frame
func (f *Frame) Clone() *Frame {
	c := *f
	c.Data = make([]byte, len(f.Data))
	copy(c.Data, f.Data)
	return &c
}
