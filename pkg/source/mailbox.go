package source

import "sync"

// Mailbox is a single-slot latest-frame holder. The capture goroutine
// overwrites the slot under lock; readers always receive an independent copy
// and never a reference into the mutable slot. There is no queueing: a Put
// before the previous frame was read simply replaces it.
type Mailbox struct {
	mu    sync.Mutex
	frame *Frame
}

// Put stores a frame, taking ownership of it. Any unread frame is replaced.
func (m *Mailbox) Put(f *Frame) {
	m.mu.Lock()
	m.frame = f
	m.mu.Unlock()
}

// Get returns a copy of the most recent frame, or false if no frame has been
// stored yet.
func (m *Mailbox) Get() (*Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frame == nil {
		return nil, false
	}
	return m.frame.Clone(), true
}

// Clear drops the stored frame
func (m *Mailbox) Clear() {
	m.mu.Lock()
	m.frame = nil
	m.mu.Unlock()
}
