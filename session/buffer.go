package session

import "sync"

// Buffer accumulates captured frames for exactly one session epoch.
// Append is called from the capture callback and never blocks on anything
// but the buffer's own short critical section.
type Buffer struct {
	mu      sync.Mutex
	epoch   uint64
	open    bool
	frames  [][]float32
	samples int
}

// Open clears the buffer and starts accepting frames for epoch.
func (b *Buffer) Open(epoch uint64) {
	b.mu.Lock()
	b.epoch = epoch
	b.open = true
	b.frames = nil
	b.samples = 0
	b.mu.Unlock()
}

// Append copies frame into the buffer if it is open for epoch and reports
// whether it was accepted.
func (b *Buffer) Append(epoch uint64, frame []float32) bool {
	if len(frame) == 0 {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open || epoch != b.epoch {
		return false
	}
	b.frames = append(b.frames, append([]float32(nil), frame...))
	b.samples += len(frame)
	return true
}

// Snapshot closes the buffer and hands its frames over. Nothing else keeps a
// reference to them, so the caller owns the result outright.
func (b *Buffer) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := Snapshot{Epoch: b.epoch, Frames: b.frames, Samples: b.samples}
	b.open = false
	b.frames = nil
	b.samples = 0
	return s
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.samples
}
