// Package session owns the push-to-talk lifecycle: one recording at a time,
// moving Idle → Recording → Processing → Idle as hotkey edges, captured audio
// and transcription results arrive from independent goroutines.
package session

import (
	"time"

	"ptt/encoder"
	"ptt/window"
)

type State int

const (
	Idle State = iota
	Recording
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	}
	return "unknown"
}

// Session is the in-flight recording. Its target is fixed at press time.
type Session struct {
	ID      string
	Epoch   uint64
	Target  window.Target
	Started time.Time
}

// Snapshot is the frozen audio of one session, owned by its worker.
type Snapshot struct {
	Epoch   uint64
	Frames  [][]float32
	Samples int
}

func (s Snapshot) Empty() bool { return s.Samples == 0 }

func (s Snapshot) Duration() time.Duration {
	return time.Duration(s.Samples) * time.Second / encoder.SampleRate
}
