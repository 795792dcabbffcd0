package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"ptt/window"
)

// stateLog is a Notifier that records every notification in order.
type stateLog struct {
	mu      sync.Mutex
	states  []State
	labels  []string
	targets []window.Target
}

func (l *stateLog) SetState(s State) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
}

func (l *stateLog) SetTargetLabel(s string) {
	l.mu.Lock()
	l.labels = append(l.labels, s)
	l.mu.Unlock()
}

func (l *stateLog) SetTarget(t window.Target) {
	l.mu.Lock()
	l.targets = append(l.targets, t)
	l.mu.Unlock()
}

func (l *stateLog) States() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.states...)
}

func (l *stateLog) Labels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.labels...)
}

var legal = map[[2]State]bool{
	{Idle, Recording}:       true,
	{Recording, Processing}: true,
	{Recording, Idle}:       true,
	{Processing, Idle}:      true,
}

// checkTransitions fails if the notified sequence, starting from Idle,
// contains a transition outside the state table.
func checkTransitions(t *testing.T, states []State) {
	t.Helper()
	prev := Idle
	for i, s := range states {
		if !legal[[2]State{prev, s}] {
			t.Fatalf("illegal transition %s → %s at index %d in %v", prev, s, i, states)
		}
		prev = s
	}
}

func equalStates(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitIdle(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("workers did not finish: %v", err)
	}
	if st := c.State(); st != Idle {
		t.Fatalf("state = %s after workers finished, want idle", st)
	}
}

var notepad = window.Target{Handle: 0x1001, Label: "Untitled - Notepad", Rect: window.Rect{Left: 10, Top: 10, Right: 610, Bottom: 410}}

func tone(n int) []float32 {
	f := make([]float32, n)
	for i := range f {
		f[i] = 0.25
	}
	return f
}
