// Package tray shows the session state as a coloured status icon.
package tray

import (
	"sync"

	"ptt/session"
)

func Title(s session.State) string {
	switch s {
	case session.Recording:
		return "PTT — RECORDING"
	case session.Processing:
		return "PTT — PROCESSING"
	}
	return "Push-to-Talk (idle)"
}

func Icon(s session.State) []byte {
	switch s {
	case session.Recording:
		return iconRecording
	case session.Processing:
		return iconProcessing
	}
	return iconIdle
}

type surface interface {
	SetIcon([]byte)
	SetTitle(string)
	SetTooltip(string)
}

// Tray is a session.Sink. Updates received before the icon is ready are
// kept and applied once it is.
type Tray struct {
	mu    sync.Mutex
	ui    surface
	ready bool
	state session.State
	label string

	quit      chan struct{}
	closeOnce sync.Once
}

func newTray(ui surface) *Tray {
	return &Tray{ui: ui, quit: make(chan struct{})}
}

func (t *Tray) HandleEvent(e session.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e.Kind {
	case session.EventState:
		t.state = e.State
		if e.State == session.Idle {
			t.label = ""
		}
	case session.EventLabel, session.EventTarget:
		t.label = e.Label
	}
	if t.ready {
		t.apply()
	}
}

func (t *Tray) apply() {
	title := Title(t.state)
	t.ui.SetIcon(Icon(t.state))
	t.ui.SetTitle(title)
	if t.label != "" && t.state != session.Idle {
		title += ": " + t.label
	}
	t.ui.SetTooltip(title)
}

func (t *Tray) markReady() {
	t.mu.Lock()
	t.ready = true
	t.apply()
	t.mu.Unlock()
}

func (t *Tray) State() session.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done is closed when the user picks Exit or Quit is called.
func (t *Tray) Done() <-chan struct{} { return t.quit }

func (t *Tray) Quit() {
	t.closeOnce.Do(func() { close(t.quit) })
}
