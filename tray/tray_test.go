package tray

import (
	"bytes"
	"image/png"
	"sync"
	"testing"

	"ptt/session"
)

type fakeUI struct {
	mu       sync.Mutex
	icons    [][]byte
	titles   []string
	tooltips []string
}

func (f *fakeUI) SetIcon(b []byte) {
	f.mu.Lock()
	f.icons = append(f.icons, b)
	f.mu.Unlock()
}

func (f *fakeUI) SetTitle(s string) {
	f.mu.Lock()
	f.titles = append(f.titles, s)
	f.mu.Unlock()
}

func (f *fakeUI) SetTooltip(s string) {
	f.mu.Lock()
	f.tooltips = append(f.tooltips, s)
	f.mu.Unlock()
}

func (f *fakeUI) last() (icon []byte, title, tooltip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.titles) == 0 {
		return nil, "", ""
	}
	return f.icons[len(f.icons)-1], f.titles[len(f.titles)-1], f.tooltips[len(f.tooltips)-1]
}

func TestTitles(t *testing.T) {
	tests := map[session.State]string{
		session.Idle:       "Push-to-Talk (idle)",
		session.Recording:  "PTT — RECORDING",
		session.Processing: "PTT — PROCESSING",
	}
	for s, want := range tests {
		if got := Title(s); got != want {
			t.Errorf("Title(%s) = %q, want %q", s, got, want)
		}
	}
}

func TestIconsAreDistinctPNGs(t *testing.T) {
	icons := [][]byte{Icon(session.Idle), Icon(session.Recording), Icon(session.Processing)}
	for i, b := range icons {
		img, err := png.Decode(bytes.NewReader(b))
		if err != nil {
			t.Fatalf("icon %d: %v", i, err)
		}
		if img.Bounds().Dx() != 44 {
			t.Errorf("icon %d width = %d", i, img.Bounds().Dx())
		}
		for j := i + 1; j < len(icons); j++ {
			if bytes.Equal(b, icons[j]) {
				t.Errorf("icons %d and %d are identical", i, j)
			}
		}
	}
}

func TestEventsBeforeReadyAreReplayed(t *testing.T) {
	ui := &fakeUI{}
	tr := newTray(ui)

	tr.HandleEvent(session.Event{Kind: session.EventState, State: session.Recording})
	tr.HandleEvent(session.Event{Kind: session.EventLabel, Label: "Untitled - Notepad"})
	if _, title, _ := ui.last(); title != "" {
		t.Fatalf("ui touched before ready: %q", title)
	}

	tr.markReady()
	icon, title, tip := ui.last()
	if title != "PTT — RECORDING" || tip != "PTT — RECORDING: Untitled - Notepad" {
		t.Errorf("title %q tooltip %q", title, tip)
	}
	if !bytes.Equal(icon, iconRecording) {
		t.Error("expected red icon")
	}
}

func TestFollowsStates(t *testing.T) {
	ui := &fakeUI{}
	tr := newTray(ui)
	tr.markReady()

	for _, s := range []session.State{session.Recording, session.Processing, session.Idle} {
		tr.HandleEvent(session.Event{Kind: session.EventState, State: s})
		icon, title, tip := ui.last()
		if title != Title(s) || !bytes.Equal(icon, Icon(s)) {
			t.Errorf("after %s: title %q", s, title)
		}
		if s == session.Idle && tip != "Push-to-Talk (idle)" {
			t.Errorf("idle tooltip = %q", tip)
		}
	}
	if tr.State() != session.Idle {
		t.Errorf("State() = %s", tr.State())
	}
}

func TestQuitIsIdempotent(t *testing.T) {
	tr := newTray(&fakeUI{})
	tr.Quit()
	tr.Quit()
	select {
	case <-tr.Done():
	default:
		t.Fatal("Done not closed")
	}
}
