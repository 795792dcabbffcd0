package hotkey

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		in      string
		want    Spec
		wantErr bool
	}{
		{"ctrl+shift+space", Spec{Ctrl: true, Shift: true, Key: "space"}, false},
		{" Ctrl + Alt + F9 ", Spec{Ctrl: true, Alt: true, Key: "f9"}, false},
		{"shift+d", Spec{Shift: true, Key: "d"}, false},
		{"rightctrl", Spec{Key: "rightctrl"}, false},
		{"f12", Spec{Key: "f12"}, false},
		{"space", Spec{}, true},
		{"ctrl+rightctrl", Spec{}, true},
		{"ctrl+f13", Spec{}, true},
		{"ctrl+f01", Spec{}, true},
		{"space+ctrl", Spec{}, true},
		{"", Spec{}, true},
	}
	for _, tt := range tests {
		got, err := ParseSpec(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSpec(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSpec(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
	if s := (Spec{Ctrl: true, Shift: true, Key: "space"}).String(); s != Default {
		t.Errorf("String() = %q", s)
	}
}

type edgeRecorder struct {
	mu    sync.Mutex
	edges []string
	seen  chan struct{}
}

func (r *edgeRecorder) add(e string) {
	r.mu.Lock()
	r.edges = append(r.edges, e)
	r.mu.Unlock()
	r.seen <- struct{}{}
}

func (r *edgeRecorder) Press()   { r.add("press") }
func (r *edgeRecorder) Release() { r.add("release") }

func TestForwardOrdersEdges(t *testing.T) {
	hk := NewFake()
	rec := &edgeRecorder{seen: make(chan struct{}, 16)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Forward(ctx, hk, rec) }()

	wait := func() {
		select {
		case <-rec.seen:
		case <-time.After(2 * time.Second):
			t.Fatal("edge not forwarded")
		}
	}
	// keyup queued before keydown must still be delivered after it
	hk.SimKeyup()
	hk.SimKeydown()
	wait()
	wait()
	hk.SimKeydown()
	wait()
	cancel()
	wait() // release on shutdown while held
	<-done

	want := []string{"press", "release", "press", "release"}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.edges) != len(want) {
		t.Fatalf("edges = %v, want %v", rec.edges, want)
	}
	for i := range want {
		if rec.edges[i] != want[i] {
			t.Fatalf("edges = %v, want %v", rec.edges, want)
		}
	}
}
