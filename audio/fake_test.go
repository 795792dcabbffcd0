package audio

import (
	"sync"
	"testing"
	"time"
)

func TestFakeCaptureDeliversAllSamples(t *testing.T) {
	src := make([]float32, 3*fakeChunk+17)
	for i := range src {
		src[i] = float32(i%100) / 100
	}
	ctx := NewFakeContextSamples(src, false)
	dev, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	fc := dev.(*FakeCapture)

	var mu sync.Mutex
	var got []float32
	done := fc.AudioDone()
	fc.SetCallback(func(s []float32) {
		mu.Lock()
		got = append(got, s...)
		mu.Unlock()
	})
	if err := fc.Start(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("audio never finished")
	}
	fc.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(got) < len(src) {
		t.Fatalf("got %d samples, want at least %d", len(got), len(src))
	}
	for i := range src {
		if got[i] != src[i] {
			t.Fatalf("sample %d = %f, want %f", i, got[i], src[i])
		}
	}
}

func TestFindDevice(t *testing.T) {
	ctx := NewFakeContextSamples(nil, false)
	d, err := FindDevice(ctx, "FA")
	if err != nil || d == nil || d.Name != "fake" {
		t.Fatalf("FindDevice = %v, %v", d, err)
	}
	if d, err := FindDevice(ctx, ""); d != nil || err != nil {
		t.Errorf("empty name = %v, %v; want default", d, err)
	}
	if _, err := FindDevice(ctx, "usb"); err == nil {
		t.Error("expected error for missing device")
	}
}
