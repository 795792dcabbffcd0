package typer

import (
	"context"
	"errors"
	"testing"
	"time"
	"unicode"
)

type fakeDevice struct {
	log []string
}

func (d *fakeDevice) mapped(r rune) bool { return r < unicode.MaxASCII }

func (d *fakeDevice) tap(r rune) error {
	d.log = append(d.log, string(r))
	return nil
}

func (d *fakeDevice) paste() error {
	d.log = append(d.log, "<paste>")
	return nil
}

type fakeClipboard struct {
	content string
	writes  []string
}

func (c *fakeClipboard) ReadAll() (string, error) { return c.content, nil }
func (c *fakeClipboard) WriteAll(s string) error {
	c.content = s
	c.writes = append(c.writes, s)
	return nil
}

func newTestKeyboard(paste bool) (*Keyboard, *fakeDevice, *fakeClipboard) {
	dev := &fakeDevice{}
	clip := &fakeClipboard{content: "previous"}
	k := newKeyboard(dev, paste)
	k.clipboard = clip
	k.settle = 0
	return k, dev, clip
}

func TestKeyboardTypesASCII(t *testing.T) {
	k, dev, clip := newTestKeyboard(true)
	if err := k.Type(context.Background(), "Hi 2", 0); err != nil {
		t.Fatal(err)
	}
	want := []string{"H", "i", " ", "2"}
	if len(dev.log) != len(want) {
		t.Fatalf("log = %v, want %v", dev.log, want)
	}
	for i := range want {
		if dev.log[i] != want[i] {
			t.Errorf("log[%d] = %q, want %q", i, dev.log[i], want[i])
		}
	}
	if len(clip.writes) != 0 {
		t.Errorf("clipboard touched: %v", clip.writes)
	}
}

func TestKeyboardPastesUnmappedRuns(t *testing.T) {
	k, dev, clip := newTestKeyboard(true)
	if err := k.Type(context.Background(), "a€€b", 0); err != nil {
		t.Fatal(err)
	}
	got := dev.log
	if len(got) != 3 || got[0] != "a" || got[1] != "<paste>" || got[2] != "b" {
		t.Fatalf("log = %v", got)
	}
	if len(clip.writes) != 2 || clip.writes[0] != "€€" || clip.writes[1] != "previous" {
		t.Errorf("clipboard writes = %v", clip.writes)
	}
}

func TestKeyboardSkipsUnmappedWithoutPaste(t *testing.T) {
	k, dev, _ := newTestKeyboard(false)
	if err := k.Type(context.Background(), "é!", 0); err != nil {
		t.Fatal(err)
	}
	if len(dev.log) != 1 || dev.log[0] != "!" {
		t.Errorf("log = %v", dev.log)
	}
}

func TestKeyboardStopsOnCancel(t *testing.T) {
	k, dev, _ := newTestKeyboard(true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := k.Type(ctx, "abc", time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(dev.log) != 0 {
		t.Errorf("typed %v after cancel", dev.log)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_ = r.Type(context.Background(), "hello ", 0)
	_ = r.Type(context.Background(), "world", 0)
	if r.Text() != "hello world" {
		t.Errorf("Text = %q", r.Text())
	}
	r.Err = errors.New("boom")
	if err := r.Type(context.Background(), "x", 0); err == nil {
		t.Error("expected error")
	}
}
