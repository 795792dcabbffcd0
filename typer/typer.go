// Package typer synthesizes keystrokes into whatever window has focus.
package typer

import (
	"context"
	"time"

	cb "github.com/atotto/clipboard"
)

type Typer interface {
	Type(ctx context.Context, text string, delay time.Duration) error
}

// keyDevice is the platform keystroke backend.
type keyDevice interface {
	// mapped reports whether r has a key on this backend.
	mapped(r rune) bool
	tap(r rune) error
	// paste sends the platform paste chord (Ctrl+V / Cmd+V).
	paste() error
}

// Keyboard types character by character. Runs of characters the backend
// cannot type are delivered through the clipboard when Paste is set and
// skipped otherwise.
type Keyboard struct {
	dev   keyDevice
	Paste bool

	clipboard clipboardAPI
	settle    time.Duration
}

type clipboardAPI interface {
	ReadAll() (string, error)
	WriteAll(string) error
}

type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error) { return cb.ReadAll() }
func (systemClipboard) WriteAll(s string) error  { return cb.WriteAll(s) }

func newKeyboard(dev keyDevice, paste bool) *Keyboard {
	return &Keyboard{dev: dev, Paste: paste, clipboard: systemClipboard{}, settle: 50 * time.Millisecond}
}

func (k *Keyboard) Type(ctx context.Context, text string, delay time.Duration) error {
	var pending []rune
	first := true
	pause := func() error {
		if first {
			first = false
			return ctx.Err()
		}
		return sleep(ctx, delay)
	}
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		s := string(pending)
		pending = pending[:0]
		if !k.Paste {
			return nil
		}
		if err := pause(); err != nil {
			return err
		}
		return k.pasteText(ctx, s)
	}

	for _, r := range text {
		if !k.dev.mapped(r) {
			pending = append(pending, r)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		if err := pause(); err != nil {
			return err
		}
		if err := k.dev.tap(r); err != nil {
			return err
		}
	}
	return flush()
}

// pasteText places s on the clipboard, pastes, then restores the previous
// clipboard contents.
func (k *Keyboard) pasteText(ctx context.Context, s string) error {
	prev, prevErr := k.clipboard.ReadAll()
	if err := k.clipboard.WriteAll(s); err != nil {
		return err
	}
	if err := k.dev.paste(); err != nil {
		return err
	}
	if prevErr == nil {
		if err := sleep(ctx, k.settle); err != nil {
			return err
		}
		_ = k.clipboard.WriteAll(prev)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
