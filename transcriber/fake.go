package transcriber

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fake returns canned text after an optional delay.
type Fake struct {
	mu    sync.Mutex
	echo  bool
	text  string
	err   error
	delay time.Duration
	calls []Audio
}

func NewFake(text string, err error) *Fake {
	return &Fake{text: text, err: err}
}

// NewEcho returns a Fake that answers with a description of the audio it
// received, for headless runs without a speech service.
func NewEcho() *Fake {
	return &Fake{echo: true}
}

// WithDelay makes every call block for d or until its context ends.
func (f *Fake) WithDelay(d time.Duration) *Fake {
	f.delay = d
	return f
}

func (f *Fake) Name() string { return ProviderFake }

func (f *Fake) Calls() []Audio {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Audio(nil), f.calls...)
}

func (f *Fake) Transcribe(ctx context.Context, audio Audio) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, audio)
	f.mu.Unlock()

	if len(audio.Data) == 0 {
		return nil, ErrEmptyAudio
	}
	if f.delay > 0 {
		t := time.NewTimer(f.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	if f.err != nil {
		return nil, fmt.Errorf("fake transcriber error: %w", f.err)
	}
	text := f.text
	if f.echo {
		text = fmt.Sprintf("%d bytes of %s", len(audio.Data), audio.Format)
	}
	return &Result{Text: text, Metrics: &NetworkMetrics{Total: f.delay}}, nil
}
