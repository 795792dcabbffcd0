package typer

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Recorder is a Typer that remembers what it was asked to type.
type Recorder struct {
	mu    sync.Mutex
	calls []string
	Err   error
}

func (r *Recorder) Type(ctx context.Context, text string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.calls = append(r.calls, text)
	return nil
}

func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *Recorder) Text() string {
	return strings.Join(r.Calls(), "")
}
