package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ptt/encoder"
	"ptt/log"
	"ptt/observe"
	"ptt/transcriber"
	"ptt/typer"
	"ptt/window"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultSettle    = 150 * time.Millisecond
	DefaultCharDelay = 15 * time.Millisecond
)

// Injector delivers text to the window a session was bound to.
type Injector interface {
	Inject(ctx context.Context, target window.Target, text string) error
}

// Worker encodes, transcribes and injects one recording. Every failure is
// logged and absorbed; Run always returns.
type Worker struct {
	Transcriber transcriber.Transcriber
	Format      string
	Timeout     time.Duration
	Injector    Injector
	Metrics     *observe.Metrics

	// OnReport, if set, is called once per recording after injection.
	OnReport func(Report)
}

// Report summarizes one processed recording for display.
type Report struct {
	SessionID string
	Target    window.Target
	Text      string
	Outcome   string
	Audio     time.Duration
	Metrics   []string
}

func (w *Worker) Run(ctx context.Context, job Job) {
	id := job.Session.ID
	outcome := "typed"
	var text string
	var netLines []string
	defer func() {
		w.Metrics.Outcome(outcome)
		if w.OnReport != nil {
			w.OnReport(Report{
				SessionID: id,
				Target:    job.Session.Target,
				Text:      text,
				Outcome:   outcome,
				Audio:     job.Snapshot.Duration(),
				Metrics:   netLines,
			})
		}
	}()

	encStart := time.Now()
	data, err := encoder.Encode(w.Format, job.Snapshot.Frames)
	if err != nil {
		outcome = "encode_error"
		log.Errorf("session %s: encode: %v", id, err)
		log.Event("error", fmt.Sprintf("session=%s encode: %v", id, err))
		return
	}
	encodeTime := time.Since(encStart)

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	sttStart := time.Now()
	res, err := w.Transcriber.Transcribe(tctx, transcriber.Audio{Data: data, Format: w.Format})
	cancel()
	w.Metrics.STT(w.Transcriber.Name(), time.Since(sttStart), err)

	if err != nil {
		outcome = "stt_error"
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("no response within %s: %w", timeout, err)
		}
		log.Errorf("session %s: transcription failed: %v", id, err)
		log.Event("error", fmt.Sprintf("session=%s transcription: %v", id, err))
	} else {
		text = res.Text
		w.logMetrics(job, res, len(data), encodeTime)
		if res.Metrics != nil {
			netLines = []string{res.Metrics.String()}
		}
	}

	text = Normalize(text)
	if text == "" {
		if outcome == "typed" {
			outcome = "no_text"
		}
		log.Event("transcript", fmt.Sprintf("session=%s (empty)", id))
		return
	}
	log.Event("transcript", fmt.Sprintf("session=%s %s", id, text))

	if err := w.Injector.Inject(ctx, job.Session.Target, text); err != nil {
		outcome = "inject_error"
		log.Warnf("session %s: injection into %s failed: %v", id, job.Session.Target, err)
		log.Event("error", fmt.Sprintf("session=%s inject: %v", id, err))
	}
}

func (w *Worker) logMetrics(job Job, res *transcriber.Result, size int, encodeTime time.Duration) {
	m := log.Metrics{
		SessionID: job.Session.ID,
		Provider:  w.Transcriber.Name(),
		Format:    w.Format,
		AudioS:    job.Snapshot.Duration().Seconds(),
		EncodedKB: float64(size) / 1024,
		EncodeMs:  float64(encodeTime.Microseconds()) / 1000,
		RateLimit: res.RateLimit,
	}
	if nm := res.Metrics; nm != nil {
		m.DNSMs = float64(nm.DNS.Microseconds()) / 1000
		m.TLSMs = float64(nm.TLS.Microseconds()) / 1000
		m.TTFBMs = float64(nm.TTFB.Microseconds()) / 1000
		m.TotalMs = float64(nm.Total.Microseconds()) / 1000
		m.ConnReused = nm.ConnReused
		m.TLSProtocol = nm.TLSProtocol
	}
	log.Transcription(m)
}

// Normalize collapses every whitespace run to a single space and trims.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// KeyInjector re-activates the target window and types into it.
type KeyInjector struct {
	Resolver  window.Resolver
	Typer     typer.Typer
	Settle    time.Duration
	CharDelay time.Duration
}

// Inject skips typing when the target window is gone. Any other activation
// failure is logged and typing proceeds into whatever has focus.
func (k *KeyInjector) Inject(ctx context.Context, target window.Target, text string) error {
	if err := k.Resolver.Activate(target.Handle); err != nil {
		if errors.Is(err, window.ErrNoWindow) {
			return fmt.Errorf("target %s: %w", target, err)
		}
		log.Warnf("activating %s: %v", target, err)
	}

	t := time.NewTimer(k.Settle)
	select {
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	case <-t.C:
	}
	return k.Typer.Type(ctx, text, k.CharDelay)
}
