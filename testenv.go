package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"ptt/audio"
	"ptt/beep"
	"ptt/config"
	"ptt/encoder"
	"ptt/hotkey"
	"ptt/log"
	"ptt/session"
	"ptt/transcriber"
	"ptt/window"
)

// testTarget is the window every headless session is bound to.
var testTarget = window.Target{Handle: 1, Label: "ptt-test"}

// stdoutTyper prints what would have been typed.
type stdoutTyper struct {
	mu sync.Mutex
	w  io.Writer
}

func (t *stdoutTyper) Type(_ context.Context, text string, _ time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.w, "TYPED %s\n", text)
	return err
}

// idleSignal fires each time a session finishes and the controller is back
// to Idle, whether or not a worker ran.
type idleSignal struct {
	prev session.State
	ch   chan struct{}
}

func (s *idleSignal) HandleEvent(e session.Event) {
	if e.Kind != session.EventState {
		return
	}
	if e.State == session.Idle && s.prev != session.Idle {
		select {
		case s.ch <- struct{}{}:
		default:
		}
	}
	s.prev = e.State
}

// runTestMode replays wavPath as the microphone and drives the hotkey from
// script lines: KEYDOWN, KEYUP, WAIT (session finished), WAIT_AUDIO_DONE,
// SLEEP <ms> and QUIT.
func runTestMode(ctx context.Context, cfg config.Config, tr transcriber.Transcriber, wavPath string, script io.Reader, out io.Writer) error {
	beep.Disable()
	log.Event("start", fmt.Sprintf("test mode provider=%s wav=%s", tr.Name(), wavPath))

	fakeCtx, err := audio.NewFakeContext(wavPath, true)
	if err != nil {
		return fmt.Errorf("loading WAV: %w", err)
	}
	capture, err := fakeCtx.NewCapture(nil, audio.CaptureConfig{SampleRate: encoder.SampleRate, Channels: encoder.Channels})
	if err != nil {
		return err
	}
	defer capture.Close()

	a := newApp(cfg, components{
		Resolver:    window.NewFake(testTarget),
		Typer:       &stdoutTyper{w: out},
		Transcriber: tr,
	})
	idle := &idleSignal{ch: make(chan struct{}, 16)}
	a.queue.AddSink(idle)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	hk := hotkey.NewFake()

	scriptErr := make(chan error, 1)
	go func() {
		defer cancel()
		scriptErr <- runScript(ctx, script, hk, idle.ch, capture.(*audio.FakeCapture).AudioDone())
	}()

	if err := a.run(ctx, hk, capture); err != nil {
		return err
	}
	if err := <-scriptErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runScript(ctx context.Context, r io.Reader, hk *hotkey.FakeHotkey, idle, audioDone <-chan struct{}) error {
	wait := func(ch <-chan struct{}) error {
		select {
		case <-ch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		var err error
		switch {
		case cmd == "":
		case cmd == "KEYDOWN":
			hk.SimKeydown()
		case cmd == "KEYUP":
			hk.SimKeyup()
		case cmd == "WAIT":
			err = wait(idle)
		case cmd == "WAIT_AUDIO_DONE":
			err = wait(audioDone)
		case cmd == "QUIT":
			return nil
		case strings.HasPrefix(cmd, "SLEEP "):
			ms, perr := strconv.Atoi(strings.TrimSpace(cmd[len("SLEEP "):]))
			if perr != nil {
				return fmt.Errorf("bad SLEEP %q", cmd)
			}
			t := time.NewTimer(time.Duration(ms) * time.Millisecond)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				err = ctx.Err()
			}
		default:
			return fmt.Errorf("unknown command %q", cmd)
		}
		if err != nil {
			return err
		}
	}
	return scanner.Err()
}
