package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"ptt/audio"
	"ptt/config"
	"ptt/hotkey"
	"ptt/log"
	"ptt/observe"
	"ptt/session"
	"ptt/transcriber"
	"ptt/typer"
	"ptt/window"
)

// app is the wired session pipeline: hotkey edges and captured audio in,
// typed text out, state changes fanned out to UI sinks.
type app struct {
	cfg     config.Config
	queue   *session.Queue
	ctrl    *session.Controller
	worker  *session.Worker
	metrics *observe.Metrics
	level   levelMeter
}

type components struct {
	Resolver    window.Resolver
	Typer       typer.Typer
	Transcriber transcriber.Transcriber
	Metrics     *observe.Metrics
}

func newApp(cfg config.Config, c components) *app {
	a := &app{cfg: cfg, metrics: c.Metrics}
	a.queue = session.NewQueue(session.DefaultQueueSize)
	a.queue.OnDrop = c.Metrics.Dropped
	a.worker = &session.Worker{
		Transcriber: c.Transcriber,
		Format:      cfg.Format,
		Timeout:     cfg.TimeoutDuration(),
		Metrics:     c.Metrics,
		Injector: &session.KeyInjector{
			Resolver:  c.Resolver,
			Typer:     c.Typer,
			Settle:    cfg.SettleDuration(),
			CharDelay: cfg.CharDuration(),
		},
	}
	a.ctrl = session.NewController(session.Options{
		Resolver: c.Resolver,
		Notifier: a.queue,
		Runner:   a.worker,
		Metrics:  c.Metrics,
	})
	return a
}

// onReport chains fn after any report handler already installed.
func (a *app) onReport(fn func(session.Report)) {
	prev := a.worker.OnReport
	a.worker.OnReport = func(r session.Report) {
		if prev != nil {
			prev(r)
		}
		fn(r)
	}
}

// feed is the capture callback. It runs on the audio thread and must not
// block or log.
func (a *app) feed(samples []float32) {
	a.ctrl.Feed(samples)
	a.level.observe(samples)
}

// run captures continuously and forwards hotkey edges until ctx ends or a
// component fails, then waits for the in-flight worker.
func (a *app) run(ctx context.Context, hk hotkey.Hotkey, capture audio.CaptureDevice) error {
	capture.SetCallback(a.feed)
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		return fmt.Errorf("starting capture on %s: %w", capture.DeviceName(), err)
	}
	log.Infof("capturing from %s", capture.DeviceName())

	if w, ok := a.worker.Transcriber.(transcriber.Warmer); ok {
		go func() {
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := w.Warm(wctx); err != nil {
				log.Warnf("warming %s: %v", a.worker.Transcriber.Name(), err)
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.queue.Run(gctx) })
	g.Go(func() error {
		err := hotkey.Forward(gctx, hk, a.ctrl)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	err := g.Wait()

	capture.Stop()
	capture.ClearCallback()

	wctx, cancel := context.WithTimeout(context.Background(), a.cfg.TimeoutDuration()+5*time.Second)
	defer cancel()
	if werr := a.ctrl.Wait(wctx); werr != nil {
		log.Warnf("shutdown: worker still running: %v", werr)
	}
	a.queue.Drain()
	return err
}

// levelMeter keeps the RMS of the latest capture chunk for display.
type levelMeter struct {
	bits atomic.Uint64
}

func (m *levelMeter) observe(samples []float32) {
	if len(samples) == 0 {
		return
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	m.bits.Store(math.Float64bits(math.Sqrt(sum / float64(len(samples)))))
}

func (m *levelMeter) Load() float64 {
	return math.Float64frombits(m.bits.Load())
}
