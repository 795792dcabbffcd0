package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ptt/log"
	"ptt/observe"
	"ptt/window"
)

// Job is what a worker receives when a recording ends.
type Job struct {
	Session  Session
	Snapshot Snapshot
}

// Runner processes one finished recording. Run may block for as long as it
// needs; the controller stays in Processing until it returns.
type Runner interface {
	Run(ctx context.Context, job Job)
}

type RunnerFunc func(ctx context.Context, job Job)

func (f RunnerFunc) Run(ctx context.Context, job Job) { f(ctx, job) }

// Controller is the session state machine. Press, Release and worker
// completion serialize on mu; Feed only touches the buffer.
type Controller struct {
	mu       sync.Mutex
	state    State
	cur      *Session
	epoch    uint64
	recEpoch atomic.Uint64 // epoch accepting audio, 0 when not recording

	buf      Buffer
	resolver window.Resolver
	notifier Notifier
	runner   Runner
	metrics  *observe.Metrics
	wg       sync.WaitGroup
	now      func() time.Time
}

type Options struct {
	Resolver window.Resolver
	Notifier Notifier
	Runner   Runner
	Metrics  *observe.Metrics
}

func NewController(opts Options) *Controller {
	c := &Controller{
		resolver: opts.Resolver,
		notifier: opts.Notifier,
		runner:   opts.Runner,
		metrics:  opts.Metrics,
		now:      time.Now,
	}
	if c.notifier == nil {
		c.notifier = NopNotifier{}
	}
	return c
}

// Press starts a recording bound to the currently focused window. It is
// ignored unless the controller is Idle and a foreign window has focus.
func (c *Controller) Press() {
	if st := c.State(); st != Idle {
		log.Infof("press ignored while %s", st)
		return
	}

	// The focus query can be slow (it may shell out), so it runs unlocked
	// and the state is re-checked before the session is installed.
	target, ok := c.resolver.Focused()

	c.mu.Lock()
	if c.state != Idle {
		st := c.state
		c.mu.Unlock()
		log.Infof("press ignored while %s", st)
		return
	}
	if !ok || !target.Valid() {
		c.mu.Unlock()
		log.Warn("press ignored: no usable target window")
		log.Event("press", "rejected: no target window")
		return
	}

	c.epoch++
	s := &Session{
		ID:      uuid.NewString(),
		Epoch:   c.epoch,
		Target:  target,
		Started: c.now(),
	}
	c.cur = s
	c.buf.Open(s.Epoch)
	c.recEpoch.Store(s.Epoch)
	c.state = Recording
	c.notifier.SetState(Recording)
	c.notifier.SetTargetLabel(target.Label)
	if tn, ok := c.notifier.(TargetNotifier); ok {
		tn.SetTarget(target)
	}
	c.mu.Unlock()

	c.metrics.SessionStarted()
	log.Infof("session %s: recording for %s", s.ID, target)
	log.Event("press", fmt.Sprintf("session=%s target=%s", s.ID, target))
}

// Release ends the recording. Empty recordings go straight back to Idle;
// otherwise the frozen audio is handed to a new worker goroutine.
func (c *Controller) Release() {
	c.mu.Lock()
	if c.state != Recording {
		st := c.state
		c.mu.Unlock()
		log.Infof("release ignored while %s", st)
		return
	}

	c.recEpoch.Store(0)
	snap := c.buf.Snapshot()
	s := *c.cur

	if snap.Empty() {
		c.toIdle()
		c.mu.Unlock()
		c.metrics.Outcome("empty_audio")
		log.Infof("session %s: released with no audio", s.ID)
		log.Event("release", fmt.Sprintf("session=%s empty", s.ID))
		return
	}

	c.state = Processing
	c.notifier.SetState(Processing)
	c.wg.Add(1)
	go c.work(s, snap)
	c.mu.Unlock()

	c.metrics.Recorded(snap.Duration())
	log.Event("release", fmt.Sprintf("session=%s audio=%.2fs", s.ID, snap.Duration().Seconds()))
}

// Feed is the capture callback. Frames arriving while no session is
// recording, or for an epoch that has already ended, are dropped.
func (c *Controller) Feed(samples []float32) {
	epoch := c.recEpoch.Load()
	if epoch == 0 {
		return
	}
	c.buf.Append(epoch, samples)
}

func (c *Controller) work(s Session, snap Snapshot) {
	defer c.wg.Done()
	defer c.complete(s.Epoch)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("session %s: worker panic: %v", s.ID, r)
			log.Event("error", fmt.Sprintf("session=%s worker panic: %v", s.ID, r))
			c.metrics.Outcome("panic")
		}
	}()
	c.runner.Run(context.Background(), Job{Session: s, Snapshot: snap})
}

// complete returns to Idle if epoch is still the session being processed.
func (c *Controller) complete(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Processing || c.cur == nil || c.cur.Epoch != epoch {
		log.Warnf("stale completion for epoch %d ignored", epoch)
		return
	}
	c.toIdle()
}

// toIdle must be called with mu held.
func (c *Controller) toIdle() {
	c.state = Idle
	c.cur = nil
	c.notifier.SetState(Idle)
	c.notifier.SetTargetLabel("")
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns a copy of the in-flight session, if any.
func (c *Controller) Current() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return Session{}, false
	}
	return *c.cur, true
}

// Wait blocks until every spawned worker has finished or ctx ends.
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) SetState(State)        {}
func (NopNotifier) SetTargetLabel(string) {}
