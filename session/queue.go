package session

import (
	"context"
	"sync"
	"time"

	"ptt/log"
	"ptt/window"
)

// Notifier is how the controller reports state to the UI.
type Notifier interface {
	SetState(State)
	SetTargetLabel(string)
}

// TargetNotifier is optionally implemented by notifiers that also want the
// full target, including its bounding rectangle.
type TargetNotifier interface {
	SetTarget(window.Target)
}

type EventKind int

const (
	EventState EventKind = iota
	EventLabel
	EventTarget
)

type Event struct {
	Kind   EventKind
	State  State
	Label  string
	Target window.Target
	At     time.Time
}

// Sink consumes UI events on the queue goroutine.
type Sink interface {
	HandleEvent(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) HandleEvent(e Event) { f(e) }

const DefaultQueueSize = 64

// Queue is a bounded Notifier. Producers never block: when the queue is
// full the oldest pending event is discarded. Run delivers events to sinks
// in order on a single goroutine.
type Queue struct {
	mu      sync.Mutex
	pending []Event
	size    int
	sinks   []Sink
	signal  chan struct{}
	dropped uint64
	OnDrop  func()
}

func NewQueue(size int, sinks ...Sink) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{size: size, sinks: sinks, signal: make(chan struct{}, 1)}
}

func (q *Queue) AddSink(s Sink) {
	q.mu.Lock()
	q.sinks = append(q.sinks, s)
	q.mu.Unlock()
}

func (q *Queue) SetState(s State)          { q.push(Event{Kind: EventState, State: s}) }
func (q *Queue) SetTargetLabel(l string)   { q.push(Event{Kind: EventLabel, Label: l}) }
func (q *Queue) SetTarget(t window.Target) { q.push(Event{Kind: EventTarget, Target: t, Label: t.Label}) }

func (q *Queue) push(e Event) {
	e.At = time.Now()
	q.mu.Lock()
	dropped := false
	if len(q.pending) >= q.size {
		q.pending = q.pending[1:]
		q.dropped++
		dropped = true
	}
	q.pending = append(q.pending, e)
	q.mu.Unlock()

	if dropped && q.OnDrop != nil {
		q.OnDrop()
	}
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Run dispatches events until ctx is done, then flushes what is pending.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			q.flush()
			return nil
		case <-q.signal:
			q.flush()
		}
	}
}

// Drain delivers pending events on the calling goroutine. Call it only
// after Run has returned, so events raised during shutdown still reach sinks.
func (q *Queue) Drain() { q.flush() }

func (q *Queue) flush() {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	sinks := q.sinks
	q.mu.Unlock()

	for _, e := range batch {
		for _, s := range sinks {
			dispatch(s, e)
		}
	}
}

func dispatch(s Sink, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("ui sink panic: %v", r)
		}
	}()
	s.HandleEvent(e)
}
