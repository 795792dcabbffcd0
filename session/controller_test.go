package session

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ptt/window"
)

type jobLog struct {
	mu   sync.Mutex
	jobs []Job
}

func (l *jobLog) Run(_ context.Context, job Job) {
	l.mu.Lock()
	l.jobs = append(l.jobs, job)
	l.mu.Unlock()
}

func (l *jobLog) Jobs() []Job {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Job(nil), l.jobs...)
}

func newTestController(res window.Resolver, r Runner) (*Controller, *stateLog) {
	notes := &stateLog{}
	return NewController(Options{Resolver: res, Notifier: notes, Runner: r}), notes
}

func TestPressReleaseLifecycle(t *testing.T) {
	jobs := &jobLog{}
	c, notes := newTestController(window.NewFake(notepad), jobs)

	c.Press()
	if c.State() != Recording {
		t.Fatalf("state = %s after press", c.State())
	}
	s, ok := c.Current()
	if !ok || s.Target != notepad || s.ID == "" || s.Epoch != 1 {
		t.Fatalf("current = %+v, %v", s, ok)
	}
	c.Feed(tone(160))
	c.Feed(tone(160))
	c.Release()
	waitIdle(t, c)

	want := []State{Recording, Processing, Idle}
	if got := notes.States(); !equalStates(got, want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	if labels := notes.Labels(); len(labels) != 2 || labels[0] != notepad.Label || labels[1] != "" {
		t.Errorf("labels = %q", labels)
	}
	if len(notes.targets) != 1 || notes.targets[0].Rect != notepad.Rect {
		t.Errorf("targets = %+v", notes.targets)
	}
	got := jobs.Jobs()
	if len(got) != 1 || got[0].Snapshot.Samples != 320 || got[0].Session.Target != notepad {
		t.Fatalf("jobs = %+v", got)
	}
}

func TestEmptyReleaseSkipsWorker(t *testing.T) {
	jobs := &jobLog{}
	c, notes := newTestController(window.NewFake(notepad), jobs)

	c.Press()
	c.Release()

	if c.State() != Idle {
		t.Fatalf("state = %s", c.State())
	}
	if want := []State{Recording, Idle}; !equalStates(notes.States(), want) {
		t.Fatalf("states = %v, want %v", notes.States(), want)
	}
	waitIdle(t, c)
	if n := len(jobs.Jobs()); n != 0 {
		t.Fatalf("worker spawned %d times for empty audio", n)
	}
}

func TestPressOnOwnWindowStaysIdle(t *testing.T) {
	res := window.NewFake(window.Target{})
	res.SetFocused(window.Target{Handle: 42, Label: "ptt"}, false)
	c, notes := newTestController(res, &jobLog{})

	c.Press()
	c.Feed(tone(100))
	c.Release()

	if c.State() != Idle {
		t.Fatalf("state = %s", c.State())
	}
	if len(notes.States()) != 0 {
		t.Fatalf("notified %v for a rejected press", notes.States())
	}
}

func TestIgnoredEvents(t *testing.T) {
	block := make(chan struct{})
	c, notes := newTestController(window.NewFake(notepad), RunnerFunc(func(context.Context, Job) { <-block }))

	c.Release() // idle
	c.Press()
	c.Press() // recording
	c.Feed(tone(10))
	c.Release()
	c.Press() // processing
	c.Release()
	if c.State() != Processing {
		t.Fatalf("state = %s", c.State())
	}
	close(block)
	waitIdle(t, c)

	if want := []State{Recording, Processing, Idle}; !equalStates(notes.States(), want) {
		t.Fatalf("states = %v, want %v", notes.States(), want)
	}
}

func TestStaleCompletionIgnored(t *testing.T) {
	block := make(chan struct{})
	c, _ := newTestController(window.NewFake(notepad), RunnerFunc(func(context.Context, Job) { <-block }))
	c.Press()
	c.Feed(tone(10))
	c.Release()

	c.complete(99)
	if c.State() != Processing {
		t.Fatalf("stale completion moved state to %s", c.State())
	}
	close(block)
	waitIdle(t, c)
}

func TestWorkerPanicReturnsToIdle(t *testing.T) {
	c, notes := newTestController(window.NewFake(notepad), RunnerFunc(func(context.Context, Job) {
		panic("encoder exploded")
	}))
	c.Press()
	c.Feed(tone(10))
	c.Release()
	waitIdle(t, c)
	checkTransitions(t, notes.States())
}

func TestFramesOutsideRecordingDropped(t *testing.T) {
	jobs := &jobLog{}
	c, _ := newTestController(window.NewFake(notepad), jobs)

	c.Feed(tone(50)) // idle
	c.Press()
	c.Feed(tone(10))
	c.Release()
	c.Feed(tone(50)) // processing
	waitIdle(t, c)
	c.Press()
	c.Feed(tone(20))
	c.Release()
	waitIdle(t, c)

	got := jobs.Jobs()
	if len(got) != 2 || got[0].Snapshot.Samples != 10 || got[1].Snapshot.Samples != 20 {
		t.Fatalf("jobs = %+v, want snapshots of 10 and 20 samples", got)
	}
	if got[1].Session.Epoch <= got[0].Session.Epoch {
		t.Errorf("epochs not increasing: %d then %d", got[0].Session.Epoch, got[1].Session.Epoch)
	}
}

func TestTargetFixedAtPress(t *testing.T) {
	res := window.NewFake(notepad)
	var seen window.Target
	proceed := make(chan struct{})
	c, _ := newTestController(res, RunnerFunc(func(_ context.Context, j Job) {
		<-proceed
		seen = j.Session.Target
	}))

	c.Press()
	res.SetFocused(window.Target{Handle: 0x2002, Label: "Browser"}, true)
	c.Feed(tone(10))
	c.Release()
	res.SetFocused(window.Target{Handle: 0x3003, Label: "Terminal"}, true)
	if s, _ := c.Current(); s.Target != notepad {
		t.Fatalf("current target = %v", s.Target)
	}
	close(proceed)
	waitIdle(t, c)
	if seen != notepad {
		t.Fatalf("worker saw target %v, want %v", seen, notepad)
	}
}

// Press, release, feed and completion race from many goroutines. At no
// point may two sessions be active or a transition leave the table.
func TestConcurrentInterleavings(t *testing.T) {
	var active, maxActive atomic.Int32
	runner := RunnerFunc(func(context.Context, Job) {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Duration(rand.Intn(300)) * time.Microsecond)
		active.Add(-1)
	})
	res := window.NewFake(notepad)
	res.Hook = func() { time.Sleep(time.Duration(rand.Intn(50)) * time.Microsecond) }
	c, notes := newTestController(res, runner)

	stop := make(chan struct{})
	var feeders sync.WaitGroup
	for i := 0; i < 2; i++ {
		feeders.Add(1)
		go func() {
			defer feeders.Done()
			frame := tone(32)
			for {
				select {
				case <-stop:
					return
				default:
					c.Feed(frame)
				}
			}
		}()
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			for i := 0; i < 300; i++ {
				if r.Intn(2) == 0 {
					c.Press()
				} else {
					c.Release()
				}
			}
		}(int64(g))
	}
	wg.Wait()
	c.Release()
	close(stop)
	feeders.Wait()
	waitIdle(t, c)

	if maxActive.Load() > 1 {
		t.Fatalf("%d workers ran concurrently", maxActive.Load())
	}
	states := notes.States()
	checkTransitions(t, states)
	if len(states) > 0 && states[len(states)-1] != Idle {
		t.Fatalf("final notified state = %s", states[len(states)-1])
	}
}
