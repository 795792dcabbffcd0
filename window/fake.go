package window

import "sync"

// Fake is an in-memory Resolver. SetFocused changes what Focused reports and
// Close marks a handle as destroyed.
type Fake struct {
	mu        sync.Mutex
	focused   Target
	ok        bool
	closed    map[Handle]bool
	activated []Handle
	Hook      func() // called inside Focused, before the lock is taken
}

func NewFake(t Target) *Fake {
	return &Fake{focused: t, ok: t.Valid(), closed: map[Handle]bool{}}
}

func (f *Fake) SetFocused(t Target, ok bool) {
	f.mu.Lock()
	f.focused, f.ok = t, ok
	f.mu.Unlock()
}

func (f *Fake) Close(h Handle) {
	f.mu.Lock()
	f.closed[h] = true
	f.mu.Unlock()
}

func (f *Fake) Focused() (Target, bool) {
	if f.Hook != nil {
		f.Hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.focused
	t.Label = Truncate(t.Label)
	return t, f.ok
}

func (f *Fake) Activate(h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h == 0 || f.closed[h] {
		return ErrNoWindow
	}
	f.activated = append(f.activated, h)
	f.focused = Target{Handle: h}
	f.ok = true
	return nil
}

func (f *Fake) Activated() []Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Handle(nil), f.activated...)
}
