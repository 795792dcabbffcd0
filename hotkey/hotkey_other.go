//go:build !linux

package hotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"
)

type xHotkey struct {
	hk      *hotkey.Hotkey
	spec    Spec
	keydown chan struct{}
	keyup   chan struct{}
	stop    chan struct{}
	once    sync.Once

	registered bool
}

func keyFor(name string) (hotkey.Key, bool) {
	switch name {
	case "space":
		return hotkey.KeySpace, true
	case "f1":
		return hotkey.KeyF1, true
	case "f2":
		return hotkey.KeyF2, true
	case "f3":
		return hotkey.KeyF3, true
	case "f4":
		return hotkey.KeyF4, true
	case "f5":
		return hotkey.KeyF5, true
	case "f6":
		return hotkey.KeyF6, true
	case "f7":
		return hotkey.KeyF7, true
	case "f8":
		return hotkey.KeyF8, true
	case "f9":
		return hotkey.KeyF9, true
	case "f10":
		return hotkey.KeyF10, true
	case "f11":
		return hotkey.KeyF11, true
	case "f12":
		return hotkey.KeyF12, true
	}
	if len(name) == 1 && name[0] >= 'a' && name[0] <= 'z' {
		return letterKeys[name[0]-'a'], true
	}
	return 0, false
}

var letterKeys = [26]hotkey.Key{
	hotkey.KeyA, hotkey.KeyB, hotkey.KeyC, hotkey.KeyD, hotkey.KeyE, hotkey.KeyF,
	hotkey.KeyG, hotkey.KeyH, hotkey.KeyI, hotkey.KeyJ, hotkey.KeyK, hotkey.KeyL,
	hotkey.KeyM, hotkey.KeyN, hotkey.KeyO, hotkey.KeyP, hotkey.KeyQ, hotkey.KeyR,
	hotkey.KeyS, hotkey.KeyT, hotkey.KeyU, hotkey.KeyV, hotkey.KeyW, hotkey.KeyX,
	hotkey.KeyY, hotkey.KeyZ,
}

func New(spec Spec) (Hotkey, error) {
	key, ok := keyFor(spec.Key)
	if !ok {
		return nil, fmt.Errorf("hotkey %s is not supported on this platform", spec)
	}
	var mods []hotkey.Modifier
	if spec.Ctrl {
		mods = append(mods, hotkey.ModCtrl)
	}
	if spec.Shift {
		mods = append(mods, hotkey.ModShift)
	}
	if spec.Alt {
		mods = append(mods, modAlt)
	}
	return &xHotkey{
		hk:      hotkey.New(mods, key),
		spec:    spec,
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}, nil
}

func (h *xHotkey) Register() error {
	if err := h.hk.Register(); err != nil {
		return fmt.Errorf("registering %s: %w", h.spec, err)
	}
	h.registered = true
	go h.pump(h.hk.Keydown(), h.keydown)
	go h.pump(h.hk.Keyup(), h.keyup)
	return nil
}

func (h *xHotkey) pump(src <-chan hotkey.Event, dst chan struct{}) {
	for {
		select {
		case <-h.stop:
			return
		case _, ok := <-src:
			if !ok {
				return
			}
			select {
			case dst <- struct{}{}:
			case <-h.stop:
				return
			}
		}
	}
}

func (h *xHotkey) Unregister() {
	h.once.Do(func() {
		close(h.stop)
		if h.registered {
			h.hk.Unregister()
		}
	})
}

func (h *xHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *xHotkey) Keyup() <-chan struct{} {
	return h.keyup
}

func Diagnose(spec Spec) (string, error) {
	if _, ok := keyFor(spec.Key); !ok {
		return "", fmt.Errorf("hotkey %s is not supported on this platform", spec)
	}
	return fmt.Sprintf("hotkey support available (%s)", spec), nil
}
