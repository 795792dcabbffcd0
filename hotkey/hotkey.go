package hotkey

import (
	"context"
	"fmt"
	"strings"
)

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

const Default = "ctrl+shift+space"

// Spec is a parsed hotkey combination such as "ctrl+shift+space".
type Spec struct {
	Ctrl, Shift, Alt bool
	Key              string // "space", "a".."z", "f1".."f12" or "rightctrl"
}

func (s Spec) String() string {
	var parts []string
	if s.Ctrl {
		parts = append(parts, "ctrl")
	}
	if s.Shift {
		parts = append(parts, "shift")
	}
	if s.Alt {
		parts = append(parts, "alt")
	}
	return strings.Join(append(parts, s.Key), "+")
}

func validKey(k string) bool {
	switch {
	case k == "space", k == "rightctrl":
		return true
	case len(k) == 1 && k[0] >= 'a' && k[0] <= 'z':
		return true
	case len(k) >= 2 && k[0] == 'f':
		var n int
		_, err := fmt.Sscanf(k[1:], "%d", &n)
		return err == nil && n >= 1 && n <= 12 && fmt.Sprint(n) == k[1:]
	}
	return false
}

func ParseSpec(s string) (Spec, error) {
	var spec Spec
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		last := i == len(parts)-1
		switch {
		case !last && (p == "ctrl" || p == "control"):
			spec.Ctrl = true
		case !last && p == "shift":
			spec.Shift = true
		case !last && (p == "alt" || p == "option"):
			spec.Alt = true
		case last && validKey(p):
			spec.Key = p
		default:
			return Spec{}, fmt.Errorf("hotkey %q: unknown key %q", s, p)
		}
	}
	if spec.Key == "rightctrl" && (spec.Ctrl || spec.Shift || spec.Alt) {
		return Spec{}, fmt.Errorf("hotkey %q: rightctrl cannot take modifiers", s)
	}
	if spec.Key == "space" && !spec.Ctrl && !spec.Shift && !spec.Alt {
		return Spec{}, fmt.Errorf("hotkey %q: space needs a modifier", s)
	}
	return spec, nil
}

// Handler receives hotkey edges.
type Handler interface {
	Press()
	Release()
}

// Forward delivers edges from hk to h until ctx ends. Edges are consumed
// strictly in press/release order, so a release is never handled before the
// press it belongs to.
func Forward(ctx context.Context, hk Hotkey, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-hk.Keydown():
		}
		h.Press()

		select {
		case <-ctx.Done():
			h.Release()
			return ctx.Err()
		case <-hk.Keyup():
		}
		h.Release()
	}
}
