//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
	keyLCtrl   = 29
	keyRCtrl   = 97
	keyLShift  = 42
	keyRShift  = 54
	keyLAlt    = 56
	keyRAlt    = 100
)

const inputEventSize = 24

// US layout evdev codes for a..z.
var letterCodes = [26]uint16{
	30, 48, 46, 32, 18, 33, 34, 35, 23, 36,
	37, 38, 50, 49, 24, 25, 16, 19, 31, 20,
	22, 47, 17, 45, 21, 44,
}

var namedCodes = map[string]uint16{
	"space": 57, "rightctrl": keyRCtrl,
	"f1": 59, "f2": 60, "f3": 61, "f4": 62, "f5": 63, "f6": 64,
	"f7": 65, "f8": 66, "f9": 67, "f10": 68, "f11": 87, "f12": 88,
}

func codeFor(name string) (uint16, bool) {
	if len(name) == 1 && name[0] >= 'a' && name[0] <= 'z' {
		return letterCodes[name[0]-'a'], true
	}
	c, ok := namedCodes[name]
	return c, ok
}

type linuxHotkey struct {
	spec    Spec
	code    uint16
	keydown chan struct{}
	keyup   chan struct{}
	files   []*os.File
	stop    chan struct{}
	once    sync.Once
}

// New reads raw evdev events, which works under both X11 and Wayland but
// needs read access to /dev/input (the "input" group).
func New(spec Spec) (Hotkey, error) {
	code, ok := codeFor(spec.Key)
	if !ok {
		return nil, fmt.Errorf("hotkey %s is not supported", spec)
	}
	return &linuxHotkey{
		spec:    spec,
		code:    code,
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}, nil
}

func (h *linuxHotkey) Register() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	h.stop = make(chan struct{})
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		go h.readEvents(f)
	}
	if len(h.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}
	return nil
}

// modifiers tracks held modifier keys on one device.
type modifiers struct {
	ctrl, shift, alt bool
}

func (m *modifiers) update(code uint16, pressed, released bool, own uint16) {
	set := func(held *bool) {
		*held = pressed || (!released && *held)
	}
	switch code {
	case own:
		// the hotkey itself never counts as a modifier
	case keyLCtrl, keyRCtrl:
		set(&m.ctrl)
	case keyLShift, keyRShift:
		set(&m.shift)
	case keyLAlt, keyRAlt:
		set(&m.alt)
	}
}

func (m modifiers) satisfy(s Spec) bool {
	return (!s.Ctrl || m.ctrl) && (!s.Shift || m.shift) && (!s.Alt || m.alt)
}

// edge decodes one event and reports whether it starts (+1) or ends (-1)
// the hotkey press. held is the caller's per-device state.
func (h *linuxHotkey) edge(code uint16, value int32, mods *modifiers, held *bool) int {
	pressed := value == keyPress
	released := value == keyRelease
	mods.update(code, pressed, released, h.code)
	if code != h.code {
		return 0
	}
	switch {
	case pressed && !*held && mods.satisfy(h.spec):
		*held = true
		return 1
	case released && *held:
		*held = false
		return -1
	}
	return 0
}

func (h *linuxHotkey) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	var mods modifiers
	var held bool

	for {
		select {
		case <-h.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}
		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			if binary.LittleEndian.Uint16(buf[i+16:]) != evKey {
				continue
			}
			code := binary.LittleEndian.Uint16(buf[i+18:])
			value := int32(binary.LittleEndian.Uint32(buf[i+20:]))
			var ch chan struct{}
			switch h.edge(code, value, &mods, &held) {
			case 1:
				ch = h.keydown
			case -1:
				ch = h.keyup
			default:
				continue
			}
			select {
			case ch <- struct{}{}:
			case <-h.stop:
				return
			}
		}
	}
}

func (h *linuxHotkey) Unregister() {
	h.once.Do(func() {
		if h.stop != nil {
			close(h.stop)
		}
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *linuxHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *linuxHotkey) Keyup() <-chan struct{} {
	return h.keyup
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}
	var keyboards []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "event") && isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

// isKeyboard treats any device with a wide key capability bitmap as a keyboard.
func isKeyboard(eventName string) bool {
	data, err := os.ReadFile(filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key"))
	if err != nil {
		return false
	}
	name, _ := os.ReadFile(filepath.Join("/sys/class/input", eventName, "device", "name"))
	if strings.TrimSpace(string(name)) == "ptt-keyboard" {
		return false // our own virtual typing device
	}
	return len(strings.TrimSpace(string(data))) > 10
}

func Diagnose(spec Spec) (string, error) {
	if _, ok := codeFor(spec.Key); !ok {
		return "", fmt.Errorf("hotkey %s is not supported", spec)
	}
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}
	for _, path := range keyboards {
		if f, err := os.Open(path); err == nil {
			f.Close()
			return fmt.Sprintf("%d keyboard(s) found, opened %s, listening for %s; %s", len(keyboards), path, spec, passthroughNote(spec)), nil
		}
	}
	return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
}

// passthroughNote explains that evdev only observes keys: the chord is not
// grabbed, so the focused application also receives it.
func passthroughNote(spec Spec) string {
	return fmt.Sprintf("%s is not suppressed and also reaches the focused window", spec)
}
