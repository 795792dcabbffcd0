//go:build linux

package typer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
)

// ioctl numbers from linux/uinput.h
const (
	uiSetEvbit  = 0x40045564
	uiSetKeybit = 0x40045565
	uiDevCreate = 0x5501
)

const (
	evSyn = 0x00
	evKey = 0x01

	keyLeftCtrl  = 29
	keyLeftShift = 42
	keyV         = 47

	busUSB     = 0x03
	deviceName = "ptt-keyboard"
)

type inputEvent struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

type uinputUserDev struct {
	Name         [80]byte
	Bustype      uint16
	Vendor       uint16
	Product      uint16
	Version      uint16
	FfEffectsMax uint32
	Absmax       [64]int32
	Absmin       [64]int32
	Absfuzz      [64]int32
	Absflat      [64]int32
}

type uinput struct {
	f *os.File
}

var (
	shared     *uinput
	sharedOnce sync.Once
	sharedErr  error
)

// New returns a Keyboard backed by a virtual uinput device. The device is
// created once per process.
func New(paste bool) (*Keyboard, error) {
	sharedOnce.Do(func() { shared, sharedErr = openUinput() })
	if sharedErr != nil {
		return nil, sharedErr
	}
	return newKeyboard(shared, paste), nil
}

func ioctl(f *os.File, req, arg uintptr) error {
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), req, arg); errno != 0 {
		return errno
	}
	return nil
}

func openUinput() (*uinput, error) {
	path := "/dev/uinput"
	if _, err := os.Stat(path); err != nil {
		path = "/dev/input/uinput"
		if _, err := os.Stat(path); err != nil {
			return nil, errors.New("uinput device not found, try: sudo modprobe uinput")
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|syscall.O_NONBLOCK, os.ModeDevice)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	setup := func() error {
		if err := ioctl(f, uiSetEvbit, evKey); err != nil {
			return err
		}
		if err := ioctl(f, uiSetEvbit, evSyn); err != nil {
			return err
		}
		// all standard keys, so udev classifies the device as a keyboard
		for code := uintptr(0); code < 256; code++ {
			if err := ioctl(f, uiSetKeybit, code); err != nil {
				return err
			}
		}
		dev := uinputUserDev{Bustype: busUSB, Vendor: 0x1234, Product: 0x5679, Version: 1}
		copy(dev.Name[:], deviceName)
		if err := binary.Write(f, binary.LittleEndian, &dev); err != nil {
			return err
		}
		return ioctl(f, uiDevCreate, 0)
	}
	if err := setup(); err != nil {
		f.Close()
		return nil, fmt.Errorf("creating uinput keyboard: %w", err)
	}
	// compositors need a moment to pick up a new input device
	time.Sleep(200 * time.Millisecond)
	return &uinput{f: f}, nil
}

func (u *uinput) key(code uint16, down bool) error {
	var v int32
	if down {
		v = 1
	}
	if err := binary.Write(u.f, binary.LittleEndian, &inputEvent{Type: evKey, Code: code, Value: v}); err != nil {
		return err
	}
	return binary.Write(u.f, binary.LittleEndian, &inputEvent{Type: evSyn})
}

func (u *uinput) chord(mod, code uint16) error {
	for _, step := range []struct {
		code uint16
		down bool
	}{{mod, true}, {code, true}, {code, false}, {mod, false}} {
		if err := u.key(step.code, step.down); err != nil {
			return err
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}

func (u *uinput) mapped(r rune) bool {
	_, _, ok := runeToKey(r)
	return ok
}

func (u *uinput) tap(r rune) error {
	code, shift, ok := runeToKey(r)
	if !ok {
		return nil
	}
	if shift {
		return u.chord(keyLeftShift, code)
	}
	if err := u.key(code, true); err != nil {
		return err
	}
	return u.key(code, false)
}

func (u *uinput) paste() error {
	return u.chord(keyLeftCtrl, keyV)
}

// US layout key codes from linux/input-event-codes.h, indexed a..z.
var letterKeys = [26]uint16{
	30, 48, 46, 32, 18, 33, 34, 35, 23, 36,
	37, 38, 50, 49, 24, 25, 16, 19, 31, 20,
	22, 47, 17, 45, 21, 44,
}

// 0..9
var digitKeys = [10]uint16{11, 2, 3, 4, 5, 6, 7, 8, 9, 10}

type shiftedKey struct {
	code  uint16
	shift bool
}

var punctKeys = map[rune]shiftedKey{
	' ': {57, false}, '\n': {28, false}, '\t': {15, false},
	'.': {52, false}, ',': {51, false}, '/': {53, false},
	';': {39, false}, '\'': {40, false}, '[': {26, false},
	']': {27, false}, '-': {12, false}, '=': {13, false},
	'\\': {43, false}, '`': {41, false},
	'!': {2, true}, '@': {3, true}, '#': {4, true},
	'$': {5, true}, '%': {6, true}, '^': {7, true},
	'&': {8, true}, '*': {9, true}, '(': {10, true},
	')': {11, true}, '_': {12, true}, '+': {13, true},
	'{': {26, true}, '}': {27, true}, '|': {43, true},
	':': {39, true}, '"': {40, true}, '<': {51, true},
	'>': {52, true}, '?': {53, true}, '~': {41, true},
}

func runeToKey(r rune) (code uint16, shift bool, ok bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return letterKeys[r-'a'], false, true
	case r >= 'A' && r <= 'Z':
		return letterKeys[r-'A'], true, true
	case r >= '0' && r <= '9':
		return digitKeys[r-'0'], false, true
	}
	k, ok := punctKeys[r]
	return k.code, k.shift, ok
}

// Verify creates the virtual keyboard, sends Ctrl+V and reads the events
// back from the kernel to confirm delivery.
func Verify() (string, error) {
	kb, err := New(false)
	if err != nil {
		return "", err
	}

	entries, err := os.ReadDir("/sys/class/input")
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	var evdevPath string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		name, err := os.ReadFile(filepath.Join("/sys/class/input", e.Name(), "device", "name"))
		if err == nil && strings.TrimSpace(string(name)) == deviceName {
			evdevPath = filepath.Join("/dev/input", e.Name())
			break
		}
	}
	if evdevPath == "" {
		return "", errors.New(deviceName + " evdev device not found")
	}
	evdev, err := os.Open(evdevPath)
	if err != nil {
		return "", fmt.Errorf("cannot open %s: %w", evdevPath, err)
	}
	defer evdev.Close()

	if err := kb.dev.paste(); err != nil {
		return "", fmt.Errorf("sending Ctrl+V: %w", err)
	}

	seen := make(chan map[uint16]bool, 1)
	go func() {
		got := map[uint16]bool{}
		buf := make([]byte, 24*32)
		n, _ := evdev.Read(buf)
		for i := 0; i+24 <= n; i += 24 {
			if binary.LittleEndian.Uint16(buf[i+16:]) == evKey {
				got[binary.LittleEndian.Uint16(buf[i+18:])] = true
			}
		}
		seen <- got
	}()
	select {
	case got := <-seen:
		if !got[keyLeftCtrl] || !got[keyV] {
			return "", fmt.Errorf("missing events (ctrl=%v, v=%v)", got[keyLeftCtrl], got[keyV])
		}
		return "keystrokes verified via " + evdevPath, nil
	case <-time.After(500 * time.Millisecond):
		return "", errors.New("timed out waiting for keystroke events")
	}
}
