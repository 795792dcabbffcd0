//go:build windows

package window

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                   = windows.NewLazySystemDLL("user32.dll")
	procGetWindowTextW       = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW = user32.NewProc("GetWindowTextLengthW")
	procGetWindowRect        = user32.NewProc("GetWindowRect")
	procSetForegroundWindow  = user32.NewProc("SetForegroundWindow")
	procIsIconic             = user32.NewProc("IsIconic")
	procShowWindow           = user32.NewProc("ShowWindow")
)

const swRestore = 9

type winResolver struct {
	pid uint32
}

func New() (Resolver, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("loading user32: %w", err)
	}
	return &winResolver{pid: uint32(os.Getpid())}, nil
}

func (r *winResolver) Focused() (Target, bool) {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return Target{}, false
	}
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid == r.pid {
		return Target{}, false
	}
	return Target{
		Handle: Handle(hwnd),
		Label:  Truncate(windowText(hwnd)),
		Rect:   windowRect(hwnd),
	}, true
}

func (r *winResolver) Activate(h Handle) error {
	hwnd := windows.HWND(h)
	if h == 0 || !windows.IsWindow(hwnd) {
		return ErrNoWindow
	}
	if iconic, _, _ := procIsIconic.Call(uintptr(hwnd)); iconic != 0 {
		procShowWindow.Call(uintptr(hwnd), swRestore)
	}
	if ok, _, err := procSetForegroundWindow.Call(uintptr(hwnd)); ok == 0 {
		return fmt.Errorf("SetForegroundWindow: %w", err)
	}
	return nil
}

func windowText(hwnd windows.HWND) string {
	n, _, _ := procGetWindowTextLengthW.Call(uintptr(hwnd))
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf)
}

func windowRect(hwnd windows.HWND) Rect {
	var rc windows.Rect
	if ok, _, _ := procGetWindowRect.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&rc))); ok == 0 {
		return Rect{}
	}
	return Rect{Left: int(rc.Left), Top: int(rc.Top), Right: int(rc.Right), Bottom: int(rc.Bottom)}
}
