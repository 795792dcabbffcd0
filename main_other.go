//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

// The hotkey and tray backends need the OS main thread; run continues on
// another goroutine.
func main() {
	mainthread.Init(run)
}
