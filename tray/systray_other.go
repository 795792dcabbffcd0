//go:build !darwin

package tray

import (
	"runtime"

	"fyne.io/systray"
)

func start(onReady, onExit func()) {
	go func() {
		// the native loop must stay on the thread that created the icon
		runtime.LockOSThread()
		systray.Run(onReady, onExit)
	}()
}
