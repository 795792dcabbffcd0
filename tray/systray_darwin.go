package tray

import (
	"fyne.io/systray"
	"golang.design/x/hotkey/mainthread"
)

// AppKit requires the status item to be created on the main thread.
func start(onReady, onExit func()) {
	begin, _ := systray.RunWithExternalLoop(onReady, onExit)
	mainthread.Call(begin)
}
