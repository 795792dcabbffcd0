package tray

import (
	"sync/atomic"

	"fyne.io/systray"
)

type systrayUI struct{}

func (systrayUI) SetIcon(b []byte)    { systray.SetIcon(b) }
func (systrayUI) SetTitle(s string)   { systray.SetTitle(s) }
func (systrayUI) SetTooltip(s string) { systray.SetTooltip(s) }

var running atomic.Bool

func New() *Tray { return newTray(systrayUI{}) }

// Start shows the icon. It returns immediately.
func (t *Tray) Start() {
	running.Store(true)
	start(t.onReady, t.onExit)
}

// Stop removes the icon if Start was called.
func (t *Tray) Stop() {
	if running.CompareAndSwap(true, false) {
		systray.Quit()
	}
}

func (t *Tray) onReady() {
	t.markReady()
	mExit := systray.AddMenuItem("Exit", "Quit push-to-talk")
	go func() {
		select {
		case <-mExit.ClickedCh:
			t.Quit()
		case <-t.quit:
		}
	}()
}

func (t *Tray) onExit() {
	t.Quit()
}
