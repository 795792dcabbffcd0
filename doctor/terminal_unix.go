//go:build !windows

package doctor

import "os/exec"

// The evdev and uinput checks can leave the tty in raw mode.
func resetTerminal() {
	exec.Command("stty", "sane").Run()
}
