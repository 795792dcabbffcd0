//go:build darwin

package window

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// On macOS the handle is the pid of the frontmost application; activation
// raises that application, whose key window receives the keystrokes.

const frontScript = `tell application "System Events"
	set p to first application process whose frontmost is true
	set out to (unix id of p as text)
	try
		set w to front window of p
		set {x, y} to position of w
		set {ww, hh} to size of w
		set out to out & linefeed & x & linefeed & y & linefeed & ww & linefeed & hh & linefeed & (name of w)
	on error
		set out to out & linefeed & 0 & linefeed & 0 & linefeed & 0 & linefeed & 0 & linefeed & (name of p)
	end try
	return out
end tell`

const activateScript = `tell application "System Events" to set frontmost of (first process whose unix id is %d) to true`

type scriptResolver struct {
	pid int
}

func New() (Resolver, error) {
	if _, err := exec.LookPath("osascript"); err != nil {
		return nil, fmt.Errorf("osascript not found: %w", err)
	}
	return &scriptResolver{pid: os.Getpid()}, nil
}

func osascript(script string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "osascript", "-e", script).Output()
	if err != nil {
		return "", fmt.Errorf("osascript: %w", err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func (r *scriptResolver) Focused() (Target, bool) {
	out, err := osascript(frontScript)
	if err != nil {
		return Target{}, false
	}
	lines := strings.SplitN(out, "\n", 6)
	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil || pid <= 0 || pid == r.pid {
		return Target{}, false
	}
	t := Target{Handle: Handle(pid)}
	if len(lines) == 6 {
		n := make([]int, 4)
		for i := range n {
			n[i], _ = strconv.Atoi(strings.TrimSpace(lines[i+1]))
		}
		t.Rect = Rect{Left: n[0], Top: n[1], Right: n[0] + n[2], Bottom: n[1] + n[3]}
		t.Label = Truncate(lines[5])
	}
	return t, true
}

func (r *scriptResolver) Activate(h Handle) error {
	if h == 0 {
		return ErrNoWindow
	}
	if _, err := os.FindProcess(int(h)); err != nil {
		return ErrNoWindow
	}
	if _, err := osascript(fmt.Sprintf(activateScript, int(h))); err != nil {
		return fmt.Errorf("%w: %v", ErrNoWindow, err)
	}
	return nil
}
