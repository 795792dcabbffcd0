//go:build linux

package window

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const xdotoolTimeout = 2 * time.Second

// xdoResolver shells out to xdotool, which works on X11 and XWayland.
type xdoResolver struct {
	bin string
	pid int
}

func New() (Resolver, error) {
	bin, err := exec.LookPath("xdotool")
	if err != nil {
		return nil, fmt.Errorf("xdotool not found (install it for focus tracking): %w", err)
	}
	return &xdoResolver{bin: bin, pid: os.Getpid()}, nil
}

func (r *xdoResolver) run(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), xdotoolTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, r.bin, args...).Output()
	if err != nil {
		return "", fmt.Errorf("xdotool %s: %w", args[0], err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (r *xdoResolver) Focused() (Target, bool) {
	out, err := r.run("getactivewindow")
	if err != nil {
		return Target{}, false
	}
	id, err := strconv.ParseUint(out, 10, 64)
	if err != nil || id == 0 {
		return Target{}, false
	}
	w := strconv.FormatUint(id, 10)
	if pidStr, err := r.run("getwindowpid", w); err == nil {
		if pid, _ := strconv.Atoi(pidStr); pid == r.pid {
			return Target{}, false
		}
	}
	t := Target{Handle: Handle(id)}
	if name, err := r.run("getwindowname", w); err == nil {
		t.Label = Truncate(name)
	}
	if geo, err := r.run("getwindowgeometry", "--shell", w); err == nil {
		t.Rect = parseShellGeometry(geo)
	}
	return t, true
}

func (r *xdoResolver) Activate(h Handle) error {
	if h == 0 {
		return ErrNoWindow
	}
	w := strconv.FormatUint(uint64(h), 10)
	if _, err := r.run("getwindowname", w); err != nil {
		return ErrNoWindow
	}
	_, err := r.run("windowactivate", "--sync", w)
	return err
}

// parseShellGeometry reads the KEY=VALUE lines of
// "xdotool getwindowgeometry --shell".
func parseShellGeometry(s string) Rect {
	var x, y, w, h int
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		k, v, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		switch k {
		case "X":
			x = n
		case "Y":
			y = n
		case "WIDTH":
			w = n
		case "HEIGHT":
			h = n
		}
	}
	return Rect{Left: x, Top: y, Right: x + w, Bottom: y + h}
}
