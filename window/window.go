// Package window discovers the focused top-level window and brings it back
// to the foreground before text is injected.
package window

import (
	"errors"
	"fmt"
)

// Handle is an opaque OS window identifier. Zero means no window.
type Handle uintptr

// Rect is a window bounding box in screen coordinates.
type Rect struct {
	Left, Top, Right, Bottom int
}

func (r Rect) Width() int  { return r.Right - r.Left }
func (r Rect) Height() int { return r.Bottom - r.Top }
func (r Rect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Target identifies the window that had focus when recording began.
type Target struct {
	Handle Handle
	Label  string
	Rect   Rect
}

func (t Target) Valid() bool { return t.Handle != 0 }

func (t Target) String() string {
	if !t.Valid() {
		return "<none>"
	}
	return fmt.Sprintf("%q (0x%x)", t.Label, uintptr(t.Handle))
}

var ErrNoWindow = errors.New("window no longer exists")

// Resolver is the OS focus collaborator.
//
// Focused reports the current foreground window. It returns false when there
// is none or when it belongs to this process.
type Resolver interface {
	Focused() (Target, bool)
	Activate(h Handle) error
}

const MaxLabel = 40

// Truncate shortens a window title to MaxLabel runes, appending "…" when cut.
func Truncate(title string) string {
	r := []rune(title)
	if len(r) <= MaxLabel {
		return title
	}
	return string(r[:MaxLabel]) + "…"
}
