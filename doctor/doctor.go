// Package doctor runs interactive diagnostics for the pieces push-to-talk
// depends on: hotkey, microphone, transcription endpoint, window focus and
// keystroke output.
package doctor

import (
	"context"
	"fmt"
	"io"
)

// Check is one diagnostic. Run returns a short detail line on success.
type Check struct {
	Name string
	Hint string // printed on failure
	Run  func(ctx context.Context) (string, error)
}

// Run executes checks in order and returns an exit code (0 all pass,
// 1 any fail). A cancelled ctx stops before the next check.
func Run(ctx context.Context, w io.Writer, checks []Check) int {
	resetTerminal()
	fmt.Fprintln(w, "ptt doctor - system diagnostics")
	fmt.Fprintln(w, "===============================")

	failed := 0
	for i, c := range checks {
		if ctx.Err() != nil {
			fmt.Fprintln(w, "\nInterrupted")
			return 1
		}
		fmt.Fprintf(w, "\n[%d/%d] %s\n", i+1, len(checks), c.Name)
		detail, err := c.Run(ctx)
		resetTerminal()
		if err != nil {
			failed++
			fmt.Fprintf(w, "  FAIL: %v\n", err)
			if c.Hint != "" {
				fmt.Fprintf(w, "  %s\n", c.Hint)
			}
			continue
		}
		fmt.Fprintf(w, "  PASS: %s\n", detail)
	}

	fmt.Fprintln(w)
	if failed > 0 {
		fmt.Fprintf(w, "%d of %d checks failed. See details above.\n", failed, len(checks))
		return 1
	}
	fmt.Fprintln(w, "All checks passed!")
	return 0
}
