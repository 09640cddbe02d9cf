// Package progress renders the deploy command's step lines and spinners.
//
// Blocking work (remote calls, poll loops) runs on a background goroutine
// supervised through a threadctl pair, while the foreground animates the
// spinner and watches the control for completion or a fault.
package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/artpar/caravel/internal/threadctl"
)

var (
	stepPrefix  = color.New(color.FgCyan, color.Bold)
	failSuffix  = color.New(color.FgRed, color.Bold)
	spinFrames  = []string{"-", "\\", "|", "/"}
	spinDefault = 100 * time.Millisecond
)

// Step prints one numbered progress line, e.g. "[2/5] Resolving dependencies...".
func Step(out io.Writer, step, total int, message string) {
	fmt.Fprintf(out, "%s %s\n", stepPrefix.Sprintf("[%d/%d]", step, total), message)
}

// Options configures a spinner line.
type Options struct {
	// Message is the text shown left of the spinner and kept on the final
	// line, e.g. "Deploying api".
	Message string

	// Interval between spinner frames. Zero means the default.
	Interval time.Duration
}

// Wait runs fn on a background goroutine and spins until it finishes.
//
// fn reports a final status suffix such as "(Deployed)"; on success the
// spinner line is replaced with "message status". The flag handed to fn
// lets long loops poll for interruption. If fn panics, the control's
// interrupt bit is set by the supervisor and Wait surfaces a generic
// failure instead of crashing the render loop.
func Wait(out io.Writer, opts Options, fn func(flag *threadctl.Flag) (string, error)) error {
	interval := opts.Interval
	if interval == 0 {
		interval = spinDefault
	}

	var (
		status string
		err    error
	)
	control := threadctl.Go(func(flag *threadctl.Flag) {
		status, err = fn(flag)
	})

	frame := 0
	for !control.IsDone() {
		fmt.Fprintf(out, "\r%s %s", opts.Message, spinFrames[frame%len(spinFrames)])
		frame++
		time.Sleep(interval)
	}

	if control.IsInterrupted() && err == nil {
		err = fmt.Errorf("%s: background task aborted", opts.Message)
	}

	if err != nil {
		fmt.Fprintf(out, "\r%s %s\n", opts.Message, failSuffix.Sprint("(FAIL)"))
		return err
	}

	fmt.Fprintf(out, "\r%s %s\n", opts.Message, status)
	return nil
}

// Println prints an indented plain line, used for entries that finish
// instantly and never spin (groups).
func Println(out io.Writer, message string) {
	fmt.Fprintf(out, "          %s\n", message)
}
