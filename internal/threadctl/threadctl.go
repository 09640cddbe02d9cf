// Package threadctl provides a flag/control pair for supervising one
// background goroutine from a foreground caller.
//
// The Flag is owned by the background goroutine, which polls it between
// units of work. The Control stays with the foreground, which can stop the
// goroutine cooperatively, interrupt it forcefully, and observe whether it
// has exited or faulted. The pair shares two atomic bits and nothing else:
// there are no locks and no channels, so a liveness poll inside a tight
// loop stays cheap.
package threadctl

import (
	"errors"
	"sync/atomic"
)

// ErrInterrupted is the panic value raised by Flag.Alive after the
// interrupt bit is set.
var ErrInterrupted = errors.New("interrupted by thread control")

type shared struct {
	alive     atomic.Bool
	interrupt atomic.Bool
	done      atomic.Bool
}

// =============================================================================
// Flag (background side)
// =============================================================================

// Flag is the background goroutine's view of the pair.
type Flag struct {
	s *shared
}

// Alive reports whether the goroutine should keep running. It panics with
// ErrInterrupted when the foreground has interrupted the pair, so a loop
// polling Alive aborts at its next check.
func (f *Flag) Alive() bool {
	if f.s.interrupt.Load() {
		panic(ErrInterrupted)
	}
	return f.s.alive.Load()
}

// IsAlive reports whether the pair is neither stopped nor interrupted.
// Unlike Alive it never panics; use it when an abort should be handled as
// an ordinary loop exit.
func (f *Flag) IsAlive() bool {
	return f.s.alive.Load() && !f.s.interrupt.Load()
}

// Interrupt sets the shared interrupt bit from the background side.
func (f *Flag) Interrupt() {
	f.s.interrupt.Store(true)
}

// =============================================================================
// Control (foreground side)
// =============================================================================

// Control is the foreground's view of the pair. It observes the background
// goroutine without owning it and stays valid after the goroutine exits.
type Control struct {
	s *shared
}

// Interrupt sets the shared interrupt bit. The background goroutine's next
// Alive call panics with ErrInterrupted.
func (c *Control) Interrupt() {
	c.s.interrupt.Store(true)
}

// Stop clears the liveness bit. The background goroutine observes this via
// IsAlive or Alive returning false; nothing panics.
func (c *Control) Stop() {
	c.s.alive.Store(false)
}

// IsDone reports whether the background goroutine has fully exited,
// normally or by panic.
func (c *Control) IsDone() bool {
	return c.s.done.Load()
}

// IsInterrupted reports whether the pair was interrupted or the background
// goroutine faulted.
func (c *Control) IsInterrupted() bool {
	return c.s.interrupt.Load()
}

// =============================================================================
// Construction
// =============================================================================

// NewPair creates a connected flag and control. Callers that spawn their
// own goroutine must call the flag's release via Go instead; NewPair alone
// never marks the pair done.
func NewPair() (*Flag, *Control) {
	s := &shared{}
	s.alive.Store(true)
	return &Flag{s: s}, &Control{s: s}
}

// Go runs fn on a new goroutine and returns the control for it. When fn
// returns the pair is marked done; when fn panics the interrupt bit is set
// first so the foreground can tell a fault from a normal exit. A panic
// raised by Flag.Alive after Control.Interrupt is swallowed here, since the
// foreground already knows it asked for the abort.
func Go(fn func(*Flag)) *Control {
	flag, control := NewPair()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				flag.s.interrupt.Store(true)
			}
			flag.s.done.Store(true)
		}()
		fn(flag)
	}()
	return control
}
