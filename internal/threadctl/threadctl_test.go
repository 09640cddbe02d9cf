package threadctl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, c *Control) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !c.IsDone() {
		select {
		case <-deadline:
			t.Fatal("background goroutine did not finish")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestGo_DoneAfterNormalExit(t *testing.T) {
	control := Go(func(flag *Flag) {})

	waitDone(t, control)
	assert.True(t, control.IsDone())
	assert.False(t, control.IsInterrupted())
}

func TestControl_InterruptMakesAlivePanic(t *testing.T) {
	started := make(chan struct{})
	var sawPanic bool

	control := Go(func(flag *Flag) {
		close(started)
		defer func() {
			if r := recover(); r != nil {
				sawPanic = true
				panic(r) // re-raise so Go marks the fault
			}
		}()
		for flag.Alive() {
			time.Sleep(time.Millisecond)
		}
	})

	<-started
	control.Interrupt()

	waitDone(t, control)
	assert.True(t, sawPanic, "Alive should panic after Interrupt")
	assert.True(t, control.IsInterrupted())
}

func TestControl_StopIsCooperative(t *testing.T) {
	flag, control := NewPair()

	require.True(t, flag.IsAlive())
	control.Stop()

	// Stop never panics; the background side just observes false.
	assert.False(t, flag.IsAlive())
	assert.NotPanics(t, func() { flag.Alive() })
	assert.False(t, flag.Alive())
	assert.False(t, control.IsInterrupted())
}

func TestGo_PanicSetsInterruptBit(t *testing.T) {
	control := Go(func(flag *Flag) {
		panic("boom")
	})

	waitDone(t, control)
	assert.True(t, control.IsDone())
	assert.True(t, control.IsInterrupted(), "a fault in the background goroutine must be observable")
}

func TestGo_StopEndsBackgroundLoop(t *testing.T) {
	control := Go(func(flag *Flag) {
		for flag.IsAlive() {
			time.Sleep(time.Millisecond)
		}
	})

	control.Stop()
	waitDone(t, control)
	assert.False(t, control.IsInterrupted())
}

func TestFlag_InterruptFromBackgroundSide(t *testing.T) {
	flag, control := NewPair()

	flag.Interrupt()
	assert.True(t, control.IsInterrupted())
	assert.False(t, flag.IsAlive())
	assert.PanicsWithValue(t, ErrInterrupted, func() { flag.Alive() })
}
