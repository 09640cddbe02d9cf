package progress

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/caravel/internal/threadctl"
)

func TestStep(t *testing.T) {
	var buf bytes.Buffer
	Step(&buf, 2, 5, "Resolving dependencies...")
	assert.Contains(t, buf.String(), "[2/5]")
	assert.Contains(t, buf.String(), "Resolving dependencies...")
}

func TestWait_Success(t *testing.T) {
	var buf bytes.Buffer
	err := Wait(&buf, Options{Message: "Deploying api", Interval: time.Millisecond},
		func(_ *threadctl.Flag) (string, error) {
			return "(Deployed)", nil
		})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Deploying api")
	assert.Contains(t, buf.String(), "(Deployed)")
}

func TestWait_Error(t *testing.T) {
	var buf bytes.Buffer
	wantErr := errors.New("daemon unreachable")
	err := Wait(&buf, Options{Message: "Deploying api", Interval: time.Millisecond},
		func(_ *threadctl.Flag) (string, error) {
			return "", wantErr
		})

	assert.ErrorIs(t, err, wantErr)
	assert.Contains(t, buf.String(), "(FAIL)")
}

func TestWait_BackgroundPanicBecomesError(t *testing.T) {
	var buf bytes.Buffer
	err := Wait(&buf, Options{Message: "Check db", Interval: time.Millisecond},
		func(_ *threadctl.Flag) (string, error) {
			panic("probe exploded")
		})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "aborted")
}

func TestWait_ResultVisibleAfterCompletion(t *testing.T) {
	// The foreground only reads fn's results after IsDone flips, so slow
	// background work must still surface its values.
	var buf bytes.Buffer
	err := Wait(&buf, Options{Message: "Waiting", Interval: time.Millisecond},
		func(_ *threadctl.Flag) (string, error) {
			time.Sleep(20 * time.Millisecond)
			return "(Done)", nil
		})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "(Done)")
}
