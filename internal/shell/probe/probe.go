// Package probe executes check and healthcheck commands on the local host.
package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/artpar/caravel/internal/core/module"
)

// Result is the outcome of a probe execution.
type Result struct {
	ExitCode int
	Output   []byte // combined stdout and stderr
}

// Success reports whether the probe passed.
func (r Result) Success() bool { return r.ExitCode == 0 }

// Run executes an argument vector and captures its combined output.
// A non-zero exit is a failed probe, not an error; errors are reserved for
// probes that could not run at all (missing binary, bad working dir).
func Run(ctx context.Context, argv []string, workingDir string, env map[string]string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, errors.New("probe has no command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = workingDir
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{ExitCode: exitErr.ExitCode(), Output: out}, nil
		}
		return Result{}, fmt.Errorf("run probe %q: %w", argv[0], err)
	}

	return Result{ExitCode: 0, Output: out}, nil
}

// RunCheck executes a pre-deploy check definition.
func RunCheck(ctx context.Context, check module.CheckDefinition) (Result, error) {
	return Run(ctx, check.Probe, check.WorkingDir, nil)
}

// Runner is the probe execution dependency of the deploy engine, satisfied
// by RunCheck. Tests substitute their own.
type Runner func(ctx context.Context, check module.CheckDefinition) (Result, error)
