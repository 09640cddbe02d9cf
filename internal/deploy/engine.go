// Package deploy drives the rollout of a selected set of modules against
// the daemon: dependency resolution, pre-deploy checks, kind-specific
// deployment, and post-deploy health confirmation.
//
// The engine is fail-fast: the first check failure, deploy failure, or
// unhealthy service aborts the rest of the run. Modules deployed before
// the failure are left as-is; there is no rollback.
package deploy

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/artpar/caravel/internal/api"
	"github.com/artpar/caravel/internal/core/dependency"
	"github.com/artpar/caravel/internal/core/module"
	"github.com/artpar/caravel/internal/shell/probe"
	"github.com/artpar/caravel/internal/shell/progress"
	"github.com/artpar/caravel/internal/threadctl"
)

const totalSteps = 5

var (
	nameStyle = color.New(color.FgWhite, color.Bold)
	okStyle   = color.New(color.FgGreen, color.Bold)
	dimStyle  = color.New(color.Faint)
)

// Backend is the remote execution surface the engine needs. The HTTP
// client satisfies it; tests substitute a recording fake.
type Backend interface {
	Deploy(ctx context.Context, def api.ModuleDefinition, force bool) (*api.DeployResponse, error)
	DeployTask(ctx context.Context, def api.ModuleDefinition) (*api.TaskDeployResponse, error)
	PollHealth(ctx context.Context, handle string) (*api.HealthResponse, error)
}

// Config configures an Engine.
type Config struct {
	// Backend executes deploys and health polls. Required.
	Backend Backend

	// RunCheck executes pre-deploy check probes. Defaults to probe.RunCheck.
	RunCheck probe.Runner

	// Out receives progress output. Defaults to os.Stdout.
	Out io.Writer

	// PollInterval is the sleep between health polls while the daemon
	// reports Pending. Default: 2 seconds.
	PollInterval time.Duration

	// SpinInterval is the spinner frame interval. Default: 100ms.
	SpinInterval time.Duration
}

// Engine orchestrates one deployment run at a time. It holds no state
// between runs.
type Engine struct {
	backend      Backend
	runCheck     probe.Runner
	out          io.Writer
	pollInterval time.Duration
	spinInterval time.Duration

	sleep func(time.Duration)
}

// New creates an engine from cfg, applying defaults.
func New(cfg Config) *Engine {
	e := &Engine{
		backend:      cfg.Backend,
		runCheck:     cfg.RunCheck,
		out:          cfg.Out,
		pollInterval: cfg.PollInterval,
		spinInterval: cfg.SpinInterval,
		sleep:        time.Sleep,
	}
	if e.runCheck == nil {
		e.runCheck = probe.RunCheck
	}
	if e.out == nil {
		e.out = os.Stdout
	}
	if e.pollInterval == 0 {
		e.pollInterval = 2 * time.Second
	}
	return e
}

// =============================================================================
// Run
// =============================================================================

// Deploy rolls out the requested modules in dependency order and returns
// the names of all modules that completed handling, in that order.
//
// defs is the full parsed manifest, checks included; requested selects the
// roots. Any failure aborts the run immediately with no further remote
// calls.
func (e *Engine) Deploy(ctx context.Context, defs []module.Definition, requested []string, opts Options) ([]string, error) {
	progress.Step(e.out, 1, totalSteps, "Collecting module definitions...")
	deployable, checks := module.SplitChecks(defs)

	progress.Step(e.out, 2, totalSteps, "Resolving dependencies...")
	ordered, err := dependency.Resolve(deployable, requested)
	if err != nil {
		return nil, err
	}

	if err := e.runChecks(ctx, checks, ordered, opts); err != nil {
		return nil, err
	}

	progress.Step(e.out, 4, totalSteps, "Deploying...")
	for _, n := range ordered {
		switch n.Value.Kind {
		case module.KindTask:
			err = e.deployTask(ctx, n.Value, opts)
		case module.KindService:
			err = e.deployService(ctx, n, opts)
		case module.KindGroup:
			e.deployGroup(n.Value)
		}
		if err != nil {
			return nil, err
		}
	}

	names := make([]string, len(ordered))
	for i, n := range ordered {
		names[i] = n.Value.Name
	}
	progress.Step(e.out, 5, totalSteps, fmt.Sprintf("%s: %v", okStyle.Sprint("Deployed modules"), names))
	return names, nil
}

// =============================================================================
// Check Phase
// =============================================================================

func (e *Engine) runChecks(ctx context.Context, checks map[string]module.CheckDefinition, ordered []*dependency.Node, opts Options) error {
	if opts.SkipChecks {
		progress.Step(e.out, 3, totalSteps, "Running checks... "+dimStyle.Sprint("(Skip)"))
		return nil
	}

	progress.Step(e.out, 3, totalSteps, "Running checks...")
	for _, n := range ordered {
		for _, name := range n.Value.Checks {
			check, ok := checks[name]
			if !ok {
				return &CheckNotDefinedError{Name: name}
			}
			if err := e.performCheck(ctx, check); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) performCheck(ctx context.Context, check module.CheckDefinition) error {
	opts := progress.Options{
		Message:  fmt.Sprintf("Check %s (%s)", nameStyle.Sprint(check.About), check.Name),
		Interval: e.spinInterval,
	}
	return progress.Wait(e.out, opts, func(_ *threadctl.Flag) (string, error) {
		result, err := e.runCheck(ctx, check)
		if err != nil {
			return "", err
		}
		if !result.Success() {
			return "", &CheckFailedError{About: check.About, Help: check.Help}
		}
		return okStyle.Sprint("(OK)"), nil
	})
}

// =============================================================================
// Deploy Phase
// =============================================================================

func (e *Engine) deployTask(ctx context.Context, def *module.Definition, opts Options) error {
	spin := progress.Options{
		Message:  "Running task " + nameStyle.Sprint(def.Name),
		Interval: e.spinInterval,
	}
	return progress.Wait(e.out, spin, func(_ *threadctl.Flag) (string, error) {
		if _, err := e.backend.DeployTask(ctx, toWire(def, opts.EnvironmentSets)); err != nil {
			return "", err
		}
		return okStyle.Sprint("(Done)"), nil
	})
}

func (e *Engine) deployService(ctx context.Context, n *dependency.Node, opts Options) error {
	def := n.Value

	var resp *api.DeployResponse
	spin := progress.Options{
		Message:  "Deploying " + nameStyle.Sprint(def.Name),
		Interval: e.spinInterval,
	}
	err := progress.Wait(e.out, spin, func(_ *threadctl.Flag) (string, error) {
		r, err := e.backend.Deploy(ctx, toWire(def, opts.EnvironmentSets), opts.ForceDeploy)
		if err != nil {
			return "", err
		}
		resp = r
		if r.Deployed {
			return okStyle.Sprint("(Deployed)"), nil
		}
		return dimStyle.Sprint("(Already deployed)"), nil
	})
	if err != nil {
		return err
	}

	wait := n.Marker == dependency.MarkerWaitHealthcheck || def.AlwaysWaitHealthcheck
	if resp.Monitor != "" && wait && !opts.SkipHealthchecks {
		return e.waitUntilHealthy(ctx, def.Name, resp.Monitor)
	}
	return nil
}

func (e *Engine) deployGroup(def *module.Definition) {
	progress.Println(e.out, fmt.Sprintf("Group %s %s", nameStyle.Sprint(def.Name), okStyle.Sprint("(Done)")))
}

// =============================================================================
// Health Wait
// =============================================================================

// waitUntilHealthy polls the daemon until the monitored deployment reaches
// a terminal health status. The loop has no client-side time bound:
// termination is delegated to the daemon's own retry budget (the
// RetriesExceeded verdict).
func (e *Engine) waitUntilHealthy(ctx context.Context, name, handle string) error {
	opts := progress.Options{
		Message:  "Waiting for " + nameStyle.Sprint(name) + " to be healthy",
		Interval: e.spinInterval,
	}
	return progress.Wait(e.out, opts, func(flag *threadctl.Flag) (string, error) {
		for flag.Alive() {
			resp, err := e.backend.PollHealth(ctx, handle)
			if err != nil {
				return "", err
			}

			if resp.HealthcheckStatus == nil {
				e.sleep(e.pollInterval)
				continue
			}

			switch *resp.HealthcheckStatus {
			case api.HealthSuccessful:
				return okStyle.Sprint("(Done)"), nil
			case api.HealthRetriesExceeded:
				return "", &HealthTimeoutError{Module: name}
			case api.HealthError:
				return "", &HealthConfigError{Module: name}
			case api.HealthPending:
				e.sleep(e.pollInterval)
			}
		}
		return "", fmt.Errorf("health wait for %q stopped", name)
	})
}

// =============================================================================
// Wire Conversion
// =============================================================================

// toWire converts a manifest definition to its daemon-facing shape, with
// the requested environment sets already folded into the environment.
func toWire(def *module.Definition, envSets []string) api.ModuleDefinition {
	wire := api.ModuleDefinition{
		Name:         def.Name,
		Command:      def.Command,
		Environment:  def.MergedEnvironment(envSets),
		LogFilePath:  def.LogFilePath,
		Dependencies: def.Dependencies,
		WorkingDir:   def.WorkingDir,
	}
	if def.Healthcheck != nil {
		wire.Healthcheck = &api.Healthcheck{
			Type:            def.Healthcheck.Type,
			Command:         def.Healthcheck.Command,
			WorkingDir:      def.Healthcheck.WorkingDir,
			Host:            def.Healthcheck.Host,
			Port:            def.Healthcheck.Port,
			Retries:         def.Healthcheck.Retries,
			IntervalSeconds: def.Healthcheck.IntervalSeconds,
		}
	}
	return wire
}
