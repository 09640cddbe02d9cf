// Package module defines the deployable unit model for Caravel: services,
// tasks, groups, and checks, as declared in a module manifest.
//
// This package contains pure types and functions with no I/O. Reading the
// manifest file and talking to the daemon live in the shell layers.
package module

// =============================================================================
// Module Kinds
// =============================================================================

// Kind classifies a module definition.
type Kind string

const (
	// KindTask is a module with a limited lifetime, used to perform some
	// temporary operation or setup step.
	KindTask Kind = "task"

	// KindService is a long-running module whose lifetime is managed by the
	// daemon. It can be started and stopped independently.
	KindService Kind = "service"

	// KindGroup is a purely declarative module that aggregates dependencies
	// and checks. Groups trigger no remote calls.
	KindGroup Kind = "group"

	// KindCheck is a named pre-deploy probe. Checks are never deployed; they
	// are referenced by name from other modules.
	KindCheck Kind = "check"
)

// Valid reports whether k is one of the known module kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindTask, KindService, KindGroup, KindCheck:
		return true
	}
	return false
}

// =============================================================================
// Definitions
// =============================================================================

// Probe types a healthcheck can declare.
const (
	// ProbeExec runs a command; exit code zero means healthy. This is the
	// default when no type is given.
	ProbeExec = "exec"

	// ProbeNet attempts a TCP connection to host:port; a successful dial
	// means healthy.
	ProbeNet = "net"
)

// Healthcheck describes how the daemon probes a service after deployment.
type Healthcheck struct {
	// Type selects the probe mechanism, ProbeExec or ProbeNet. Empty means
	// ProbeExec.
	Type string `yaml:"type,omitempty"`

	// Command is the exec probe's argument vector; exit code zero means
	// healthy.
	Command []string `yaml:"command,omitempty"`

	// WorkingDir is the directory an exec probe runs in. Empty means the
	// daemon's working directory.
	WorkingDir string `yaml:"working_dir,omitempty"`

	// Host and Port are the net probe's dial target.
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// Retries is how many failed probes the daemon tolerates before
	// reporting RetriesExceeded. Zero means the daemon default.
	Retries int `yaml:"retries,omitempty"`

	// IntervalSeconds is the delay between probe attempts. Zero means the
	// daemon default.
	IntervalSeconds int `yaml:"interval_seconds,omitempty"`
}

// Definition is a single module declared in the manifest. Identity is the
// Name field: two definitions are the same module iff their names match.
//
// Which fields are meaningful depends on Kind:
//   - Task, Service: Command, Environment, LogFilePath, WorkingDir
//   - Service only: AlwaysWaitHealthcheck, Healthcheck
//   - Task, Service, Group: Dependencies, Checks
//   - Check only: About, Help, Probe, ProbeWorkingDir
type Definition struct {
	Kind Kind   `yaml:"kind"`
	Name string `yaml:"name"`

	Command     []string          `yaml:"command,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	LogFilePath string            `yaml:"log_file_path,omitempty"`
	WorkingDir  string            `yaml:"working_dir,omitempty"`

	// EnvironmentSets are named overlays on Environment, activated per
	// deploy. A set's values win over the base environment.
	EnvironmentSets map[string]map[string]string `yaml:"environment_sets,omitempty"`

	// Dependencies lists module names that must deploy before this one.
	Dependencies []string `yaml:"dependencies,omitempty"`

	// Checks lists check names to run before this module deploys. These are
	// references, not dependency edges.
	Checks []string `yaml:"checks,omitempty"`

	// AlwaysWaitHealthcheck forces the deploy command to wait for this
	// service's healthcheck even when the service was requested explicitly
	// rather than pulled in as a dependency.
	AlwaysWaitHealthcheck bool `yaml:"always_wait_healthcheck,omitempty"`

	// Healthcheck is the probe the daemon runs for this service.
	Healthcheck *Healthcheck `yaml:"healthcheck,omitempty"`

	// About is a short human label shown while a check runs.
	About string `yaml:"about,omitempty"`

	// Help is the remediation text shown when a check fails.
	Help string `yaml:"help,omitempty"`

	// Probe is the check's executable argument vector.
	Probe []string `yaml:"probe,omitempty"`

	// ProbeWorkingDir is the directory the check probe runs in.
	ProbeWorkingDir string `yaml:"probe_working_dir,omitempty"`
}

// Key returns the module's identity key.
func (d *Definition) Key() string { return d.Name }

// Equal reports whether two definitions denote the same module.
func (d *Definition) Equal(other *Definition) bool {
	return other != nil && d.Name == other.Name
}

// MergedEnvironment returns the module's environment with the named sets
// overlaid. Sets apply in the order given, later sets winning over earlier
// ones and every set winning over the base environment. Sets the module
// does not declare are skipped: set names are per-module, so a deploy
// spanning several modules activates each set only where it is defined.
func (d *Definition) MergedEnvironment(sets []string) map[string]string {
	if len(sets) == 0 {
		return d.Environment
	}

	merged := make(map[string]string, len(d.Environment))
	for k, v := range d.Environment {
		merged[k] = v
	}
	for _, name := range sets {
		for k, v := range d.EnvironmentSets[name] {
			merged[k] = v
		}
	}
	return merged
}

// CheckDefinition is a pre-deploy probe extracted from a kind=check
// definition. About and Help are surfaced to the operator when the probe
// fails.
type CheckDefinition struct {
	Name       string
	About      string
	Help       string
	Probe      []string
	WorkingDir string
}

// =============================================================================
// Collection Helpers
// =============================================================================

// SplitChecks removes kind=check definitions from defs and returns the
// remaining deployable definitions plus a lookup of checks keyed by name.
// Checks never participate in dependency resolution or deployment.
func SplitChecks(defs []Definition) ([]Definition, map[string]CheckDefinition) {
	checks := make(map[string]CheckDefinition)
	deployable := make([]Definition, 0, len(defs))

	for _, d := range defs {
		if d.Kind == KindCheck {
			checks[d.Name] = CheckDefinition{
				Name:       d.Name,
				About:      d.About,
				Help:       d.Help,
				Probe:      d.Probe,
				WorkingDir: d.ProbeWorkingDir,
			}
			continue
		}
		deployable = append(deployable, d)
	}

	return deployable, checks
}

// NamesSet returns the set of module names in defs.
func NamesSet(defs []Definition) map[string]struct{} {
	names := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		names[d.Name] = struct{}{}
	}
	return names
}
