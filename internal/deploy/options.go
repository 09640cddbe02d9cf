package deploy

// Options is the immutable configuration for one orchestration run,
// constructed from the deploy command's flags.
type Options struct {
	// ForceDeploy redeploys services the daemon considers already deployed.
	ForceDeploy bool

	// SkipChecks skips the pre-deploy check phase entirely.
	SkipChecks bool

	// SkipHealthchecks deploys services without waiting for their
	// healthchecks, even when a marker or always_wait_healthcheck would
	// normally hold the rollout.
	SkipHealthchecks bool

	// EnvironmentSets names the environment overlays to activate for this
	// run, in priority order: later sets win over earlier ones, and every
	// set wins over a module's base environment.
	EnvironmentSets []string
}
