// Package api defines the wire protocol between the caravel client and the
// caraveld daemon. Pure types with no I/O; both sides import this package
// so the contract lives in one place.
package api

// =============================================================================
// Module Definitions on the Wire
// =============================================================================

// ModuleDefinition is the daemon-facing shape of a deployable module.
type ModuleDefinition struct {
	Name         string            `json:"name"`
	Command      []string          `json:"command"`
	Environment  map[string]string `json:"environment,omitempty"`
	LogFilePath  string            `json:"log_file_path,omitempty"`
	Dependencies []string          `json:"dependencies,omitempty"`
	WorkingDir   string            `json:"working_dir,omitempty"`
	Healthcheck  *Healthcheck      `json:"healthcheck,omitempty"`
}

// Healthcheck tells the daemon how to probe a deployed service. Type is
// "exec" (the default when empty; runs Command) or "net" (dials Host:Port).
type Healthcheck struct {
	Type            string   `json:"type,omitempty"`
	Command         []string `json:"command,omitempty"`
	WorkingDir      string   `json:"working_dir,omitempty"`
	Host            string   `json:"host,omitempty"`
	Port            int      `json:"port,omitempty"`
	Retries         int      `json:"retries,omitempty"`
	IntervalSeconds int      `json:"interval_seconds,omitempty"`
}

// =============================================================================
// Commands (client -> daemon)
// =============================================================================

// DeployCommand is the body of POST /deploy.
type DeployCommand struct {
	ToDeploy          []string           `json:"to_deploy"`
	ModuleDefinitions []ModuleDefinition `json:"module_definitions"`
	Force             bool               `json:"force"`
}

// TaskDeployCommand is the body of POST /tasks/deploy.
type TaskDeployCommand struct {
	TaskDefinition ModuleDefinition `json:"task_definition"`
}

// Operation is a lifecycle action on an already-deployed module.
type Operation string

const (
	OperationStop    Operation = "STOP"
	OperationRestart Operation = "RESTART"
)

// OperationCommand is the body of POST /operation.
type OperationCommand struct {
	Operation  Operation `json:"operation"`
	ModuleName string    `json:"module_name"`
}

// =============================================================================
// Responses (daemon -> client)
// =============================================================================

// DeployResponse reports the outcome of deploying one service.
// Deployed is false when the daemon found the service already running and
// force was not set; that is not an error. Monitor, when present, is the
// handle for polling this deployment's healthcheck.
type DeployResponse struct {
	Deployed bool   `json:"deployed"`
	Monitor  string `json:"monitor,omitempty"`
}

// TaskDeployResponse reports the outcome of a one-shot task run.
type TaskDeployResponse struct {
	Completed bool `json:"completed"`
	ExitCode  int  `json:"exit_code"`
}

// OperationResponse reports the outcome of a lifecycle operation.
type OperationResponse struct {
	Status string `json:"status"`
}

// HealthStatus is the daemon's verdict on a monitored deployment.
type HealthStatus string

const (
	// HealthPending means the healthcheck has not reached a verdict yet.
	HealthPending HealthStatus = "Pending"

	// HealthSuccessful means the healthcheck probe passed.
	HealthSuccessful HealthStatus = "Successful"

	// HealthRetriesExceeded means the probe kept failing until the retry
	// budget ran out.
	HealthRetriesExceeded HealthStatus = "RetriesExceeded"

	// HealthError means the probe could not be evaluated at all, which
	// usually points at a healthcheck misconfiguration.
	HealthError HealthStatus = "Error"
)

// HealthResponse is returned by GET /health/{handle}. A nil status means
// the daemon has no verdict yet and the client should keep polling.
type HealthResponse struct {
	HealthcheckStatus *HealthStatus `json:"healthcheck_status"`
}

// ModuleStatus is one row of GET /status.
type ModuleStatus struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	Pid       int    `json:"pid,omitempty"`
	ExitCode  *int   `json:"exit_code,omitempty"`
	StartedAt string `json:"started_at,omitempty"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Modules []ModuleStatus `json:"modules"`
}

// LogResponse is the body of GET /log/{module_name}.
type LogResponse struct {
	Name        string `json:"name"`
	LogFilePath string `json:"log_file_path"`
}

// HistoryEvent is one recorded deployment action.
type HistoryEvent struct {
	Module    string `json:"module"`
	Action    string `json:"action"`
	Outcome   string `json:"outcome"`
	CreatedAt string `json:"created_at"`
}

// HistoryResponse is the body of GET /history, newest events first.
type HistoryResponse struct {
	Events []HistoryEvent `json:"events"`
}
