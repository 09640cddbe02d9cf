package deploy

import "fmt"

// CheckNotDefinedError reports a module referencing a check name with no
// definition behind it.
type CheckNotDefinedError struct {
	Name string
}

func (e *CheckNotDefinedError) Error() string {
	return fmt.Sprintf("check %q not defined", e.Name)
}

// CheckFailedError reports a failed pre-deploy check. Help carries the
// check author's remediation text and is shown to the operator as-is.
type CheckFailedError struct {
	About string
	Help  string
}

func (e *CheckFailedError) Error() string {
	return fmt.Sprintf("the %s check has failed\nMessage: %s", e.About, e.Help)
}

// HealthTimeoutError reports a service whose healthcheck retry budget ran
// out before it passed.
type HealthTimeoutError struct {
	Module string
}

func (e *HealthTimeoutError) Error() string {
	return fmt.Sprintf("service %q did not complete its healthcheck in time.\nCheck the logs for more details", e.Module)
}

// HealthConfigError reports a healthcheck the daemon could not evaluate.
type HealthConfigError struct {
	Module string
}

func (e *HealthConfigError) Error() string {
	return fmt.Sprintf("an error occurred while waiting for the healthcheck of %q to complete.\n"+
		"This is usually a mistake in the healthcheck configuration; ensure the command or condition is correct", e.Module)
}
