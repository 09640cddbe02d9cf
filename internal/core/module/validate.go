package module

import "fmt"

// =============================================================================
// Manifest Validation
// =============================================================================

// ValidationError describes why a set of definitions is not deployable.
type ValidationError struct {
	Module string // module the problem was found on ("" for manifest-level)
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Module == "" {
		return "invalid manifest: " + e.Reason
	}
	return fmt.Sprintf("invalid module %q: %s", e.Module, e.Reason)
}

// Validate checks that a parsed manifest is internally consistent:
// every name is unique, every kind is known, every dependency refers to a
// defined non-check module, and every check reference refers to a defined
// check. Resolution and deployment assume a validated manifest.
func Validate(defs []Definition) error {
	byName := make(map[string]Kind, len(defs))

	for i := range defs {
		d := &defs[i]
		if d.Name == "" {
			return &ValidationError{Reason: "module with empty name"}
		}
		if !d.Kind.Valid() {
			return &ValidationError{Module: d.Name, Reason: fmt.Sprintf("unknown kind %q", d.Kind)}
		}
		if _, dup := byName[d.Name]; dup {
			return &ValidationError{Module: d.Name, Reason: "duplicate module name"}
		}
		byName[d.Name] = d.Kind
	}

	for i := range defs {
		d := &defs[i]

		switch d.Kind {
		case KindTask, KindService:
			if len(d.Command) == 0 {
				return &ValidationError{Module: d.Name, Reason: "command must not be empty"}
			}
			if err := validateHealthcheck(d); err != nil {
				return err
			}
		case KindCheck:
			if len(d.Probe) == 0 {
				return &ValidationError{Module: d.Name, Reason: "probe must not be empty"}
			}
			if len(d.Dependencies) > 0 {
				return &ValidationError{Module: d.Name, Reason: "checks cannot declare dependencies"}
			}
			if len(d.Checks) > 0 {
				return &ValidationError{Module: d.Name, Reason: "checks cannot reference other checks"}
			}
		}

		for _, dep := range d.Dependencies {
			kind, ok := byName[dep]
			if !ok {
				return &ValidationError{Module: d.Name, Reason: fmt.Sprintf("dependency %q is not defined", dep)}
			}
			if kind == KindCheck {
				return &ValidationError{Module: d.Name, Reason: fmt.Sprintf("dependency %q is a check; reference it via checks instead", dep)}
			}
		}

		for _, chk := range d.Checks {
			kind, ok := byName[chk]
			if !ok {
				return &ValidationError{Module: d.Name, Reason: fmt.Sprintf("check %q is not defined", chk)}
			}
			if kind != KindCheck {
				return &ValidationError{Module: d.Name, Reason: fmt.Sprintf("check %q is a %s, not a check", chk, kind)}
			}
		}
	}

	return nil
}

func validateHealthcheck(d *Definition) error {
	hc := d.Healthcheck
	if hc == nil {
		return nil
	}

	switch hc.Type {
	case "", ProbeExec:
		if len(hc.Command) == 0 {
			return &ValidationError{Module: d.Name, Reason: "exec healthcheck must declare a command"}
		}
	case ProbeNet:
		if hc.Host == "" || hc.Port == 0 {
			return &ValidationError{Module: d.Name, Reason: "net healthcheck must declare host and port"}
		}
	default:
		return &ValidationError{Module: d.Name, Reason: fmt.Sprintf("unknown healthcheck type %q", hc.Type)}
	}
	return nil
}
