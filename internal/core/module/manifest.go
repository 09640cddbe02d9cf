package module

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Manifest Parsing
// =============================================================================

// Manifest is the on-disk module declaration file.
type Manifest struct {
	Modules []Definition `yaml:"modules"`
}

// ParseManifest parses manifest YAML and validates it. This is a pure
// function: the caller reads the file.
//
// Example:
//
//	modules:
//	  - kind: service
//	    name: api
//	    command: ["./api", "--port", "8080"]
//	    dependencies: [db]
//	    checks: [db-ready]
//	  - kind: check
//	    name: db-ready
//	    about: Database reachable
//	    help: Start the database first.
//	    probe: ["pg_isready"]
func ParseManifest(content []byte) ([]Definition, error) {
	if strings.TrimSpace(string(content)) == "" {
		return nil, &ValidationError{Reason: "manifest is empty"}
	}

	var m Manifest
	if err := yaml.Unmarshal(content, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Modules) == 0 {
		return nil, &ValidationError{Reason: "manifest declares no modules"}
	}

	if err := Validate(m.Modules); err != nil {
		return nil, err
	}
	return m.Modules, nil
}
