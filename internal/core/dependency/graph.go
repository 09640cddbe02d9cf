// Package dependency resolves a requested subset of modules into a linear
// deployment order that honors every declared dependency edge.
//
// Pure logic, no I/O. The graph is a transient view over the manifest's
// definitions: it is built once per deploy run and discarded afterwards.
package dependency

import (
	"fmt"
	"strings"

	"github.com/artpar/caravel/internal/core/module"
)

// =============================================================================
// Nodes and Markers
// =============================================================================

// Marker annotates how a node entered the graph.
type Marker int

const (
	// MarkerNone means the module was requested explicitly by the operator.
	MarkerNone Marker = iota

	// MarkerWaitHealthcheck means the module was pulled in implicitly as a
	// dependency of a requested module. Services carrying this marker are
	// held until their healthcheck passes, because something later in the
	// order relies on them.
	MarkerWaitHealthcheck
)

// Node is a resolved module plus its marker. Nodes are deduplicated by
// module name.
type Node struct {
	Value  *module.Definition
	Marker Marker
}

// =============================================================================
// Errors
// =============================================================================

// UnknownModuleError reports a requested name with no matching definition.
type UnknownModuleError struct {
	Name string
}

func (e *UnknownModuleError) Error() string {
	return fmt.Sprintf("module %q is not defined", e.Name)
}

// CycleError reports a dependency cycle. Participants are the module names
// on the cycle, in traversal order.
type CycleError struct {
	Participants []string
}

func (e *CycleError) Error() string {
	return "dependency cycle detected: " + strings.Join(e.Participants, " -> ")
}

// =============================================================================
// Resolution
// =============================================================================

// Resolve computes the deployment order for the requested module names.
//
// Starting from the requested set it includes every transitively required
// dependency, then produces a topological order via depth-first traversal:
// every module appears strictly after all modules it depends on. Ties are
// broken by first-discovery order (requested names in the order given,
// dependencies in declared order), so the result is deterministic.
//
// Definitions of kind check must be removed (module.SplitChecks) before
// resolving; check references are not dependency edges.
//
// Resolve fails with *UnknownModuleError when a requested name has no
// definition and with *CycleError when the dependency graph is cyclic.
// There is no partial result: any failure aborts the whole resolution.
func Resolve(defs []module.Definition, requested []string) ([]*Node, error) {
	byName := make(map[string]*module.Definition, len(defs))
	for i := range defs {
		byName[defs[i].Name] = &defs[i]
	}

	for _, name := range requested {
		if _, ok := byName[name]; !ok {
			return nil, &UnknownModuleError{Name: name}
		}
	}

	explicit := make(map[string]bool, len(requested))
	for _, name := range requested {
		explicit[name] = true
	}

	r := &resolver{
		byName:   byName,
		explicit: explicit,
		color:    make(map[string]color),
	}

	for _, name := range requested {
		if err := r.visit(name); err != nil {
			return nil, err
		}
	}

	return r.order, nil
}

// Three-color DFS state: unvisited (absent), in-progress, done.
type color int

const (
	colorInProgress color = iota + 1
	colorDone
)

type resolver struct {
	byName   map[string]*module.Definition
	explicit map[string]bool
	color    map[string]color
	stack    []string
	order    []*Node
}

func (r *resolver) visit(name string) error {
	switch r.color[name] {
	case colorDone:
		return nil
	case colorInProgress:
		return &CycleError{Participants: r.cycleFrom(name)}
	}

	def, ok := r.byName[name]
	if !ok {
		// A dangling dependency reference. Validation catches this before
		// resolution, but a resolver must not trust its input.
		return &UnknownModuleError{Name: name}
	}

	r.color[name] = colorInProgress
	r.stack = append(r.stack, name)

	for _, dep := range def.Dependencies {
		if err := r.visit(dep); err != nil {
			return err
		}
	}

	r.stack = r.stack[:len(r.stack)-1]
	r.color[name] = colorDone

	marker := MarkerWaitHealthcheck
	if r.explicit[name] {
		marker = MarkerNone
	}
	r.order = append(r.order, &Node{Value: def, Marker: marker})
	return nil
}

// cycleFrom slices the traversal stack from the first occurrence of name,
// closing the loop with name itself.
func (r *resolver) cycleFrom(name string) []string {
	start := 0
	for i, n := range r.stack {
		if n == name {
			start = i
			break
		}
	}
	cycle := append([]string{}, r.stack[start:]...)
	return append(cycle, name)
}
