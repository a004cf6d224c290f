package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyNetwork is returned when nothing survives pruning and there is no load to serve.
var ErrEmptyNetwork = errors.New("no network component with a heat source survived pruning")

// MissingInputError is returned when none of the graph candidates resolves to an existing file.
type MissingInputError struct {
	Candidates []string
}

func (e *MissingInputError) Error() string {
	if len(e.Candidates) == 0 {
		return "no graph source configured"
	}
	return fmt.Sprintf("no graph source found (tried %s)", strings.Join(e.Candidates, ", "))
}

// NoHeatSourceError is returned when buildings draw load but no heat source survives pruning.
type NoHeatSourceError struct {
	TotalLoadW float64
}

func (e *NoHeatSourceError) Error() string {
	return fmt.Sprintf("building load of %.1f W but no heat source in the network", e.TotalLoadW)
}

// UnsupportedComponentError describes an element outside the recognized node or edge kinds.
// The loader records these and skips the element; it is only returned when nothing is left.
type UnsupportedComponentError struct {
	Kind string // "node" or "edge"
	ID   string
	Type string
}

func (e *UnsupportedComponentError) Error() string {
	return fmt.Sprintf("unsupported %s %q of type %q", e.Kind, e.ID, e.Type)
}

// SolverConvergenceFailure reports that the solver ran but did not reach a solution.
// It travels in the run summary; callers decide whether it is fatal.
type SolverConvergenceFailure struct {
	Mode       string
	Iterations int
	Errors     []string
}

func (e *SolverConvergenceFailure) Error() string {
	msg := fmt.Sprintf("pipeflow did not converge (mode %s, %d iterations)", e.Mode, e.Iterations)
	if len(e.Errors) > 0 {
		msg += ": " + strings.Join(e.Errors, "; ")
	}
	return msg
}

// DependencyUnavailableError is returned when the solver runtime is missing.
type DependencyUnavailableError struct {
	Dependency string
	Err        error
}

func (e *DependencyUnavailableError) Error() string {
	return fmt.Sprintf("dependency %q unavailable: %v", e.Dependency, e.Err)
}

func (e *DependencyUnavailableError) Unwrap() error {
	return e.Err
}
