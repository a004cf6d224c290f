package solver

import (
	"context"
	"fmt"

	"github.com/ritzau/heatnet/pkg/config"
	"github.com/ritzau/heatnet/pkg/model"
)

// Mode selects the solver's calculation scheme
type Mode string

const (
	// ModeSequential solves hydraulics first, then heat transfer
	ModeSequential Mode = "sequential"
	// ModeLegacy is "all", the older name for the sequential scheme still found in configurations
	ModeLegacy Mode = "all"
)

// ParseMode validates a configured mode name
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeSequential, ModeLegacy:
		return m, nil
	case "legacy":
		return ModeLegacy, nil
	case "":
		return ModeSequential, nil
	}
	return "", fmt.Errorf("unknown pipeflow mode %q", s)
}

// Resolve maps the mode to the scheme the solver actually runs
func (m Mode) Resolve() Mode {
	if m == ModeLegacy {
		return ModeSequential
	}
	return m
}

// Options configures a single solve
type Options struct {
	FrictionModel string  `json:"friction_model"`
	Mode          Mode    `json:"mode"`
	Tol           float64 `json:"tol"`
	MaxIter       int     `json:"max_iter"`
}

// OptionsFromConfig builds solve options from the pipeflow configuration
func OptionsFromConfig(p config.Pipeflow) (Options, error) {
	mode, err := ParseMode(p.Mode)
	if err != nil {
		return Options{}, err
	}
	return Options{
		FrictionModel: p.FrictionModel,
		Mode:          mode,
		Tol:           p.Tol,
		MaxIter:       p.MaxIter,
	}, nil
}

// Solver runs a steady-state hydraulic and thermal solve of a network
type Solver interface {
	// Check verifies the solver runtime is available before any work starts
	Check(ctx context.Context) error
	// Solve blocks until the solver reaches a terminal status.
	// Non-convergence is reported in the results, not as an error.
	Solve(ctx context.Context, net *model.NetworkModel, opts Options) (*Results, error)
}
