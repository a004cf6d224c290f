package solver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/ritzau/heatnet/pkg/config"
	"github.com/ritzau/heatnet/pkg/logging"
	"github.com/ritzau/heatnet/pkg/model"
)

// Request is the document handed to the solver process
type Request struct {
	Network *model.NetworkModel `json:"network"`
	Options Options             `json:"options"`
}

// ProcessSolver runs an external solver command.
// The command is invoked as: <command> <args...> <request.json> <results.json>
// Values it could not compute are written as null; bare NaN and Infinity
// tokens are accepted as well.
type ProcessSolver struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// NewProcessSolver creates a solver from the pipeflow configuration
func NewProcessSolver(cfg config.Pipeflow) *ProcessSolver {
	return &ProcessSolver{
		Command: cfg.Command,
		Args:    cfg.Args,
		Timeout: cfg.Timeout,
	}
}

// Check fails with DependencyUnavailableError when the solver executable cannot be found
func (s *ProcessSolver) Check(ctx context.Context) error {
	if s.Command == "" {
		return &model.DependencyUnavailableError{Dependency: "pipeflow solver", Err: errors.New("no command configured")}
	}
	path, err := exec.LookPath(s.Command)
	if err != nil {
		return &model.DependencyUnavailableError{Dependency: s.Command, Err: err}
	}
	logging.DebugContext(ctx, "Solver available", "path", path)
	return nil
}

// Solve writes the request, runs the command and reads back its results.
// The configured timeout bounds the command, not the surrounding pipeline.
func (s *ProcessSolver) Solve(ctx context.Context, net *model.NetworkModel, opts Options) (*Results, error) {
	logger := logging.New("solver.process")

	resolved := opts
	resolved.Mode = opts.Mode.Resolve()
	if resolved.Mode != opts.Mode {
		logger.InfoContext(ctx, "Resolved pipeflow mode", "configured", opts.Mode, "mode", resolved.Mode)
	}

	dir, err := os.MkdirTemp("", "heatnet-pipeflow-")
	if err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}
	defer os.RemoveAll(dir)

	requestPath := filepath.Join(dir, "request.json")
	resultsPath := filepath.Join(dir, "results.json")

	data, err := json.Marshal(Request{Network: net, Options: resolved})
	if err != nil {
		return nil, fmt.Errorf("encoding solver request: %w", err)
	}
	if err := os.WriteFile(requestPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing solver request: %w", err)
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, s.Args...), requestPath, resultsPath)
	cmd := exec.CommandContext(ctx, s.Command, args...)
	cmd.WaitDelay = time.Second // don't hang on pipes held by orphaned children after a kill

	start := time.Now()
	logger.InfoContext(ctx, "Running pipeflow", "command", s.Command, "mode", resolved.Mode, "friction", resolved.FrictionModel)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, &model.DependencyUnavailableError{Dependency: s.Command, Err: err}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("pipeflow aborted after %s: %w", time.Since(start).Round(time.Millisecond), ctxErr)
		}
		return nil, fmt.Errorf("pipeflow failed: %w\nOutput: %s", err, string(output))
	}
	logger.DebugContext(ctx, "Pipeflow finished", "durationMs", time.Since(start).Milliseconds())

	raw, err := os.ReadFile(resultsPath)
	if err != nil {
		return nil, fmt.Errorf("reading solver results: %w", err)
	}
	res, err := DecodeResults(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding solver results: %w", err)
	}
	if res.Mode == "" {
		res.Mode = resolved.Mode
	}
	if res.FrictionModel == "" {
		res.FrictionModel = resolved.FrictionModel
	}
	return res, nil
}
