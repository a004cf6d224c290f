package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ritzau/heatnet/pkg/config"
	"github.com/ritzau/heatnet/pkg/graphml"
	"github.com/ritzau/heatnet/pkg/logging"
	"github.com/ritzau/heatnet/pkg/metrics"
	"github.com/ritzau/heatnet/pkg/model"
	"github.com/ritzau/heatnet/pkg/network"
	"github.com/ritzau/heatnet/pkg/pubsub"
	"github.com/ritzau/heatnet/pkg/results"
	"github.com/ritzau/heatnet/pkg/solver"
)

// Status states published besides the build stages
const (
	StateChecking   = "checking"
	StateLoading    = "loading"
	StateWriting    = "writing"
	StateSolving    = "solving"
	StateProcessing = "processing"
	StateDone       = "done"
	StateFailed     = "failed"
)

var buildSteps = []string{
	StateLoading,
	network.StagePrune,
	network.StageTopology,
	network.StageLoads,
	network.StageSizing,
	network.StageAssemble,
	StateWriting,
}

var stepMessages = map[string]string{
	StateChecking:         "Checking pipeflow solver...",
	StateLoading:          "Loading graph...",
	network.StagePrune:    "Pruning components without heat source...",
	network.StageTopology: "Duplicating topology into supply and return...",
	network.StageLoads:    "Converting building demand to heat loads...",
	network.StageSizing:   "Sizing circulation flow...",
	network.StageAssemble: "Assembling network...",
	StateWriting:          "Writing network model...",
	StateSolving:          "Running pipeflow...",
	StateProcessing:       "Exporting results...",
}

// Options selects what a pipeline run does
type Options struct {
	Solve  bool   // run the solver and export results after building
	Reason string // e.g. "cli", "graph changed", "api"
}

// Result is everything a finished run produced
type Result struct {
	RunID   string
	Build   *network.Build
	Outcome *results.Outcome // nil unless Options.Solve
}

// Option configures a Runner
type Option func(*Runner)

// WithSolver replaces the process solver derived from the configuration
func WithSolver(s solver.Solver) Option {
	return func(r *Runner) { r.solver = s }
}

// WithPublisher publishes pipeline status and summaries to p
func WithPublisher(p pubsub.Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithMetrics records build and solve metrics in m
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Runner) { r.metrics = m }
}

// Runner orchestrates load, build, solve and post-processing
type Runner struct {
	source    *graphml.Source
	solver    solver.Solver
	publisher pubsub.Publisher
	metrics   *metrics.Registry

	mu sync.Mutex // Prevent concurrent pipeline runs

	stateMu   sync.RWMutex
	cfg       config.Config
	lastBuild *network.Build
	lastRun   *results.RunSummary
}

// NewRunner creates a runner for cfg
func NewRunner(cfg config.Config, opts ...Option) *Runner {
	r := &Runner{
		source: graphml.NewSource(),
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the configuration the next run will use
func (r *Runner) Config() config.Config {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.cfg
}

// SetConfig replaces the configuration for subsequent runs
func (r *Runner) SetConfig(cfg config.Config) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	r.cfg = cfg
}

// LastBuild returns the most recent successful build, or nil
func (r *Runner) LastBuild() *network.Build {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.lastBuild
}

// LastRun returns the summary of the most recent solve, or nil
func (r *Runner) LastRun() *results.RunSummary {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.lastRun
}

// Run executes the pipeline. Runs are serialized; a second caller waits for the first.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runID := uuid.New().String()
	ctx = logging.WithRunID(ctx, runID)
	cfg := r.Config()

	p := &progress{runner: r, runID: runID, steps: buildSteps}
	if opts.Solve {
		p.steps = append(append([]string{StateChecking}, buildSteps...), StateSolving, StateProcessing)
	}

	logging.InfoContext(ctx, "Starting pipeline", "reason", opts.Reason, "solve", opts.Solve)

	res, err := r.run(ctx, cfg, opts, p)
	if err != nil {
		logging.ErrorContext(ctx, "Pipeline failed", "error", err)
		p.fail(err)
		return nil, err
	}

	p.publish(StateDone, "Pipeline complete")
	logging.InfoContext(ctx, "Pipeline complete", "reason", opts.Reason)
	return res, nil
}

func (r *Runner) run(ctx context.Context, cfg config.Config, opts Options, p *progress) (*Result, error) {
	var (
		slv      solver.Solver
		solveOpt solver.Options
		exporter *results.Exporter
	)
	if opts.Solve {
		p.step(StateChecking)
		slv = r.solver
		if slv == nil {
			slv = solver.NewProcessSolver(cfg.Pipeflow)
		}
		if err := slv.Check(ctx); err != nil {
			return nil, err
		}
		var err error
		if solveOpt, err = solver.OptionsFromConfig(cfg.Pipeflow); err != nil {
			return nil, err
		}
		if exporter, err = results.NewExporter(cfg.Paths, cfg.CRS); err != nil {
			return nil, err
		}
	}

	build, err := r.build(ctx, cfg, p)
	if err != nil {
		return nil, err
	}
	res := &Result{RunID: logging.GetRunID(ctx), Build: build}
	if !opts.Solve {
		return res, nil
	}

	p.step(StateSolving)
	start := time.Now()
	solved, err := slv.Solve(ctx, build.Network, solveOpt)
	if err != nil {
		r.recordSolveFailure(time.Since(start))
		return nil, fmt.Errorf("running pipeflow: %w", err)
	}
	duration := time.Since(start)

	p.step(StateProcessing)
	outcome, err := results.Process(ctx, build.Network, solved, exporter)
	if err != nil {
		r.recordSolveFailure(duration)
		return nil, fmt.Errorf("exporting results: %w", err)
	}
	res.Outcome = outcome

	s := outcome.Summary
	if r.metrics != nil {
		r.metrics.RecordSolve(s.Converged, s.Iterations, duration, s.PressureMinBar, s.PressureMaxBar, s.VelocityMaxMPerS)
	}
	r.stateMu.Lock()
	r.lastRun = &s
	r.stateMu.Unlock()
	r.publishSummary(pubsub.TopicRunSummary, "run_complete", s)

	logging.InfoContext(ctx, "Pipeflow finished",
		"converged", s.Converged, "iterations", s.Iterations, "durationMs", duration.Milliseconds())
	return res, nil
}

func (r *Runner) build(ctx context.Context, cfg config.Config, p *progress) (*network.Build, error) {
	start := time.Now()

	params := network.ParamsFromConfig(cfg.Network)

	p.step(StateLoading)
	loaded, err := r.source.Load(ctx, cfg)
	if err != nil {
		r.recordBuildFailure(err)
		return nil, err
	}

	builder := network.NewBuilder(params)
	builder.OnStage = func(ctx context.Context, stage string) { p.step(stage) }

	build, err := builder.Build(ctx, network.Input{
		Graph:     loaded.Graph,
		Skipped:   loaded.Report.Skipped,
		GraphPath: loaded.Path,
	})
	if err != nil {
		r.recordBuildFailure(err)
		return nil, err
	}

	p.step(StateWriting)
	if err := network.WriteNetwork(cfg.Paths.NetworkJSON, build); err != nil {
		r.recordBuildFailure(err)
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.RecordBuild(build.Summary, time.Since(start))
	}
	r.stateMu.Lock()
	r.lastBuild = build
	r.stateMu.Unlock()
	r.publishSummary(pubsub.TopicBuildSummary, "build_complete", build.Summary)

	logging.InfoContext(ctx, "Network written",
		"path", build.Summary.NetworkPath, "durationMs", time.Since(start).Milliseconds())
	return build, nil
}

func (r *Runner) recordBuildFailure(err error) {
	if r.metrics != nil {
		r.metrics.RecordBuildFailure(FailureReason(err))
	}
}

func (r *Runner) recordSolveFailure(d time.Duration) {
	if r.metrics != nil {
		r.metrics.RecordSolveFailure(d)
	}
}

func (r *Runner) publishSummary(topic, eventType string, data any) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(topic, eventType, data); err != nil {
		logging.Warn("Failed to publish summary", "topic", topic, "error", err)
	}
}

// FailureReason maps an error to a short label for metrics and status events
func FailureReason(err error) string {
	var (
		missing   *model.MissingInputError
		noSource  *model.NoHeatSourceError
		dependent *model.DependencyUnavailableError
	)
	switch {
	case errors.As(err, &missing):
		return "missing_input"
	case errors.As(err, &noSource):
		return "no_heat_source"
	case errors.Is(err, model.ErrEmptyNetwork):
		return "empty_network"
	case errors.As(err, &dependent):
		return "dependency_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// progress publishes pipeline_status events for one run
type progress struct {
	runner  *Runner
	runID   string
	steps   []string
	current int
}

func (p *progress) step(state string) {
	for i, s := range p.steps {
		if s == state {
			p.current = i + 1
			break
		}
	}
	p.publish(state, stepMessages[state])
}

func (p *progress) publish(state, message string) {
	if state == StateDone {
		p.current = len(p.steps)
	}
	p.send(pubsub.PipelineStatus{
		RunID:   p.runID,
		State:   state,
		Message: message,
		Step:    p.current,
		Total:   len(p.steps),
	})
}

func (p *progress) fail(err error) {
	p.send(pubsub.PipelineStatus{
		RunID:   p.runID,
		State:   StateFailed,
		Message: fmt.Sprintf("Pipeline failed: %s", FailureReason(err)),
		Step:    p.current,
		Total:   len(p.steps),
		Error:   err.Error(),
	})
}

func (p *progress) send(status pubsub.PipelineStatus) {
	if p.runner.publisher == nil {
		return
	}
	if err := p.runner.publisher.Publish(pubsub.TopicPipelineStatus, status.State, status); err != nil {
		logging.Warn("Failed to publish status", "state", status.State, "error", err)
	}
}
