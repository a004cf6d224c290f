package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ritzau/heatnet/pkg/config"
	"github.com/ritzau/heatnet/pkg/logging"
	"github.com/ritzau/heatnet/pkg/metrics"
	"github.com/ritzau/heatnet/pkg/model"
	"github.com/ritzau/heatnet/pkg/output"
	"github.com/ritzau/heatnet/pkg/pipeline"
	"github.com/ritzau/heatnet/pkg/web"
)

// Exit codes
const (
	exitOK                    = 0
	exitError                 = 1
	exitMissingInput          = 2
	exitNoHeatSource          = 3
	exitDependencyUnavailable = 4
)

const usage = `Usage: heatnet <command> [flags]

Commands:
  build   Build the two-pipe network model from the GraphML input
  run     Build the network, run pipeflow and export the results
  serve   Serve the HTTP API; --watch rebuilds when the input changes

Flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Args[1:])
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status
func exitCode(err error) int {
	var (
		missing   *model.MissingInputError
		noSource  *model.NoHeatSourceError
		dependent *model.DependencyUnavailableError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &missing):
		return exitMissingInput
	case errors.As(err, &noSource):
		return exitNoHeatSource
	case errors.As(err, &dependent):
		return exitDependencyUnavailable
	default:
		return exitError
	}
}

func newFlagSet(command string, out io.Writer) *pflag.FlagSet {
	f := pflag.NewFlagSet("heatnet "+command, pflag.ContinueOnError)
	f.SetOutput(out)
	f.Usage = func() {
		fmt.Fprint(out, usage)
		f.PrintDefaults()
	}

	f.String("graph", "", "GraphML input, overrides the configured candidates")
	f.String("config", "", "Config file (.toml, .yaml); defaults to heatnet.toml or heatnet.yaml if present")
	f.CountP("verbose", "v", "Increase verbosity (-v debug, -vv trace)")
	f.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	f.Bool("json-logs", false, "Log as JSON")
	if command == "serve" {
		f.Int("port", 8080, "Port for the HTTP API")
		f.Bool("watch", false, "Rebuild when the graph or config file changes")
	}
	return f
}

// run parses args and executes one command
func run(ctx context.Context, out io.Writer, args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(out, usage)
		newFlagSet("serve", out).PrintDefaults()
		if len(args) == 0 {
			return errors.New("no command given")
		}
		return nil
	}

	command := args[0]
	switch command {
	case "build", "run", "serve":
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	f := newFlagSet(command, out)
	if err := f.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(f)
	if err != nil {
		return err
	}
	configureLogging(cfg)
	logging.Debug("Configuration loaded", "file", config.FindFile(cfg.ConfigFile), "command", command)

	switch command {
	case "serve":
		return serve(ctx, *cfg, f)
	default:
		return runOnce(ctx, out, *cfg, command == "run" || cfg.Pipeflow.RunAfterBuild)
	}
}

func configureLogging(cfg *config.Config) {
	level := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
	if cfg.JSONLogs {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}
}

// runOnce builds, optionally solves, and prints the summaries
func runOnce(ctx context.Context, out io.Writer, cfg config.Config, solve bool) error {
	runner := pipeline.NewRunner(cfg)
	res, err := runner.Run(ctx, pipeline.Options{Solve: solve, Reason: "cli"})
	if err != nil {
		return err
	}

	output.PrintBuildSummary(out, res.Build.Summary)
	if res.Outcome != nil {
		fmt.Fprintln(out)
		output.PrintRunSummary(out, res.Outcome.Summary)
	}
	return nil
}

// serve starts the HTTP API, runs an initial build in the background and
// optionally rebuilds on input changes until ctx is canceled
func serve(ctx context.Context, cfg config.Config, f *pflag.FlagSet) error {
	pub := web.NewPublisher()
	reg := metrics.NewRegistry()
	runner := pipeline.NewRunner(cfg, pipeline.WithPublisher(pub), pipeline.WithMetrics(reg))
	server := web.NewServer(runner, pub, reg)

	go func() {
		opts := pipeline.Options{Solve: cfg.Pipeflow.RunAfterBuild, Reason: "initial build"}
		if _, err := runner.Run(ctx, opts); err != nil {
			logging.Warn("Initial build failed; waiting for input changes or API requests", "error", err)
		}
	}()

	if cfg.Server.Watch {
		w, err := newWatchLoop(cfg, f, runner)
		if err != nil {
			return err
		}
		go w.run(ctx)
	}

	return server.Start(ctx, cfg.Server.Port)
}
