package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/ritzau/heatnet/pkg/config"
	"github.com/ritzau/heatnet/pkg/finder"
	"github.com/ritzau/heatnet/pkg/logging"
	"github.com/ritzau/heatnet/pkg/pipeline"
	"github.com/ritzau/heatnet/pkg/watcher"
)

const (
	quietPeriod = 500 * time.Millisecond
	maxWait     = 5 * time.Second
)

// watchLoop rebuilds whenever the graph or the config file changes
type watchLoop struct {
	flags     *pflag.FlagSet
	runner    *pipeline.Runner
	files     *watcher.FileWatcher
	debouncer *watcher.Debouncer
}

func newWatchLoop(cfg config.Config, f *pflag.FlagSet, runner *pipeline.Runner) (*watchLoop, error) {
	graphPath, err := finder.ResolveGraph(cfg.Graph, cfg.Paths.GraphCandidates)
	if err != nil {
		return nil, fmt.Errorf("watch mode needs an existing graph: %w", err)
	}
	configPath := config.FindFile(cfg.ConfigFile)

	files, err := watcher.NewFileWatcher(graphPath, configPath)
	if err != nil {
		return nil, err
	}

	return &watchLoop{
		flags:     f,
		runner:    runner,
		files:     files,
		debouncer: watcher.NewDebouncer(files.Events(), quietPeriod, maxWait),
	}, nil
}

func (w *watchLoop) run(ctx context.Context) {
	w.files.Start(ctx)
	w.debouncer.Start(ctx)

	for event := range w.debouncer.Output() {
		analysis := watcher.AnalyzeChanges(event)
		logging.Info("Input changed", "kind", event.Type, "files", analysis.ChangedFiles)

		if analysis.NeedConfigReload {
			cfg, err := config.Load(w.flags)
			if err != nil {
				logging.Warn("Keeping previous configuration", "error", err)
			} else {
				w.runner.SetConfig(*cfg)
				configureLogging(cfg)
			}
		}
		if !analysis.NeedRebuild {
			continue
		}

		opts := pipeline.Options{
			Solve:  w.runner.Config().Pipeflow.RunAfterBuild,
			Reason: event.Type.String() + " changed",
		}
		if _, err := w.runner.Run(ctx, opts); err != nil {
			logging.Warn("Rebuild failed", "error", err)
		}
	}
}
