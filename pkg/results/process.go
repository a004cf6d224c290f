package results

import (
	"context"

	"github.com/ritzau/heatnet/pkg/logging"
	"github.com/ritzau/heatnet/pkg/model"
	"github.com/ritzau/heatnet/pkg/solver"
)

// Outcome is the post-processed result of one solve
type Outcome struct {
	Tables  *Tables
	Summary RunSummary
}

// Process joins solver output to the network, summarizes it and writes the exports.
// A solve that did not converge is still exported; the failure travels in the summary.
func Process(ctx context.Context, net *model.NetworkModel, res *solver.Results, exporter *Exporter) (*Outcome, error) {
	logger := logging.New("results")

	tables := Join(net, res)
	if n := tables.Unmatched.Total(); n > 0 {
		logger.WarnContext(ctx, "Solver rows without matching component",
			"junctions", tables.Unmatched.Junctions,
			"pipes", tables.Unmatched.Pipes,
			"heatExchangers", tables.Unmatched.HeatExchangers)
	}

	summary := Summarize(logging.GetRunID(ctx), res, tables)
	if summary.Failure != nil {
		logger.WarnContext(ctx, "Pipeflow did not converge", "error", summary.Failure)
	}

	if exporter != nil {
		artifacts, err := exporter.Export(ctx, tables)
		if err != nil {
			return nil, err
		}
		summary.Artifacts = artifacts
	}

	return &Outcome{Tables: tables, Summary: summary}, nil
}
