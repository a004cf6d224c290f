package network

import (
	"context"
	"fmt"

	"github.com/ritzau/heatnet/pkg/graph"
	"github.com/ritzau/heatnet/pkg/logging"
	"github.com/ritzau/heatnet/pkg/model"
)

// Stage names reported while a build progresses
const (
	StagePrune    = "prune"
	StageTopology = "topology"
	StageLoads    = "loads"
	StageSizing   = "sizing"
	StageAssemble = "assemble"
)

// Input is a validated graph ready to be built
type Input struct {
	Graph     *model.InputGraph
	Skipped   model.SkipCounts
	GraphPath string
}

// Build is an assembled network and its summary
type Build struct {
	Network *model.NetworkModel
	Summary model.BuildSummary
}

// Builder turns a validated input graph into a two-conduit network model
type Builder struct {
	params Params

	// OnStage, when set, is called as each stage starts
	OnStage func(ctx context.Context, stage string)
}

// NewBuilder creates a builder for the given parameters
func NewBuilder(p Params) *Builder {
	return &Builder{params: p}
}

// Build runs pruning, topology duplication, load conversion, flow sizing and assembly in order.
// Nothing is written; see WriteNetwork.
func (b *Builder) Build(ctx context.Context, in Input) (*Build, error) {
	logger := logging.New("network.builder")

	preLoad := TotalDemandLoadW(in.Graph, b.params)

	b.stage(ctx, StagePrune)
	pruned, stats := graph.Prune(in.Graph)
	if stats.Components > 0 {
		logger.InfoContext(ctx, "Pruned components without heat source",
			"components", stats.Components, "nodes", stats.Nodes, "edges", stats.Edges)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.stage(ctx, StageTopology)
	topo, err := Duplicate(pruned, b.params)
	if err != nil {
		return nil, fmt.Errorf("duplicating topology: %w", err)
	}
	if topo.Clamped > 0 {
		logger.InfoContext(ctx, "Clamped short pipes", "pipes", topo.Clamped, "minLengthM", b.params.MinPipeLengthM)
	}

	b.stage(ctx, StageLoads)
	loads := ConvertLoads(pruned, b.params)
	if loads.Skipped > 0 {
		logger.WarnContext(ctx, "Buildings without usable heat demand", "count", loads.Skipped)
	}

	b.stage(ctx, StageSizing)
	sizing, err := SizeFlow(pruned, loads.HeatExchangers, preLoad, b.params)
	if err != nil {
		return nil, err
	}
	logger.DebugContext(ctx, "Sized circulation flow",
		"loadW", sizing.TotalLoadW, "massFlowKgPerS", sizing.MassFlowKgPerS, "source", sizing.Source)

	b.stage(ctx, StageAssemble)
	net := &model.NetworkModel{
		Junctions:        topo.Junctions,
		Pipes:            topo.Pipes,
		HeatExchangers:   loads.HeatExchangers,
		CirculationPumps: sizing.Pumps,
	}
	if net.HeatExchangers == nil {
		net.HeatExchangers = []model.HeatExchanger{}
	}

	skipped := in.Skipped
	skipped.BuildingsWithoutDemand += loads.Skipped

	summary := model.BuildSummary{
		RunID:                  logging.GetRunID(ctx),
		JunctionsTotal:         len(net.Junctions),
		PipesTotal:             len(net.Pipes),
		PipesClamped:           topo.Clamped,
		BuildingHeatExchangers: len(net.HeatExchangers),
		TotalHeatLoadW:         sizing.TotalLoadW,
		CirculationPumps:       len(net.CirculationPumps),
		PumpMassFlowKgPerS:     sizing.MassFlowKgPerS,
		PumpMassFlowPerSource:  sizing.MassFlowPerSourceKgPS,
		PumpMassFlowSource:     sizing.Source,
		PrunedNodes:            stats.Nodes,
		PrunedEdges:            stats.Edges,
		PrunedComponents:       stats.Components,
		Skipped:                skipped,
		GraphPath:              in.GraphPath,
	}
	for _, j := range net.Junctions {
		if j.Circuit == model.CircuitSupply {
			summary.JunctionsSupply++
		} else {
			summary.JunctionsReturn++
		}
	}
	for _, p := range net.Pipes {
		if p.Circuit == model.CircuitSupply {
			summary.PipesSupply++
		} else {
			summary.PipesReturn++
		}
	}

	logger.InfoContext(ctx, "Network assembled",
		"junctions", summary.JunctionsTotal,
		"pipes", summary.PipesTotal,
		"heatExchangers", summary.BuildingHeatExchangers,
		"pumps", summary.CirculationPumps)

	return &Build{Network: net, Summary: summary}, nil
}

func (b *Builder) stage(ctx context.Context, name string) {
	logging.TraceContext(ctx, "Build stage", "stage", name)
	if b.OnStage != nil {
		b.OnStage(ctx, name)
	}
}
