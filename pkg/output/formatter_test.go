package output

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/ritzau/heatnet/pkg/model"
	"github.com/ritzau/heatnet/pkg/results"
)

func init() {
	color.NoColor = true
}

func TestPrintBuildSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintBuildSummary(&buf, model.BuildSummary{
		JunctionsTotal:         10,
		JunctionsSupply:        5,
		JunctionsReturn:        5,
		PipesTotal:             8,
		PipesSupply:            4,
		PipesReturn:            4,
		BuildingHeatExchangers: 1,
		TotalHeatLoadW:         25,
		CirculationPumps:       1,
		PumpMassFlowKgPerS:     0.1,
		PumpMassFlowPerSource:  0.1,
		PumpMassFlowSource:     model.MassFlowFromMinimum,
		PrunedComponents:       1,
		PrunedNodes:            2,
		PrunedEdges:            1,
		Skipped:                model.SkipCounts{SelfLoops: 2},
		NetworkPath:            "data/network.json",
	})

	out := buf.String()
	assert.Contains(t, out, "Junctions: 10 (supply 5, return 5)")
	assert.Contains(t, out, "Total Heat Load: 0.0 kW")
	assert.Contains(t, out, "Pump Mass Flow: 0.100 kg/s (0.100 per source, from minimum)")
	assert.Contains(t, out, "Pruned: 1 component(s), 2 node(s), 1 edge(s)")
	assert.Contains(t, out, "  self-loops: 2")
	assert.NotContains(t, out, "dangling")
	assert.Contains(t, out, "Output: data/network.json")
}

func TestPrintRunSummary(t *testing.T) {
	pMin, pMax, vMax := 1.5, 20.0, 1.25
	var buf bytes.Buffer
	PrintRunSummary(&buf, results.RunSummary{
		Converged:        false,
		Iterations:       100,
		Mode:             "sequential",
		FrictionModel:    "swamee_jain",
		PressureMinBar:   &pMin,
		PressureMaxBar:   &pMax,
		VelocityMaxMPerS: &vMax,
		Errors:           []string{"max iterations reached"},
		Artifacts:        results.Artifacts{PipesCSV: "out/pipes.csv"},
	})

	out := buf.String()
	assert.Contains(t, out, "Converged: no (100 iterations)")
	assert.Contains(t, out, "Junction pressure: 1.500 .. 20.000 bar")
	assert.Contains(t, out, "Max pipe velocity: 1.250 m/s")
	assert.Contains(t, out, "max iterations reached")
	assert.Contains(t, out, "Pipe results: out/pipes.csv")
	assert.NotContains(t, out, "GeoJSON")
}
