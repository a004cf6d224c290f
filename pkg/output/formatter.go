package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/ritzau/heatnet/pkg/model"
	"github.com/ritzau/heatnet/pkg/results"
)

// PrintBuildSummary prints the two-pipe network summary with colors
func PrintBuildSummary(w io.Writer, s model.BuildSummary) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Fprintln(w, "Two-Pipe Network Summary")
	bold.Fprintln(w, "========================")
	if s.GraphPath != "" {
		fmt.Fprintf(w, "Graph: %s\n", s.GraphPath)
	}
	fmt.Fprintf(w, "Junctions: %d (supply %d, return %d)\n", s.JunctionsTotal, s.JunctionsSupply, s.JunctionsReturn)
	fmt.Fprintf(w, "Pipes: %d (supply %d, return %d)\n", s.PipesTotal, s.PipesSupply, s.PipesReturn)
	fmt.Fprintf(w, "Building Heat Exchangers: %d\n", s.BuildingHeatExchangers)
	fmt.Fprintf(w, "Total Heat Load: %.1f kW\n", s.TotalHeatLoadW/1000)
	fmt.Fprintf(w, "Circulation Pumps: %d\n", s.CirculationPumps)

	flow := green
	if s.PumpMassFlowSource == model.MassFlowFromMinimum {
		flow = yellow
	}
	flow.Fprintf(w, "Pump Mass Flow: %.3f kg/s (%.3f per source, from %s)\n",
		s.PumpMassFlowKgPerS, s.PumpMassFlowPerSource, s.PumpMassFlowSource)

	if s.PrunedComponents > 0 {
		yellow.Fprintf(w, "Pruned: %d component(s), %d node(s), %d edge(s) without heat source\n",
			s.PrunedComponents, s.PrunedNodes, s.PrunedEdges)
	}
	if s.PipesClamped > 0 {
		yellow.Fprintf(w, "Pipes clamped to minimum length: %d\n", s.PipesClamped)
	}
	if n := s.Skipped.Total(); n > 0 {
		yellow.Fprintf(w, "Skipped elements: %d\n", n)
		printSkip(w, "nodes without coordinates", s.Skipped.NodesWithoutCoordinates)
		printSkip(w, "unsupported nodes", s.Skipped.UnsupportedNodes)
		printSkip(w, "unsupported edges", s.Skipped.UnsupportedEdges)
		printSkip(w, "dangling edges", s.Skipped.DanglingEdges)
		printSkip(w, "self-loops", s.Skipped.SelfLoops)
		printSkip(w, "buildings without demand", s.Skipped.BuildingsWithoutDemand)
	}
	if s.NetworkPath != "" {
		cyan.Fprintf(w, "Output: %s\n", s.NetworkPath)
	}
}

func printSkip(w io.Writer, label string, n int) {
	if n > 0 {
		fmt.Fprintf(w, "  %s: %d\n", label, n)
	}
}

// PrintRunSummary prints the pipeflow summary, red when the solve did not converge
func PrintRunSummary(w io.Writer, s results.RunSummary) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	bold.Fprintln(w, "Pipeflow Summary")
	bold.Fprintln(w, "================")
	if s.Converged {
		green.Fprintf(w, "Converged: yes (%d iterations)\n", s.Iterations)
	} else {
		red.Fprintf(w, "Converged: no (%d iterations)\n", s.Iterations)
	}
	fmt.Fprintf(w, "Mode: %s, friction model: %s\n", s.Mode, s.FrictionModel)

	if s.PressureMinBar != nil && s.PressureMaxBar != nil {
		fmt.Fprintf(w, "Junction pressure: %.3f .. %.3f bar\n", *s.PressureMinBar, *s.PressureMaxBar)
	}
	if s.VelocityMaxMPerS != nil {
		fmt.Fprintf(w, "Max pipe velocity: %.3f m/s\n", *s.VelocityMaxMPerS)
	}
	for _, e := range s.Errors {
		red.Fprintf(w, "  %s\n", e)
	}
	if n := s.Unmatched.Total(); n > 0 {
		red.Fprintf(w, "Solver rows without matching component: %d\n", n)
	}

	for _, a := range []struct{ label, path string }{
		{"Junction results", s.Artifacts.JunctionsCSV},
		{"Pipe results", s.Artifacts.PipesCSV},
		{"Heat exchanger results", s.Artifacts.HeatExchangersCSV},
		{"Pipe GeoJSON", s.Artifacts.PipesGeoJSON},
	} {
		if a.path != "" {
			cyan.Fprintf(w, "%s: %s\n", a.label, a.path)
		}
	}
}
