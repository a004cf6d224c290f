package graphml

import (
	"context"
	"fmt"
	"os"

	"github.com/ritzau/heatnet/pkg/config"
	"github.com/ritzau/heatnet/pkg/finder"
	"github.com/ritzau/heatnet/pkg/logging"
	"github.com/ritzau/heatnet/pkg/model"
)

// Loaded is a validated input graph together with where it came from
type Loaded struct {
	Path   string
	Graph  *model.InputGraph
	Report *Report
}

// Source resolves, reads, parses and validates the input graph
type Source struct {
	parser *Parser
}

// NewSource creates a new GraphML source
func NewSource() *Source {
	return &Source{parser: NewParser()}
}

func (s *Source) Name() string {
	return "GraphML"
}

// Load runs the loader/validator stage for cfg
func (s *Source) Load(ctx context.Context, cfg config.Config) (*Loaded, error) {
	logger := logging.New("source.graphml")

	path, err := finder.ResolveGraph(cfg.Graph, cfg.Paths.GraphCandidates)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Loading graph", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading graph %s: %w", path, err)
	}

	raw, err := s.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing graph %s: %w", path, err)
	}
	logger.DebugContext(ctx, "Parsed graph", "nodes", len(raw.Nodes), "edges", len(raw.Edges))

	graph, report, err := Validate(raw, ValidateOptions{
		EdgeTypesAsPipes:   cfg.Network.EdgeTypesAsPipes,
		RequireCoordinates: cfg.Network.RequireCoordinates,
	})
	if err != nil {
		return nil, fmt.Errorf("validating graph %s: %w", path, err)
	}

	for _, u := range report.Unsupported {
		logger.DebugContext(ctx, "Skipped element", "kind", u.Kind, "id", u.ID, "type", u.Type)
	}
	if n := report.Skipped.Total(); n > 0 {
		logger.WarnContext(ctx, "Skipped invalid graph elements",
			"withoutCoordinates", report.Skipped.NodesWithoutCoordinates,
			"unsupportedNodes", report.Skipped.UnsupportedNodes,
			"unsupportedEdges", report.Skipped.UnsupportedEdges,
			"danglingEdges", report.Skipped.DanglingEdges,
			"selfLoops", report.Skipped.SelfLoops,
		)
	}
	logger.InfoContext(ctx, "Graph loaded", "nodes", len(graph.Nodes), "edges", len(graph.Edges))

	return &Loaded{Path: path, Graph: graph, Report: report}, nil
}
