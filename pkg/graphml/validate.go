package graphml

import (
	"fmt"
	"math"

	"github.com/ritzau/heatnet/pkg/model"
)

// ValidateOptions controls which elements survive validation
type ValidateOptions struct {
	EdgeTypesAsPipes   []string
	RequireCoordinates bool
}

// Report lists what validation dropped
type Report struct {
	Skipped     model.SkipCounts
	Unsupported []*model.UnsupportedComponentError
}

// Validate normalizes node and edge types and drops elements the builder cannot use.
// Drops are counted in the report; the call only fails when nothing is left of a non-empty graph.
func Validate(g *model.InputGraph, opts ValidateOptions) (*model.InputGraph, *Report, error) {
	report := &Report{}
	eligible := make(map[model.EdgeType]bool, len(opts.EdgeTypesAsPipes))
	for _, t := range opts.EdgeTypesAsPipes {
		eligible[model.EdgeType(t)] = true
	}

	out := model.NewInputGraph()
	for _, n := range g.Nodes {
		nodeType, ok := model.ParseNodeType(string(n.Type))
		if !ok {
			report.Skipped.UnsupportedNodes++
			report.Unsupported = append(report.Unsupported, &model.UnsupportedComponentError{
				Kind: "node", ID: n.ID, Type: string(n.Type),
			})
			continue
		}

		coord := n.Coord
		if coord != nil && !coord.Valid() {
			coord = nil
		}
		if coord == nil && opts.RequireCoordinates {
			report.Skipped.NodesWithoutCoordinates++
			continue
		}

		normalized := *n
		normalized.Type = nodeType
		normalized.Coord = coord
		if d := n.HeatDemandKWh; d != nil && (math.IsNaN(*d) || math.IsInf(*d, 0)) {
			normalized.HeatDemandKWh = nil
		}
		out.AddNode(&normalized)
	}

	for _, e := range g.Edges {
		if e.U == e.V {
			report.Skipped.SelfLoops++
			continue
		}
		u, okU := out.Node(e.U)
		v, okV := out.Node(e.V)
		if !okU || !okV {
			report.Skipped.DanglingEdges++
			continue
		}

		edgeType := e.Type
		if edgeType == "" {
			edgeType = model.DefaultEdgeType(u.Type, v.Type)
		}
		if !eligible[edgeType] {
			report.Skipped.UnsupportedEdges++
			report.Unsupported = append(report.Unsupported, &model.UnsupportedComponentError{
				Kind: "edge", ID: e.U + "-" + e.V, Type: string(edgeType),
			})
			continue
		}

		normalized := *e
		normalized.Type = edgeType
		out.AddEdge(&normalized)
	}

	if len(out.Nodes) == 0 && len(g.Nodes) > 0 {
		if len(report.Unsupported) > 0 {
			return nil, report, fmt.Errorf("all %d nodes were skipped: %w", len(g.Nodes), report.Unsupported[0])
		}
		return nil, report, fmt.Errorf("all %d nodes lack usable coordinates: %w", len(g.Nodes), model.ErrEmptyNetwork)
	}

	return out, report, nil
}
