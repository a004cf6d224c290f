package graph

import (
	"github.com/ritzau/heatnet/pkg/model"
)

// PruneStats counts what pruning removed
type PruneStats struct {
	Nodes      int `json:"nodes"`
	Edges      int `json:"edges"`
	Components int `json:"components"`
	Kept       int `json:"kept_components"`
}

// Prune drops every connected component that contains no heat source.
// The input is not modified; node and edge records are shared with the result.
// Pruning an already pruned graph removes nothing.
func Prune(g *model.InputGraph) (*model.InputGraph, PruneStats) {
	var stats PruneStats

	keep := make(map[string]bool, len(g.Nodes))
	for _, members := range NewComponentGraph(g).Components() {
		if !hasHeatSource(g, members) {
			stats.Components++
			continue
		}
		stats.Kept++
		for _, id := range members {
			keep[id] = true
		}
	}

	pruned := g.Subgraph(func(n *model.Node) bool { return keep[n.ID] })
	stats.Nodes = len(g.Nodes) - len(pruned.Nodes)
	stats.Edges = len(g.Edges) - len(pruned.Edges)

	return pruned, stats
}

func hasHeatSource(g *model.InputGraph, members []string) bool {
	for _, id := range members {
		if n, ok := g.Node(id); ok && n.Type == model.NodeTypeHeatSource {
			return true
		}
	}
	return false
}
