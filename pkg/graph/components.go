package graph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/ritzau/heatnet/pkg/model"
)

// ComponentGraph is an undirected view of the input graph used for connectivity analysis
type ComponentGraph struct {
	graph *simple.UndirectedGraph
	ids   map[string]int64 // node ID -> graph ID
	names map[int64]string // graph ID -> node ID
}

// NewComponentGraph builds the undirected graph over all nodes and edges of g.
// Edges referencing unknown nodes and self-loops are ignored.
func NewComponentGraph(g *model.InputGraph) *ComponentGraph {
	cg := &ComponentGraph{
		graph: simple.NewUndirectedGraph(),
		ids:   make(map[string]int64, len(g.Nodes)),
		names: make(map[int64]string, len(g.Nodes)),
	}

	for _, n := range g.Nodes {
		if _, exists := cg.ids[n.ID]; exists {
			continue
		}
		id := int64(len(cg.ids))
		cg.ids[n.ID] = id
		cg.names[id] = n.ID
		cg.graph.AddNode(simple.Node(id))
	}

	for _, e := range g.Edges {
		u, okU := cg.ids[e.U]
		v, okV := cg.ids[e.V]
		if !okU || !okV || u == v {
			continue
		}
		if !cg.graph.HasEdgeBetween(u, v) {
			cg.graph.SetEdge(cg.graph.NewEdge(simple.Node(u), simple.Node(v)))
		}
	}

	return cg
}

// Components returns the node IDs of every connected component.
// Members are sorted and components are ordered by their first member.
func (cg *ComponentGraph) Components() [][]string {
	raw := topo.ConnectedComponents(cg.graph)

	components := make([][]string, 0, len(raw))
	for _, nodes := range raw {
		members := make([]string, 0, len(nodes))
		for _, n := range nodes {
			members = append(members, cg.names[n.ID()])
		}
		sort.Strings(members)
		components = append(components, members)
	}
	sort.Slice(components, func(i, j int) bool {
		return components[i][0] < components[j][0]
	})
	return components
}

// Graph returns the underlying undirected graph
func (cg *ComponentGraph) Graph() *simple.UndirectedGraph {
	return cg.graph
}
