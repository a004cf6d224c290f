package model

import "math"

// Coord is a planar coordinate in the input coordinate reference system
type Coord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Valid reports whether both components are finite numbers
func (c Coord) Valid() bool {
	return !math.IsNaN(c.X) && !math.IsInf(c.X, 0) && !math.IsNaN(c.Y) && !math.IsInf(c.Y, 0)
}

// Distance returns the Euclidean distance between c and o
func (c Coord) Distance(o Coord) float64 {
	return math.Hypot(o.X-c.X, o.Y-c.Y)
}

// InputGraph is the attributed district heating graph read from the generator's GraphML.
// It is read-only once loaded; stages that filter it produce new graphs.
type InputGraph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`

	index map[string]*Node
}

// NewInputGraph creates a new empty graph.
func NewInputGraph() *InputGraph {
	return &InputGraph{
		Nodes: make([]*Node, 0),
		Edges: make([]*Edge, 0),
		index: make(map[string]*Node),
	}
}

// Node is a vertex of the input graph.
// Attributes the builder does not interpret are kept in Extra.
type Node struct {
	ID            string            `json:"id"`
	Type          NodeType          `json:"type"`
	Coord         *Coord            `json:"coord,omitempty"`
	HeatDemandKWh *float64          `json:"heat_demand_kwh,omitempty"` // buildings only, kWh per year
	Extra         map[string]string `json:"extra,omitempty"`
}

// Edge is an undirected connection between two nodes, stored in file order (U, V).
type Edge struct {
	U       string            `json:"u"`
	V       string            `json:"v"`
	Type    EdgeType          `json:"type"`
	LengthM *float64          `json:"length_m,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// AddNode adds a node to the graph. If a node with the same ID exists, it is replaced in place.
func (g *InputGraph) AddNode(node *Node) {
	if g.index == nil {
		g.reindex()
	}
	if existing, ok := g.index[node.ID]; ok {
		*existing = *node
		return
	}
	g.Nodes = append(g.Nodes, node)
	g.index[node.ID] = node
}

// AddEdge adds an edge to the graph.
func (g *InputGraph) AddEdge(edge *Edge) {
	g.Edges = append(g.Edges, edge)
}

// Node returns the node with the given ID
func (g *InputGraph) Node(id string) (*Node, bool) {
	if g.index == nil {
		g.reindex()
	}
	n, ok := g.index[id]
	return n, ok
}

// CountType returns the number of nodes of type t
func (g *InputGraph) CountType(t NodeType) int {
	count := 0
	for _, n := range g.Nodes {
		if n.Type == t {
			count++
		}
	}
	return count
}

// Subgraph returns a new graph holding the nodes accepted by keep and the edges between them.
// Node and edge records are shared with g, not copied.
func (g *InputGraph) Subgraph(keep func(*Node) bool) *InputGraph {
	sub := NewInputGraph()
	for _, n := range g.Nodes {
		if keep(n) {
			sub.Nodes = append(sub.Nodes, n)
			sub.index[n.ID] = n
		}
	}
	for _, e := range g.Edges {
		_, okU := sub.index[e.U]
		_, okV := sub.index[e.V]
		if okU && okV {
			sub.Edges = append(sub.Edges, e)
		}
	}
	return sub
}

func (g *InputGraph) reindex() {
	g.index = make(map[string]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		g.index[n.ID] = n
	}
}
