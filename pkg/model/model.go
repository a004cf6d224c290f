package model

// NodeType represents the role of a vertex in the input graph
type NodeType string

const (
	NodeTypeStreet           NodeType = "street"
	NodeTypeStreetConnection NodeType = "street_connection"
	NodeTypeBuilding         NodeType = "building"
	NodeTypeHeatSource       NodeType = "heat_source"
)

// nodeTypeAliases maps spellings written by the graph generator to the recognized kinds
var nodeTypeAliases = map[string]NodeType{
	"street_point": NodeTypeStreet,
}

// ParseNodeType returns the recognized node type for s, or false if s names no known kind
func ParseNodeType(s string) (NodeType, bool) {
	switch t := NodeType(s); t {
	case NodeTypeStreet, NodeTypeStreetConnection, NodeTypeBuilding, NodeTypeHeatSource:
		return t, true
	}
	if t, ok := nodeTypeAliases[s]; ok {
		return t, true
	}
	return "", false
}

// EdgeType represents the kind of physical connection an edge stands for
type EdgeType string

const (
	EdgeTypeStreetSegment        EdgeType = "street_segment"
	EdgeTypeBuildingConnection   EdgeType = "building_connection"
	EdgeTypeHeatSourceConnection EdgeType = "heat_source_connection"
)

// DefaultEdgeType derives the edge type by convention from its endpoint types
func DefaultEdgeType(u, v NodeType) EdgeType {
	switch {
	case u == NodeTypeBuilding || v == NodeTypeBuilding:
		return EdgeTypeBuildingConnection
	case u == NodeTypeHeatSource || v == NodeTypeHeatSource:
		return EdgeTypeHeatSourceConnection
	default:
		return EdgeTypeStreetSegment
	}
}

// Circuit tags a junction or pipe as part of the supply or the return loop
type Circuit string

const (
	CircuitSupply Circuit = "supply"
	CircuitReturn Circuit = "return"
)

// Label returns the human-readable circuit name used in result tables
func (c Circuit) Label() string {
	if c == CircuitReturn {
		return "Return"
	}
	return "Supply"
}

// MassFlowSource records where the circulation mass flow came from
type MassFlowSource string

const (
	MassFlowFromLoad    MassFlowSource = "load"    // derived from aggregate building load
	MassFlowFromMinimum MassFlowSource = "minimum" // clamped to the configured floor
)
