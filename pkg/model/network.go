package model

import "fmt"

// SupplyJunctionName returns the supply junction name for an input node
func SupplyJunctionName(nodeID string) string { return "sup_" + nodeID }

// ReturnJunctionName returns the return junction name for an input node
func ReturnJunctionName(nodeID string) string { return "ret_" + nodeID }

// Junction is a node of the two-conduit hydraulic model
type Junction struct {
	Name         string  `json:"name"`
	NodeID       string  `json:"node_id"`
	Circuit      Circuit `json:"circuit"`
	PressureBar  float64 `json:"pn_bar"`
	TemperatureK float64 `json:"tfluid_k"`
	Geo          *Coord  `json:"geodata,omitempty"`
}

// DisplayName renders the junction as e.g. "Supply 17"
func (j Junction) DisplayName() string {
	return fmt.Sprintf("%s %s", j.Circuit.Label(), j.NodeID)
}

// Pipe is a directed conduit between two junctions of the same circuit
type Pipe struct {
	Name          string   `json:"name"`
	FromJunction  string   `json:"from_junction"`
	ToJunction    string   `json:"to_junction"`
	Circuit       Circuit  `json:"circuit"`
	EdgeType      EdgeType `json:"edge_type"`
	LengthM       float64  `json:"length_m"`
	DiameterM     float64  `json:"diameter_m"`
	RoughnessM    float64  `json:"roughness_m"`
	LengthClamped bool     `json:"length_clamped,omitempty"`
}

// HeatExchanger models a building drawing heat between its supply and return junctions.
// Positive QextW means heat is extracted from the loop.
type HeatExchanger struct {
	Name          string  `json:"name"`
	BuildingID    string  `json:"building_id"`
	FromJunction  string  `json:"from_junction"`
	ToJunction    string  `json:"to_junction"`
	QextW         float64 `json:"qext_w"`
	HeatDemandKWh float64 `json:"heat_demand_kwh"`
	DiameterM     float64 `json:"diameter_m"`
}

// CirculationPump sits at a heat source and drives a fixed mass flow from return to supply
type CirculationPump struct {
	Name             string  `json:"name"`
	SourceID         string  `json:"source_id"`
	FromJunction     string  `json:"return_junction"`
	ToJunction       string  `json:"flow_junction"`
	MassFlowKgPerS   float64 `json:"mdot_flow_kg_per_s"`
	PressureBar      float64 `json:"p_flow_bar"`
	FlowTemperatureK float64 `json:"t_flow_k"`
}

// NetworkModel is the assembled hydraulic network handed to the solver.
// It is constructed once per build and must not be mutated afterwards.
type NetworkModel struct {
	Junctions        []Junction        `json:"junctions"`
	Pipes            []Pipe            `json:"pipes"`
	HeatExchangers   []HeatExchanger   `json:"heat_exchangers"`
	CirculationPumps []CirculationPump `json:"circulation_pumps"`
}

// JunctionIndex returns a name -> junction lookup table
func (n *NetworkModel) JunctionIndex() map[string]Junction {
	idx := make(map[string]Junction, len(n.Junctions))
	for _, j := range n.Junctions {
		idx[j.Name] = j
	}
	return idx
}

// HasGeodata reports whether any junction carries coordinates
func (n *NetworkModel) HasGeodata() bool {
	for _, j := range n.Junctions {
		if j.Geo != nil {
			return true
		}
	}
	return false
}

// SkipCounts tallies input elements the loader dropped instead of failing
type SkipCounts struct {
	NodesWithoutCoordinates int `json:"nodes_without_coordinates"`
	UnsupportedNodes        int `json:"unsupported_nodes"`
	UnsupportedEdges        int `json:"unsupported_edges"`
	DanglingEdges           int `json:"dangling_edges"`
	SelfLoops               int `json:"self_loops"`
	BuildingsWithoutDemand  int `json:"buildings_without_demand"`
}

// Total returns the sum of all skip counters
func (s SkipCounts) Total() int {
	return s.NodesWithoutCoordinates + s.UnsupportedNodes + s.UnsupportedEdges +
		s.DanglingEdges + s.SelfLoops + s.BuildingsWithoutDemand
}

// BuildSummary describes a finished build for logs, the console, and the serialized document
type BuildSummary struct {
	RunID string `json:"run_id"`

	JunctionsSupply int `json:"junctions_supply"`
	JunctionsReturn int `json:"junctions_return"`
	JunctionsTotal  int `json:"junctions_total"`
	PipesSupply     int `json:"pipes_supply"`
	PipesReturn     int `json:"pipes_return"`
	PipesTotal      int `json:"pipes_total"`
	PipesClamped    int `json:"pipes_clamped_to_min_length"`

	BuildingHeatExchangers int     `json:"building_heat_exchangers"`
	TotalHeatLoadW         float64 `json:"total_heat_load_W"`

	CirculationPumps      int            `json:"circulation_pumps"`
	PumpMassFlowKgPerS    float64        `json:"plant_pump_mass_flow_kg_per_s"`
	PumpMassFlowPerSource float64        `json:"pump_mass_flow_per_source_kg_per_s"`
	PumpMassFlowSource    MassFlowSource `json:"plant_pump_mass_flow_source"`

	PrunedNodes      int `json:"pruned_nodes"`
	PrunedEdges      int `json:"pruned_edges"`
	PrunedComponents int `json:"pruned_components"`

	Skipped SkipCounts `json:"skipped"`

	GraphPath   string `json:"graph_path,omitempty"`
	NetworkPath string `json:"json_path,omitempty"`
}
