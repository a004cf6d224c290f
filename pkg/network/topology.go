package network

import (
	"fmt"

	"github.com/ritzau/heatnet/pkg/model"
)

// Topology is the two-conduit skeleton: junctions and pipes for both circuits
type Topology struct {
	Junctions []model.Junction
	Pipes     []model.Pipe
	Clamped   int // pipes whose length was raised to the minimum
}

// Duplicate mirrors every node into a supply and a return junction and every edge into a
// supply pipe (sup_u -> sup_v) and a return pipe (ret_v -> ret_u).
// Junctions are ordered supply first, then return, each in node order.
func Duplicate(g *model.InputGraph, p Params) (*Topology, error) {
	topo := &Topology{
		Junctions: make([]model.Junction, 0, 2*len(g.Nodes)),
		Pipes:     make([]model.Pipe, 0, 2*len(g.Edges)),
	}

	for _, circuit := range []model.Circuit{model.CircuitSupply, model.CircuitReturn} {
		temperature := p.SupplyTemperatureK
		if circuit == model.CircuitReturn {
			temperature = p.ReturnTemperatureK
		}
		for _, n := range g.Nodes {
			topo.Junctions = append(topo.Junctions, model.Junction{
				Name:         junctionName(circuit, n.ID),
				NodeID:       n.ID,
				Circuit:      circuit,
				PressureBar:  p.MinJunctionPressureBar,
				TemperatureK: temperature,
				Geo:          n.Coord,
			})
		}
	}

	var supply, ret []model.Pipe
	used := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		u, okU := g.Node(e.U)
		v, okV := g.Node(e.V)
		if !okU || !okV {
			return nil, fmt.Errorf("edge %s-%s references a missing node", e.U, e.V)
		}

		length, clamped, err := pipeLength(e, u, v, p.MinPipeLengthM)
		if err != nil {
			return nil, err
		}
		diameter := p.PipeDiameter(e.Type)

		// Parallel edges and IDs containing "_" can produce the same base
		// name; bump the counter until the name is unused.
		base := e.U + "_" + e.V
		suffix := base
		for n := 1; used[suffix]; n++ {
			suffix = fmt.Sprintf("%s_%d", base, n)
		}
		used[suffix] = true

		supply = append(supply, model.Pipe{
			Name:          "pipe_sup_" + suffix,
			FromJunction:  model.SupplyJunctionName(e.U),
			ToJunction:    model.SupplyJunctionName(e.V),
			Circuit:       model.CircuitSupply,
			EdgeType:      e.Type,
			LengthM:       length,
			DiameterM:     diameter,
			RoughnessM:    p.RoughnessM,
			LengthClamped: clamped,
		})
		ret = append(ret, model.Pipe{
			Name:          "pipe_ret_" + suffix,
			FromJunction:  model.ReturnJunctionName(e.V),
			ToJunction:    model.ReturnJunctionName(e.U),
			Circuit:       model.CircuitReturn,
			EdgeType:      e.Type,
			LengthM:       length,
			DiameterM:     diameter,
			RoughnessM:    p.RoughnessM,
			LengthClamped: clamped,
		})
		if clamped {
			topo.Clamped += 2
		}
	}
	topo.Pipes = append(append(topo.Pipes, supply...), ret...)

	return topo, nil
}

// pipeLength uses the edge's length attribute, or the distance between its endpoints,
// and never returns less than minimum
func pipeLength(e *model.Edge, u, v *model.Node, minimum float64) (float64, bool, error) {
	var length float64
	switch {
	case e.LengthM != nil:
		length = *e.LengthM
	case u.Coord != nil && v.Coord != nil:
		length = u.Coord.Distance(*v.Coord)
	default:
		return 0, false, fmt.Errorf("edge %s-%s has neither a length nor endpoint coordinates", e.U, e.V)
	}

	if length < minimum {
		return minimum, true, nil
	}
	return length, false, nil
}

func junctionName(c model.Circuit, nodeID string) string {
	if c == model.CircuitReturn {
		return model.ReturnJunctionName(nodeID)
	}
	return model.SupplyJunctionName(nodeID)
}
