package network

import (
	"gonum.org/v1/gonum/floats"

	"github.com/ritzau/heatnet/pkg/model"
)

// Sizing is the outcome of the flow sizing stage
type Sizing struct {
	TotalLoadW            float64
	MassFlowKgPerS        float64
	MassFlowPerSourceKgPS float64
	Source                model.MassFlowSource
	Pumps                 []model.CirculationPump
}

// MassFlow returns the circulation mass flow for a total load, floored at the configured minimum
func MassFlow(totalLoadW float64, p Params) (float64, model.MassFlowSource) {
	mdot := totalLoadW / (p.CpJPerKgK * p.DeltaTK)
	if mdot < p.MinMassFlowKgPerS {
		return p.MinMassFlowKgPerS, model.MassFlowFromMinimum
	}
	return mdot, model.MassFlowFromLoad
}

// SizeFlow aggregates the heat exchanger loads and places one circulation pump per heat source.
// The total flow is split evenly across sources. It fails with NoHeatSourceError when load
// existed before pruning but no heat source is left in g.
func SizeFlow(g *model.InputGraph, hx []model.HeatExchanger, preLoadW float64, p Params) (*Sizing, error) {
	q := make([]float64, len(hx))
	for i, h := range hx {
		q[i] = h.QextW
	}
	total := floats.Sum(q)

	var sources []*model.Node
	for _, n := range g.Nodes {
		if n.Type == model.NodeTypeHeatSource {
			sources = append(sources, n)
		}
	}

	if len(sources) == 0 {
		if preLoadW > 0 || total > 0 {
			return nil, &model.NoHeatSourceError{TotalLoadW: max(preLoadW, total)}
		}
		return nil, model.ErrEmptyNetwork
	}

	mdot, provenance := MassFlow(total, p)
	perSource := mdot / float64(len(sources))

	s := &Sizing{
		TotalLoadW:            total,
		MassFlowKgPerS:        mdot,
		MassFlowPerSourceKgPS: perSource,
		Source:                provenance,
		Pumps:                 make([]model.CirculationPump, 0, len(sources)),
	}
	for _, src := range sources {
		s.Pumps = append(s.Pumps, model.CirculationPump{
			Name:             "pump_" + src.ID,
			SourceID:         src.ID,
			FromJunction:     model.ReturnJunctionName(src.ID),
			ToJunction:       model.SupplyJunctionName(src.ID),
			MassFlowKgPerS:   perSource,
			PressureBar:      p.PumpPressureBar,
			FlowTemperatureK: p.SupplyTemperatureK,
		})
	}
	return s, nil
}
