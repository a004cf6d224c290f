package network

import (
	"math"

	"github.com/ritzau/heatnet/pkg/model"
)

// HeatLoadW converts an annual demand in kWh into a continuous load in W
// spread over the configured operating hours
func HeatLoadW(demandKWh, operatingHours float64) float64 {
	return demandKWh / operatingHours * 1000
}

// Loads holds the heat exchangers created for buildings with a usable demand
type Loads struct {
	HeatExchangers []model.HeatExchanger
	Skipped        int // buildings whose demand was zero, missing or not finite
}

// ConvertLoads creates one heat exchanger per building with a finite, non-zero demand
func ConvertLoads(g *model.InputGraph, p Params) Loads {
	var loads Loads
	for _, n := range g.Nodes {
		if n.Type != model.NodeTypeBuilding {
			continue
		}
		demand, ok := usableDemand(n)
		if !ok {
			loads.Skipped++
			continue
		}
		demand *= p.DemandScalingFactor

		loads.HeatExchangers = append(loads.HeatExchangers, model.HeatExchanger{
			Name:          "hx_" + n.ID,
			BuildingID:    n.ID,
			FromJunction:  model.SupplyJunctionName(n.ID),
			ToJunction:    model.ReturnJunctionName(n.ID),
			QextW:         HeatLoadW(demand, p.OperatingHoursPerYear),
			HeatDemandKWh: demand,
			DiameterM:     p.HeatExchangerDiameterM,
		})
	}
	return loads
}

// TotalDemandLoadW sums the load of every building in g with a usable demand.
// It is evaluated before pruning to detect load that lost its heat source.
func TotalDemandLoadW(g *model.InputGraph, p Params) float64 {
	total := 0.0
	for _, n := range g.Nodes {
		if n.Type != model.NodeTypeBuilding {
			continue
		}
		if demand, ok := usableDemand(n); ok {
			total += HeatLoadW(demand*p.DemandScalingFactor, p.OperatingHoursPerYear)
		}
	}
	return total
}

func usableDemand(n *model.Node) (float64, bool) {
	if n.HeatDemandKWh == nil {
		return 0, false
	}
	d := *n.HeatDemandKWh
	if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, false
	}
	return d, true
}
