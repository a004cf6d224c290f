package network

import (
	"github.com/ritzau/heatnet/pkg/config"
	"github.com/ritzau/heatnet/pkg/model"
)

const celsiusToKelvin = 273.15

// Params holds the physical constants and component defaults for one build.
// It is derived from the configuration once and passed by value.
type Params struct {
	SupplyTemperatureK     float64
	ReturnTemperatureK     float64
	DeltaTK                float64
	CpJPerKgK              float64
	MinMassFlowKgPerS      float64
	MinJunctionPressureBar float64
	PumpPressureBar        float64
	PipeDiameterM          float64
	PipeDiametersByType    map[model.EdgeType]float64
	RoughnessM             float64
	MinPipeLengthM         float64
	HeatExchangerDiameterM float64
	OperatingHoursPerYear  float64
	DemandScalingFactor    float64
}

// ParamsFromConfig converts the network section of the configuration into build parameters
func ParamsFromConfig(n config.Network) Params {
	byType := make(map[model.EdgeType]float64, len(n.PipeDiametersByTypeM))
	for t, d := range n.PipeDiametersByTypeM {
		byType[model.EdgeType(t)] = d
	}

	return Params{
		SupplyTemperatureK:     n.SupplyTemperatureC + celsiusToKelvin,
		ReturnTemperatureK:     n.ReturnTemperatureC + celsiusToKelvin,
		DeltaTK:                n.TemperatureDifferenceK(),
		CpJPerKgK:              n.CpJPerKgK,
		MinMassFlowKgPerS:      n.MinMassFlowKgPerS,
		MinJunctionPressureBar: n.MinJunctionPressureBar,
		PumpPressureBar:        n.PumpPressureBar,
		PipeDiameterM:          n.PipeDiameterM,
		PipeDiametersByType:    byType,
		RoughnessM:             n.RoughnessM,
		MinPipeLengthM:         n.MinPipeLengthM,
		HeatExchangerDiameterM: n.HeatExchangerDiameterM,
		OperatingHoursPerYear:  n.OperatingHoursPerYear,
		DemandScalingFactor:    n.DemandScalingFactor,
	}
}

// PipeDiameter returns the diameter for an edge type, falling back to the default
func (p Params) PipeDiameter(t model.EdgeType) float64 {
	if d, ok := p.PipeDiametersByType[t]; ok && d > 0 {
		return d
	}
	return p.PipeDiameterM
}
