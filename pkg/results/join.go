package results

import (
	"github.com/ritzau/heatnet/pkg/model"
	"github.com/ritzau/heatnet/pkg/solver"
)

// JunctionRow is a solved junction with its static attributes
type JunctionRow struct {
	Name         string
	NodeID       string
	Circuit      model.Circuit
	DisplayName  string
	PressureBar  float64
	TemperatureK float64
	Geo          *model.Coord
}

// PipeRow is a solved pipe with endpoint names and geometry
type PipeRow struct {
	Name             string
	Circuit          model.Circuit
	EdgeType         model.EdgeType
	FromJunction     string
	ToJunction       string
	FromJunctionName string
	ToJunctionName   string
	LengthM          float64
	DiameterM        float64
	FromGeo          *model.Coord
	ToGeo            *model.Coord

	solver.PipeResult
}

// Snapshot is the solved state of one junction
type Snapshot struct {
	PressureBar  float64
	TemperatureK float64
}

// HeatExchangerRow is a solved building heat exchanger with the state at both of its junctions
type HeatExchangerRow struct {
	Name       string
	BuildingID string
	QextW      float64
	Supply     *Snapshot
	Return     *Snapshot

	solver.HeatExchangerResult
}

// Unmatched counts solver rows that named no known component
type Unmatched struct {
	Junctions      int `json:"junctions"`
	Pipes          int `json:"pipes"`
	HeatExchangers int `json:"heat_exchangers"`
}

// Total returns the number of unmatched rows
func (u Unmatched) Total() int {
	return u.Junctions + u.Pipes + u.HeatExchangers
}

// Tables holds the joined result rows in solver order
type Tables struct {
	Junctions      []JunctionRow
	Pipes          []PipeRow
	HeatExchangers []HeatExchangerRow
	Unmatched      Unmatched
}

// Join matches solver rows to network components by name.
// Rows without a static counterpart are counted, never invented.
func Join(net *model.NetworkModel, res *solver.Results) *Tables {
	t := &Tables{}
	junctions := net.JunctionIndex()

	solved := make(map[string]Snapshot, len(res.Junctions))
	for _, r := range res.Junctions {
		j, ok := junctions[r.Name]
		if !ok {
			t.Unmatched.Junctions++
			continue
		}
		solved[r.Name] = Snapshot{PressureBar: r.PressureBar, TemperatureK: r.TemperatureK}
		t.Junctions = append(t.Junctions, JunctionRow{
			Name:         j.Name,
			NodeID:       j.NodeID,
			Circuit:      j.Circuit,
			DisplayName:  j.DisplayName(),
			PressureBar:  r.PressureBar,
			TemperatureK: r.TemperatureK,
			Geo:          j.Geo,
		})
	}

	pipes := make(map[string]model.Pipe, len(net.Pipes))
	for _, p := range net.Pipes {
		pipes[p.Name] = p
	}
	for _, r := range res.Pipes {
		p, ok := pipes[r.Name]
		if !ok {
			t.Unmatched.Pipes++
			continue
		}
		from, to := junctions[p.FromJunction], junctions[p.ToJunction]
		t.Pipes = append(t.Pipes, PipeRow{
			Name:             p.Name,
			Circuit:          p.Circuit,
			EdgeType:         p.EdgeType,
			FromJunction:     p.FromJunction,
			ToJunction:       p.ToJunction,
			FromJunctionName: from.DisplayName(),
			ToJunctionName:   to.DisplayName(),
			LengthM:          p.LengthM,
			DiameterM:        p.DiameterM,
			FromGeo:          from.Geo,
			ToGeo:            to.Geo,
			PipeResult:       r,
		})
	}

	exchangers := make(map[string]model.HeatExchanger, len(net.HeatExchangers))
	for _, hx := range net.HeatExchangers {
		exchangers[hx.Name] = hx
	}
	for _, r := range res.HeatExchangers {
		hx, ok := exchangers[r.Name]
		if !ok {
			t.Unmatched.HeatExchangers++
			continue
		}
		row := HeatExchangerRow{
			Name:                hx.Name,
			BuildingID:          hx.BuildingID,
			QextW:               hx.QextW,
			HeatExchangerResult: r,
		}
		if s, ok := solved[hx.FromJunction]; ok {
			row.Supply = &s
		}
		if s, ok := solved[hx.ToJunction]; ok {
			row.Return = &s
		}
		t.HeatExchangers = append(t.HeatExchangers, row)
	}

	return t
}
