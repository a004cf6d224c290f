package results

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/heatnet/pkg/config"
	"github.com/ritzau/heatnet/pkg/model"
	"github.com/ritzau/heatnet/pkg/solver"
)

// testNetwork: source 1 -- building 2, one pipe per circuit
func testNetwork(withGeo bool) *model.NetworkModel {
	var g1, g2 *model.Coord
	if withGeo {
		g1, g2 = &model.Coord{X: 0, Y: 0}, &model.Coord{X: 3, Y: 4}
	}
	return &model.NetworkModel{
		Junctions: []model.Junction{
			{Name: "sup_1", NodeID: "1", Circuit: model.CircuitSupply, Geo: g1},
			{Name: "sup_2", NodeID: "2", Circuit: model.CircuitSupply, Geo: g2},
			{Name: "ret_1", NodeID: "1", Circuit: model.CircuitReturn, Geo: g1},
			{Name: "ret_2", NodeID: "2", Circuit: model.CircuitReturn, Geo: g2},
		},
		Pipes: []model.Pipe{
			{Name: "pipe_sup_1_2", FromJunction: "sup_1", ToJunction: "sup_2", Circuit: model.CircuitSupply, EdgeType: model.EdgeTypeBuildingConnection, LengthM: 5, DiameterM: 0.2},
			{Name: "pipe_ret_1_2", FromJunction: "ret_2", ToJunction: "ret_1", Circuit: model.CircuitReturn, EdgeType: model.EdgeTypeBuildingConnection, LengthM: 5, DiameterM: 0.2},
		},
		HeatExchangers: []model.HeatExchanger{
			{Name: "hx_2", BuildingID: "2", FromJunction: "sup_2", ToJunction: "ret_2", QextW: 25},
		},
		CirculationPumps: []model.CirculationPump{
			{Name: "pump_1", SourceID: "1", FromJunction: "ret_1", ToJunction: "sup_1"},
		},
	}
}

func testResults() *solver.Results {
	return &solver.Results{
		Converged:     true,
		Iterations:    12,
		Mode:          solver.ModeSequential,
		FrictionModel: "swamee_jain",
		Junctions: []solver.JunctionResult{
			{Name: "sup_1", PressureBar: 20, TemperatureK: 403.15},
			{Name: "sup_2", PressureBar: 19.5, TemperatureK: 403.0},
			{Name: "ret_1", PressureBar: 1.5, TemperatureK: 373.0},
			{Name: "ret_2", PressureBar: 2.0, TemperatureK: 373.1},
			{Name: "sup_99", PressureBar: 50},
		},
		Pipes: []solver.PipeResult{
			{Name: "pipe_sup_1_2", VMeanMPerS: 0.8, PFromBar: 20, PToBar: 19.5},
			{Name: "pipe_ret_1_2", VMeanMPerS: -1.2, PFromBar: 2, PToBar: 1.5},
		},
		HeatExchangers: []solver.HeatExchangerResult{
			{Name: "hx_2", MdotFromKgPerS: 0.1},
			{Name: "hx_404"},
		},
	}
}

func TestJoin(t *testing.T) {
	tables := Join(testNetwork(true), testResults())

	assert.Equal(t, Unmatched{Junctions: 1, HeatExchangers: 1}, tables.Unmatched)
	require.Len(t, tables.Junctions, 4)
	assert.Equal(t, "Supply 1", tables.Junctions[0].DisplayName)

	require.Len(t, tables.Pipes, 2)
	ret := tables.Pipes[1]
	assert.Equal(t, model.CircuitReturn, ret.Circuit)
	assert.Equal(t, "Return 2", ret.FromJunctionName)
	assert.Equal(t, "Return 1", ret.ToJunctionName)
	assert.InDelta(t, -1.2, ret.VMeanMPerS, 1e-12)

	require.Len(t, tables.HeatExchangers, 1)
	hx := tables.HeatExchangers[0]
	assert.Equal(t, "2", hx.BuildingID)
	require.NotNil(t, hx.Supply)
	require.NotNil(t, hx.Return)
	assert.InDelta(t, 19.5, hx.Supply.PressureBar, 1e-12)
	assert.InDelta(t, 373.1, hx.Return.TemperatureK, 1e-12)
}

func TestSummarize(t *testing.T) {
	res := testResults()
	s := Summarize("run-1", res, Join(testNetwork(false), res))

	assert.True(t, s.Converged)
	assert.Nil(t, s.Failure)
	assert.Equal(t, 12, s.Iterations)
	require.NotNil(t, s.PressureMinBar)
	assert.InDelta(t, 1.5, *s.PressureMinBar, 1e-12)
	assert.InDelta(t, 20.0, *s.PressureMaxBar, 1e-12, "unmatched rows are not part of the extremes")
	assert.InDelta(t, 1.2, *s.VelocityMaxMPerS, 1e-12)
}

func TestSummarize_NotConverged(t *testing.T) {
	res := &solver.Results{Converged: false, Iterations: 100, Mode: solver.ModeSequential, Errors: []string{"max iterations reached"}}
	s := Summarize("", res, Join(testNetwork(false), res))

	require.NotNil(t, s.Failure)
	assert.Equal(t, 100, s.Failure.Iterations)
	assert.Contains(t, s.Failure.Error(), "max iterations reached")
	assert.Nil(t, s.PressureMinBar)
	assert.Nil(t, s.VelocityMaxMPerS)

	_, err := json.Marshal(s)
	assert.NoError(t, err)
}

func TestProcess_NonFiniteValues(t *testing.T) {
	nan := math.NaN()
	res := testResults()
	res.Converged = false
	res.Errors = []string{"pipeflow did not converge"}
	res.Junctions[0].PressureBar = nan
	res.Pipes[1].VMeanMPerS = nan
	res.Pipes[0].PFromBar = math.Inf(1)

	paths := testPaths(t.TempDir())
	exporter, err := NewExporter(paths, config.CRS{Input: "EPSG:5243", Target: "EPSG:5243"})
	require.NoError(t, err)

	out, err := Process(context.Background(), testNetwork(true), res, exporter)
	require.NoError(t, err)

	s := out.Summary
	require.NotNil(t, s.Failure)
	assert.InDelta(t, 1.5, *s.PressureMinBar, 1e-12)
	assert.InDelta(t, 19.5, *s.PressureMaxBar, 1e-12)
	assert.InDelta(t, 0.8, *s.VelocityMaxMPerS, 1e-12)

	junctions := readCSV(t, paths.JunctionResultsCSV)
	assert.Equal(t, "", junctions[1][4])

	data, err := os.ReadFile(paths.PipeResultsGeoJSON)
	require.NoError(t, err)
	var fc FeatureCollection
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Nil(t, fc.Features[0].Properties["p_from_bar"])
	assert.Nil(t, fc.Features[1].Properties["v_mean_m_per_s"])
}

func TestSummarize_OnlyNonFiniteValues(t *testing.T) {
	res := &solver.Results{
		Junctions: []solver.JunctionResult{{Name: "sup_1", PressureBar: math.NaN()}},
		Pipes:     []solver.PipeResult{{Name: "pipe_sup_1_2", VMeanMPerS: math.NaN()}},
	}
	s := Summarize("", res, Join(testNetwork(false), res))

	assert.Nil(t, s.PressureMinBar)
	assert.Nil(t, s.PressureMaxBar)
	assert.Nil(t, s.VelocityMaxMPerS)
}

func testPaths(dir string) config.Paths {
	return config.Paths{
		JunctionResultsCSV:      filepath.Join(dir, "out", "junction_results.csv"),
		PipeResultsCSV:          filepath.Join(dir, "out", "pipe_results.csv"),
		HeatExchangerResultsCSV: filepath.Join(dir, "out", "heat_exchanger_results.csv"),
		PipeResultsGeoJSON:      filepath.Join(dir, "out", "pipe_results.geojson"),
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestProcess_WritesExports(t *testing.T) {
	dir := t.TempDir()
	paths := testPaths(dir)
	exporter, err := NewExporter(paths, config.CRS{Input: "EPSG:5243", Target: "EPSG:5243"})
	require.NoError(t, err)

	out, err := Process(context.Background(), testNetwork(true), testResults(), exporter)
	require.NoError(t, err)

	assert.Equal(t, Artifacts{
		JunctionsCSV:      paths.JunctionResultsCSV,
		PipesCSV:          paths.PipeResultsCSV,
		HeatExchangersCSV: paths.HeatExchangerResultsCSV,
		PipesGeoJSON:      paths.PipeResultsGeoJSON,
	}, out.Summary.Artifacts)

	pipes := readCSV(t, paths.PipeResultsCSV)
	require.Len(t, pipes, 3)
	assert.Equal(t, "from_junction_name", pipes[0][5])
	assert.Equal(t, "Supply 1", pipes[1][5])
	assert.Equal(t, "Return", pipes[2][1])

	hx := readCSV(t, paths.HeatExchangerResultsCSV)
	require.Len(t, hx, 2)
	assert.Equal(t, "19.5", hx[1][9])

	data, err := os.ReadFile(paths.PipeResultsGeoJSON)
	require.NoError(t, err)
	var fc FeatureCollection
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, [][2]float64{{0, 0}, {3, 4}}, fc.Features[0].Geometry.Coordinates)
	assert.Equal(t, [][2]float64{{3, 4}, {0, 0}}, fc.Features[1].Geometry.Coordinates)
	assert.Equal(t, "Supply 1", fc.Features[0].Properties["from_junction_name"])
	require.NotNil(t, fc.CRS)
	assert.Equal(t, "urn:ogc:def:crs:EPSG::5243", fc.CRS.Properties["name"])
}

func TestProcess_SkipsGeoJSONWithoutGeodata(t *testing.T) {
	paths := testPaths(t.TempDir())
	exporter, err := NewExporter(paths, config.CRS{Input: "EPSG:5243", Target: "EPSG:5243"})
	require.NoError(t, err)

	out, err := Process(context.Background(), testNetwork(false), testResults(), exporter)
	require.NoError(t, err)

	assert.Empty(t, out.Summary.Artifacts.PipesGeoJSON)
	assert.NoFileExists(t, paths.PipeResultsGeoJSON)
	assert.FileExists(t, paths.PipeResultsCSV)
}

func TestProcess_ExportFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	exporter, err := NewExporter(config.Paths{
		PipeResultsCSV: filepath.Join(blocker, "pipes.csv"), // parent is a regular file
	}, config.CRS{Input: "EPSG:5243", Target: "EPSG:5243"})
	require.NoError(t, err)

	_, err = Process(context.Background(), testNetwork(false), testResults(), exporter)
	assert.Error(t, err)
}

func TestNewExporter_UnsupportedProjection(t *testing.T) {
	_, err := NewExporter(config.Paths{}, config.CRS{Input: "EPSG:5243", Target: "EPSG:4326"})
	assert.Error(t, err)
}
