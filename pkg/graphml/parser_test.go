package graphml

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/heatnet/pkg/model"
)

// networkxDoc mirrors what networkx.write_graphml emits for a generated network
const networkxDoc = `<?xml version='1.0' encoding='utf-8'?>
<graphml xmlns="http://graphml.graphdrawing.org/xmlns" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <key id="d7" for="edge" attr.name="street_name" attr.type="string"/>
  <key id="d6" for="edge" attr.name="length" attr.type="double"/>
  <key id="d5" for="edge" attr.name="edge_type" attr.type="string"/>
  <key id="d4" for="node" attr.name="osmid" attr.type="string"/>
  <key id="d3" for="node" attr.name="heat_demand" attr.type="double"/>
  <key id="d2" for="node" attr.name="node_type" attr.type="string"/>
  <key id="d1" for="node" attr.name="y" attr.type="double"/>
  <key id="d0" for="node" attr.name="x" attr.type="double"/>
  <graph edgedefault="undirected">
    <node id="0">
      <data key="d0">0.0</data>
      <data key="d1">0.0</data>
      <data key="d2">street_point</data>
    </node>
    <node id="1">
      <data key="d0">30.0</data>
      <data key="d1">40.0</data>
      <data key="d2">street_connection</data>
    </node>
    <node id="2">
      <data key="d0">30.0</data>
      <data key="d1">45.0</data>
      <data key="d2">building</data>
      <data key="d3">12000.5</data>
      <data key="d4">way/123</data>
    </node>
    <node id="3">
      <data key="d0">-5.0</data>
      <data key="d1">0.0</data>
      <data key="d2">heat_source</data>
    </node>
    <edge source="0" target="1">
      <data key="d5">street_segment</data>
      <data key="d6">50.0</data>
      <data key="d7">Hauptstraße</data>
    </edge>
    <edge source="2" target="1">
      <data key="d5">building_connection</data>
      <data key="d6">5.0</data>
    </edge>
    <edge source="3" target="0"/>
  </graph>
</graphml>`

func TestParse_NetworkxDocument(t *testing.T) {
	g, err := NewParser().Parse([]byte(networkxDoc))
	require.NoError(t, err)

	require.Len(t, g.Nodes, 4)
	require.Len(t, g.Edges, 3)

	building, ok := g.Node("2")
	require.True(t, ok)
	assert.Equal(t, model.NodeTypeBuilding, building.Type)
	require.NotNil(t, building.Coord)
	assert.Equal(t, model.Coord{X: 30, Y: 45}, *building.Coord)
	require.NotNil(t, building.HeatDemandKWh)
	assert.InDelta(t, 12000.5, *building.HeatDemandKWh, 1e-9)
	assert.Equal(t, "way/123", building.Extra["osmid"])

	street, _ := g.Node("0")
	assert.Equal(t, model.NodeType("street_point"), street.Type, "parser keeps the written spelling")
	assert.Nil(t, street.HeatDemandKWh)

	seg := g.Edges[0]
	assert.Equal(t, "0", seg.U)
	assert.Equal(t, "1", seg.V)
	assert.Equal(t, model.EdgeTypeStreetSegment, seg.Type)
	require.NotNil(t, seg.LengthM)
	assert.InDelta(t, 50.0, *seg.LengthM, 1e-9)
	assert.Equal(t, "Hauptstraße", seg.Extra["street_name"])

	untyped := g.Edges[2]
	assert.Equal(t, model.EdgeType(""), untyped.Type)
	assert.Nil(t, untyped.LengthM)
}

func TestParse_KeyDefaults(t *testing.T) {
	doc := `<graphml>
  <key id="t" for="node" attr.name="type" attr.type="string"><default>street</default></key>
  <graph edgedefault="undirected">
    <node id="a"/>
    <node id="b"><data key="t">heat_source</data></node>
  </graph>
</graphml>`

	g, err := NewParser().Parse([]byte(doc))
	require.NoError(t, err)

	a, _ := g.Node("a")
	b, _ := g.Node("b")
	assert.Equal(t, model.NodeTypeStreet, a.Type)
	assert.Equal(t, model.NodeTypeHeatSource, b.Type)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "Empty Output", doc: ``},
		{name: "Not XML", doc: `node 1 -- node 2`},
		{name: "No Graph Element", doc: `<graphml><key id="d0" for="node" attr.name="x"/></graphml>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_NonFiniteNumbersAreDropped(t *testing.T) {
	doc := `<graphml>
  <key id="x" for="node" attr.name="x"/>
  <key id="y" for="node" attr.name="y"/>
  <key id="h" for="node" attr.name="heat_demand"/>
  <key id="l" for="edge" attr.name="length"/>
  <graph>
    <node id="a"><data key="x">NaN</data><data key="y">1</data><data key="h">inf</data></node>
    <node id="b"><data key="x">1</data><data key="y">1</data><data key="h">n/a</data></node>
    <edge source="a" target="b"><data key="l">-3</data></edge>
  </graph>
</graphml>`

	g, err := NewParser().Parse([]byte(doc))
	require.NoError(t, err)

	a, _ := g.Node("a")
	b, _ := g.Node("b")
	assert.Nil(t, a.Coord)
	assert.Nil(t, a.HeatDemandKWh)
	assert.NotNil(t, b.Coord)
	assert.Nil(t, b.HeatDemandKWh)
	assert.Nil(t, g.Edges[0].LengthM, "negative lengths fall back to geometry")
}

func TestValidate_FiltersAndCounts(t *testing.T) {
	g, err := NewParser().Parse([]byte(networkxDoc))
	require.NoError(t, err)

	// Unsupported node, node without coordinates, self loop, dangling and ineligible edges
	g.AddNode(&model.Node{ID: "x", Type: "transformer", Coord: &model.Coord{X: 1, Y: 1}})
	g.AddNode(&model.Node{ID: "nocoord", Type: model.NodeTypeStreet})
	g.AddEdge(&model.Edge{U: "0", V: "0"})
	g.AddEdge(&model.Edge{U: "0", V: "x"})
	g.AddEdge(&model.Edge{U: "1", V: "nocoord"})
	g.AddEdge(&model.Edge{U: "0", V: "1", Type: "service_line"})

	out, report, err := Validate(g, ValidateOptions{
		EdgeTypesAsPipes:   []string{"street_segment", "building_connection", "heat_source_connection"},
		RequireCoordinates: true,
	})
	require.NoError(t, err)

	assert.Len(t, out.Nodes, 4)
	assert.Len(t, out.Edges, 3)
	assert.Equal(t, 1, report.Skipped.UnsupportedNodes)
	assert.Equal(t, 1, report.Skipped.NodesWithoutCoordinates)
	assert.Equal(t, 1, report.Skipped.SelfLoops)
	assert.Equal(t, 2, report.Skipped.DanglingEdges)
	assert.Equal(t, 1, report.Skipped.UnsupportedEdges)
	require.Len(t, report.Unsupported, 2)
	assert.Equal(t, "node", report.Unsupported[0].Kind)
	assert.Equal(t, "edge", report.Unsupported[1].Kind)

	street, _ := out.Node("0")
	assert.Equal(t, model.NodeTypeStreet, street.Type, "alias is normalized")

	// Edge 3-0 had no type: it touches a heat source
	assert.Equal(t, model.EdgeTypeHeatSourceConnection, out.Edges[2].Type)

	// Input is untouched
	original, _ := g.Node("0")
	assert.Equal(t, model.NodeType("street_point"), original.Type)
}

func TestValidate_KeepsNodesWithoutCoordinatesWhenAllowed(t *testing.T) {
	g := model.NewInputGraph()
	g.AddNode(&model.Node{ID: "s", Type: model.NodeTypeHeatSource})
	g.AddNode(&model.Node{ID: "b", Type: model.NodeTypeBuilding, Coord: &model.Coord{X: 1, Y: 2}})
	g.AddEdge(&model.Edge{U: "s", V: "b"})

	out, report, err := Validate(g, ValidateOptions{EdgeTypesAsPipes: []string{"building_connection"}})
	require.NoError(t, err)
	assert.Len(t, out.Nodes, 2)
	assert.Len(t, out.Edges, 1)
	assert.Zero(t, report.Skipped.Total())
}

func TestValidate_EverythingSkippedIsFatal(t *testing.T) {
	g := model.NewInputGraph()
	g.AddNode(&model.Node{ID: "a", Type: "pumping_station", Coord: &model.Coord{}})
	g.AddNode(&model.Node{ID: "b", Type: "valve", Coord: &model.Coord{}})

	_, _, err := Validate(g, ValidateOptions{RequireCoordinates: true})

	var unsupported *model.UnsupportedComponentError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "a", unsupported.ID)
}

func TestValidate_EverythingWithoutCoordinatesIsFatal(t *testing.T) {
	g := model.NewInputGraph()
	g.AddNode(&model.Node{ID: "a", Type: model.NodeTypeHeatSource})

	_, report, err := Validate(g, ValidateOptions{RequireCoordinates: true})

	assert.ErrorIs(t, err, model.ErrEmptyNetwork)
	assert.Equal(t, 1, report.Skipped.NodesWithoutCoordinates)
}
