package graphml

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ritzau/heatnet/pkg/model"
)

// Attribute names written by the graph generator
const (
	attrNodeType   = "node_type"
	attrEdgeType   = "edge_type"
	attrType       = "type"
	attrX          = "x"
	attrY          = "y"
	attrHeatDemand = "heat_demand"
	attrLength     = "length"
)

// Document is the subset of the GraphML schema the generator writes
type Document struct {
	XMLName xml.Name   `xml:"graphml"`
	Keys    []KeyXML   `xml:"key"`
	Graphs  []GraphXML `xml:"graph"`
}

// KeyXML declares an attribute: id is what <data key=".."> refers to
type KeyXML struct {
	ID      string  `xml:"id,attr"`
	For     string  `xml:"for,attr"`
	Name    string  `xml:"attr.name,attr"`
	Type    string  `xml:"attr.type,attr"`
	Default *string `xml:"default"`
}

type GraphXML struct {
	EdgeDefault string    `xml:"edgedefault,attr"`
	Nodes       []NodeXML `xml:"node"`
	Edges       []EdgeXML `xml:"edge"`
}

type NodeXML struct {
	ID   string    `xml:"id,attr"`
	Data []DataXML `xml:"data"`
}

type EdgeXML struct {
	Source string    `xml:"source,attr"`
	Target string    `xml:"target,attr"`
	Data   []DataXML `xml:"data"`
}

type DataXML struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// Parser handles parsing of GraphML into the input graph model
type Parser struct{}

// NewParser creates a new GraphML parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes GraphML into a model.InputGraph.
// Node and edge types are stored as written; Validate normalizes and filters them.
func (p *Parser) Parse(data []byte) (*model.InputGraph, error) {
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse GraphML: %w", err)
	}
	if len(doc.Graphs) == 0 {
		return nil, fmt.Errorf("GraphML document contains no <graph> element")
	}

	nodeKeys, edgeKeys := resolveKeys(doc.Keys)
	graph := model.NewInputGraph()

	// 1. Create nodes
	for _, gx := range doc.Graphs {
		for _, nx := range gx.Nodes {
			attrs := collect(nx.Data, nodeKeys)
			node := &model.Node{
				ID:   nx.ID,
				Type: model.NodeType(firstOf(attrs, attrNodeType, attrType)),
			}

			x, okX := parseFloat(attrs[attrX])
			y, okY := parseFloat(attrs[attrY])
			if okX && okY {
				node.Coord = &model.Coord{X: x, Y: y}
			}

			if raw, ok := attrs[attrHeatDemand]; ok {
				if demand, ok := parseFloat(raw); ok {
					node.HeatDemandKWh = &demand
				}
			}

			node.Extra = extras(attrs, attrNodeType, attrType, attrX, attrY, attrHeatDemand)
			graph.AddNode(node)
		}
	}

	// 2. Create edges
	for _, gx := range doc.Graphs {
		for _, ex := range gx.Edges {
			attrs := collect(ex.Data, edgeKeys)
			edge := &model.Edge{
				U:    ex.Source,
				V:    ex.Target,
				Type: model.EdgeType(firstOf(attrs, attrEdgeType, attrType)),
			}
			if length, ok := parseFloat(attrs[attrLength]); ok && length >= 0 {
				edge.LengthM = &length
			}
			edge.Extra = extras(attrs, attrEdgeType, attrType, attrLength)
			graph.AddEdge(edge)
		}
	}

	return graph, nil
}

type keyInfo struct {
	name string
	def  *string
}

func resolveKeys(keys []KeyXML) (map[string]keyInfo, map[string]keyInfo) {
	nodeKeys := make(map[string]keyInfo)
	edgeKeys := make(map[string]keyInfo)
	for _, k := range keys {
		info := keyInfo{name: k.Name, def: k.Default}
		if info.name == "" {
			info.name = k.ID
		}
		switch k.For {
		case "node":
			nodeKeys[k.ID] = info
		case "edge":
			edgeKeys[k.ID] = info
		case "all", "":
			nodeKeys[k.ID] = info
			edgeKeys[k.ID] = info
		}
	}
	return nodeKeys, edgeKeys
}

// collect maps <data> entries to attribute names, filling declared defaults first
func collect(data []DataXML, keys map[string]keyInfo) map[string]string {
	attrs := make(map[string]string, len(keys))
	for _, k := range keys {
		if k.def != nil {
			attrs[k.name] = strings.TrimSpace(*k.def)
		}
	}
	for _, d := range data {
		name := d.Key
		if k, ok := keys[d.Key]; ok {
			name = k.name
		}
		attrs[name] = strings.TrimSpace(d.Value)
	}
	return attrs
}

func firstOf(attrs map[string]string, names ...string) string {
	for _, n := range names {
		if v := attrs[n]; v != "" {
			return v
		}
	}
	return ""
}

func extras(attrs map[string]string, known ...string) map[string]string {
	skip := make(map[string]bool, len(known))
	for _, k := range known {
		skip[k] = true
	}
	var out map[string]string
	for k, v := range attrs {
		if skip[k] {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[k] = v
	}
	return out
}

// parseFloat accepts finite numbers only
func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
