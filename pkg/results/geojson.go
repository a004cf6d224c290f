package results

import (
	"math"
	"strings"
)

// FeatureCollection is a GeoJSON feature collection of pipe line strings
type FeatureCollection struct {
	Type     string    `json:"type"`
	CRS      *NamedCRS `json:"crs,omitempty"`
	Features []Feature `json:"features"`
}

// NamedCRS is the legacy GeoJSON crs member
type NamedCRS struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
}

type Feature struct {
	Type       string         `json:"type"`
	Geometry   LineString     `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type LineString struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

func (e *Exporter) pipeFeatures(t *Tables) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
	if crs := strings.ToUpper(e.targetCRS); crs != "" && crs != "EPSG:4326" {
		if code, ok := strings.CutPrefix(crs, "EPSG:"); ok {
			fc.CRS = &NamedCRS{
				Type:       "name",
				Properties: map[string]string{"name": "urn:ogc:def:crs:EPSG::" + code},
			}
		}
	}

	for _, p := range t.Pipes {
		if p.FromGeo == nil || p.ToGeo == nil {
			continue
		}
		from := e.projector.Project(*p.FromGeo)
		to := e.projector.Project(*p.ToGeo)
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Geometry: LineString{
				Type:        "LineString",
				Coordinates: [][2]float64{{from.X, from.Y}, {to.X, to.Y}},
			},
			Properties: map[string]any{
				"name":               p.Name,
				"circuit":            p.Circuit.Label(),
				"edge_type":          p.EdgeType,
				"from_junction_name": p.FromJunctionName,
				"to_junction_name":   p.ToJunctionName,
				"length_m":           p.LengthM,
				"diameter_m":         p.DiameterM,
				"v_mean_m_per_s":     finite(p.VMeanMPerS),
				"p_from_bar":         finite(p.PFromBar),
				"p_to_bar":           finite(p.PToBar),
				"t_from_k":           finite(p.TFromK),
				"t_to_k":             finite(p.TToK),
				"mdot_from_kg_per_s": finite(p.MdotFromKgPerS),
			},
		})
	}
	return fc
}

// finite maps values the solver could not compute to JSON null
func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
