package geo

import (
	"fmt"
	"math"
	"strings"

	"github.com/ritzau/heatnet/pkg/model"
)

const earthRadiusM = 6378137.0

// Projector converts coordinates between two reference systems
type Projector struct {
	from, to string
	project  func(model.Coord) model.Coord
}

// NewProjector returns a projector from one CRS to another.
// Equal systems yield the identity; EPSG:4326 to EPSG:3857 uses spherical web mercator.
func NewProjector(from, to string) (*Projector, error) {
	from, to = normalize(from), normalize(to)
	p := &Projector{from: from, to: to}

	switch {
	case from == to:
		p.project = func(c model.Coord) model.Coord { return c }
	case from == "EPSG:4326" && to == "EPSG:3857":
		p.project = toWebMercator
	case from == "EPSG:3857" && to == "EPSG:4326":
		p.project = fromWebMercator
	default:
		return nil, fmt.Errorf("unsupported projection %s -> %s", from, to)
	}
	return p, nil
}

// Identity reports whether Project returns its input unchanged
func (p *Projector) Identity() bool {
	return p.from == p.to
}

// Project converts c into the target system
func (p *Projector) Project(c model.Coord) model.Coord {
	return p.project(c)
}

func normalize(crs string) string {
	s := strings.ToUpper(strings.TrimSpace(crs))
	s = strings.TrimPrefix(s, "URN:OGC:DEF:CRS:")
	s = strings.Replace(s, "EPSG::", "EPSG:", 1)
	if s == "WGS84" || s == "CRS84" || s == "OGC:1.3:CRS84" {
		return "EPSG:4326"
	}
	return s
}

// toWebMercator expects X as longitude and Y as latitude in degrees
func toWebMercator(c model.Coord) model.Coord {
	lat := math.Max(math.Min(c.Y, 85.05112878), -85.05112878)
	return model.Coord{
		X: earthRadiusM * c.X * math.Pi / 180,
		Y: earthRadiusM * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360)),
	}
}

func fromWebMercator(c model.Coord) model.Coord {
	return model.Coord{
		X: c.X / earthRadiusM * 180 / math.Pi,
		Y: (2*math.Atan(math.Exp(c.Y/earthRadiusM)) - math.Pi/2) * 180 / math.Pi,
	}
}
