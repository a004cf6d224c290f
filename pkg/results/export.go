package results

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/ritzau/heatnet/pkg/config"
	"github.com/ritzau/heatnet/pkg/geo"
	"github.com/ritzau/heatnet/pkg/logging"
)

// Exporter writes result tables to their configured destinations
type Exporter struct {
	paths     config.Paths
	projector *geo.Projector
	targetCRS string
}

// NewExporter creates an exporter; pipe geometry is projected from crs.Input to crs.Target
func NewExporter(paths config.Paths, crs config.CRS) (*Exporter, error) {
	projector, err := geo.NewProjector(crs.Input, crs.Target)
	if err != nil {
		return nil, err
	}
	return &Exporter{paths: paths, projector: projector, targetCRS: crs.Target}, nil
}

// Export writes every configured artifact concurrently. Each goes to its own file.
// The GeoJSON export is skipped when no pipe has coordinates at both ends.
func (e *Exporter) Export(ctx context.Context, t *Tables) (Artifacts, error) {
	logger := logging.New("results.export")
	var artifacts Artifacts

	g, ctx := errgroup.WithContext(ctx)

	if path := e.paths.JunctionResultsCSV; path != "" {
		g.Go(func() error {
			if err := writeCSV(ctx, path, junctionRecords(t)); err != nil {
				return err
			}
			artifacts.JunctionsCSV = path
			return nil
		})
	}
	if path := e.paths.PipeResultsCSV; path != "" {
		g.Go(func() error {
			if err := writeCSV(ctx, path, pipeRecords(t)); err != nil {
				return err
			}
			artifacts.PipesCSV = path
			return nil
		})
	}
	if path := e.paths.HeatExchangerResultsCSV; path != "" {
		g.Go(func() error {
			if err := writeCSV(ctx, path, heatExchangerRecords(t)); err != nil {
				return err
			}
			artifacts.HeatExchangersCSV = path
			return nil
		})
	}
	if path := e.paths.PipeResultsGeoJSON; path != "" {
		g.Go(func() error {
			fc := e.pipeFeatures(t)
			if len(fc.Features) == 0 {
				logger.InfoContext(ctx, "No pipe geodata, skipping GeoJSON export")
				return nil
			}
			if err := writeJSON(ctx, path, fc); err != nil {
				return err
			}
			artifacts.PipesGeoJSON = path
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Artifacts{}, err
	}
	logger.InfoContext(ctx, "Results exported",
		"junctions", artifacts.JunctionsCSV,
		"pipes", artifacts.PipesCSV,
		"heatExchangers", artifacts.HeatExchangersCSV,
		"geojson", artifacts.PipesGeoJSON)
	return artifacts, nil
}

func writeCSV(ctx context.Context, path string, records [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func writeJSON(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// num formats a value for CSV; values the solver could not compute stay empty
func num(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func optional(s *Snapshot, pressure bool) string {
	if s == nil {
		return ""
	}
	if pressure {
		return num(s.PressureBar)
	}
	return num(s.TemperatureK)
}

func junctionRecords(t *Tables) [][]string {
	records := [][]string{{"name", "node_id", "circuit", "display_name", "p_bar", "t_k", "x", "y"}}
	for _, j := range t.Junctions {
		x, y := "", ""
		if j.Geo != nil {
			x, y = num(j.Geo.X), num(j.Geo.Y)
		}
		records = append(records, []string{
			j.Name, j.NodeID, j.Circuit.Label(), j.DisplayName,
			num(j.PressureBar), num(j.TemperatureK), x, y,
		})
	}
	return records
}

func pipeRecords(t *Tables) [][]string {
	records := [][]string{{
		"name", "circuit", "edge_type", "from_junction", "to_junction",
		"from_junction_name", "to_junction_name", "length_m", "diameter_m",
		"v_mean_m_per_s", "p_from_bar", "p_to_bar", "t_from_k", "t_to_k",
		"mdot_from_kg_per_s", "reynolds", "lambda",
	}}
	for _, p := range t.Pipes {
		records = append(records, []string{
			p.Name, p.Circuit.Label(), string(p.EdgeType), p.FromJunction, p.ToJunction,
			p.FromJunctionName, p.ToJunctionName, num(p.LengthM), num(p.DiameterM),
			num(p.VMeanMPerS), num(p.PFromBar), num(p.PToBar), num(p.TFromK), num(p.TToK),
			num(p.MdotFromKgPerS), num(p.Reynolds), num(p.FrictionFactor),
		})
	}
	return records
}

func heatExchangerRecords(t *Tables) [][]string {
	records := [][]string{{
		"name", "building_id", "qext_w", "mdot_from_kg_per_s", "v_mean_m_per_s",
		"p_from_bar", "p_to_bar", "t_from_k", "t_to_k",
		"supply_p_bar", "supply_t_k", "return_p_bar", "return_t_k",
	}}
	for _, h := range t.HeatExchangers {
		records = append(records, []string{
			h.Name, h.BuildingID, num(h.QextW), num(h.MdotFromKgPerS), num(h.VMeanMPerS),
			num(h.PFromBar), num(h.PToBar), num(h.TFromK), num(h.TToK),
			optional(h.Supply, true), optional(h.Supply, false),
			optional(h.Return, true), optional(h.Return, false),
		})
	}
	return records
}
