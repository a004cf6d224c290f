package results

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ritzau/heatnet/pkg/model"
	"github.com/ritzau/heatnet/pkg/solver"
)

// Artifacts lists where exports were written; empty entries were skipped
type Artifacts struct {
	JunctionsCSV      string `json:"junction_results_csv,omitempty"`
	PipesCSV          string `json:"pipe_results_csv,omitempty"`
	HeatExchangersCSV string `json:"heat_exchanger_results_csv,omitempty"`
	PipesGeoJSON      string `json:"pipe_results_geojson,omitempty"`
}

// RunSummary describes a finished solve
type RunSummary struct {
	RunID            string      `json:"run_id"`
	Converged        bool        `json:"converged"`
	Mode             solver.Mode `json:"mode"`
	FrictionModel    string      `json:"friction_model"`
	Iterations       int         `json:"iterations"`
	PressureMinBar   *float64    `json:"p_min_bar"`
	PressureMaxBar   *float64    `json:"p_max_bar"`
	VelocityMaxMPerS *float64    `json:"v_max_m_per_s"`
	Errors           []string    `json:"errors,omitempty"`
	Unmatched        Unmatched   `json:"unmatched_rows"`
	Artifacts        Artifacts   `json:"artifacts"`

	// Failure is set when the solver did not converge
	Failure *model.SolverConvergenceFailure `json:"-"`
}

// Summarize computes the run summary for joined tables.
// Extremes skip values the solver could not compute and stay nil when no
// finite value is left.
func Summarize(runID string, res *solver.Results, t *Tables) RunSummary {
	s := RunSummary{
		RunID:         runID,
		Converged:     res.Converged,
		Mode:          res.Mode,
		FrictionModel: res.FrictionModel,
		Iterations:    res.Iterations,
		Errors:        res.Errors,
		Unmatched:     t.Unmatched,
	}

	p := make([]float64, 0, len(t.Junctions))
	for _, j := range t.Junctions {
		p = appendFinite(p, j.PressureBar)
	}
	if len(p) > 0 {
		lo, hi := floats.Min(p), floats.Max(p)
		s.PressureMinBar, s.PressureMaxBar = &lo, &hi
	}
	v := make([]float64, 0, len(t.Pipes))
	for _, r := range t.Pipes {
		v = appendFinite(v, math.Abs(r.VMeanMPerS))
	}
	if len(v) > 0 {
		vmax := floats.Max(v)
		s.VelocityMaxMPerS = &vmax
	}

	if !res.Converged {
		s.Failure = &model.SolverConvergenceFailure{
			Mode:       string(res.Mode),
			Iterations: res.Iterations,
			Errors:     res.Errors,
		}
	}
	return s
}

func appendFinite(xs []float64, x float64) []float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return xs
	}
	return append(xs, x)
}
