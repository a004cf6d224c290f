package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ritzau/heatnet/pkg/model"
)

// Registry holds all metrics for the application
type Registry struct {
	registry *prometheus.Registry

	// Build metrics
	BuildsTotal       *prometheus.CounterVec
	BuildDuration     prometheus.Histogram
	PrunedComponents  prometheus.Counter
	PrunedNodes       prometheus.Counter
	ClampedPipes      prometheus.Counter
	SkippedElements   *prometheus.CounterVec
	NetworkJunctions  prometheus.Gauge
	NetworkPipes      prometheus.Gauge
	HeatLoadWatts     prometheus.Gauge
	PumpMassFlowKgPS  prometheus.Gauge
	MassFlowFromFloor prometheus.Gauge

	// Solver metrics
	SolverRunsTotal   *prometheus.CounterVec
	SolverDuration    prometheus.Histogram
	SolverIterations  prometheus.Histogram
	PressureMinBar    prometheus.Gauge
	PressureMaxBar    prometheus.Gauge
	VelocityMaxMPerS  prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with every heatnet metric registered
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	f := promauto.With(r.registry)

	r.BuildsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "heatnet_builds_total",
		Help: "Network builds by outcome",
	}, []string{"outcome"})
	r.BuildDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "heatnet_build_duration_seconds",
		Help:    "Time from graph load to serialized network",
		Buckets: prometheus.DefBuckets,
	})
	r.PrunedComponents = f.NewCounter(prometheus.CounterOpts{
		Name: "heatnet_pruned_components_total",
		Help: "Connected components removed for lacking a heat source",
	})
	r.PrunedNodes = f.NewCounter(prometheus.CounterOpts{
		Name: "heatnet_pruned_nodes_total",
		Help: "Nodes removed by pruning",
	})
	r.ClampedPipes = f.NewCounter(prometheus.CounterOpts{
		Name: "heatnet_clamped_pipes_total",
		Help: "Pipes whose length was raised to the minimum",
	})
	r.SkippedElements = f.NewCounterVec(prometheus.CounterOpts{
		Name: "heatnet_skipped_elements_total",
		Help: "Input elements skipped during loading, by reason",
	}, []string{"reason"})
	r.NetworkJunctions = f.NewGauge(prometheus.GaugeOpts{
		Name: "heatnet_network_junctions",
		Help: "Junctions in the last built network",
	})
	r.NetworkPipes = f.NewGauge(prometheus.GaugeOpts{
		Name: "heatnet_network_pipes",
		Help: "Pipes in the last built network",
	})
	r.HeatLoadWatts = f.NewGauge(prometheus.GaugeOpts{
		Name: "heatnet_heat_load_watts",
		Help: "Total building heat load of the last build",
	})
	r.PumpMassFlowKgPS = f.NewGauge(prometheus.GaugeOpts{
		Name: "heatnet_pump_mass_flow_kg_per_second",
		Help: "Total circulation pump mass flow of the last build",
	})
	r.MassFlowFromFloor = f.NewGauge(prometheus.GaugeOpts{
		Name: "heatnet_pump_mass_flow_at_minimum",
		Help: "1 when the last build's mass flow was raised to the configured minimum",
	})

	r.SolverRunsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "heatnet_solver_runs_total",
		Help: "Solver invocations by outcome",
	}, []string{"outcome"})
	r.SolverDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "heatnet_solver_duration_seconds",
		Help:    "Wall time of solver invocations",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	})
	r.SolverIterations = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "heatnet_solver_iterations",
		Help:    "Iterations reported by the solver",
		Buckets: []float64{5, 10, 20, 50, 100, 200},
	})
	r.PressureMinBar = f.NewGauge(prometheus.GaugeOpts{
		Name: "heatnet_junction_pressure_min_bar",
		Help: "Lowest junction pressure of the last solve",
	})
	r.PressureMaxBar = f.NewGauge(prometheus.GaugeOpts{
		Name: "heatnet_junction_pressure_max_bar",
		Help: "Highest junction pressure of the last solve",
	})
	r.VelocityMaxMPerS = f.NewGauge(prometheus.GaugeOpts{
		Name: "heatnet_pipe_velocity_max_m_per_second",
		Help: "Highest absolute pipe velocity of the last solve",
	})

	r.HTTPRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "heatnet_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})
	r.HTTPRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "heatnet_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	r.registry.MustRegister(collectors.NewGoCollector())

	return r
}

// Handler exposes the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer returns the underlying registry for inspection
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordBuild records a successful build
func (r *Registry) RecordBuild(s model.BuildSummary, duration time.Duration) {
	r.BuildsTotal.WithLabelValues("success").Inc()
	r.BuildDuration.Observe(duration.Seconds())

	r.PrunedComponents.Add(float64(s.PrunedComponents))
	r.PrunedNodes.Add(float64(s.PrunedNodes))
	r.ClampedPipes.Add(float64(s.PipesClamped))

	r.SkippedElements.WithLabelValues("without_coordinates").Add(float64(s.Skipped.NodesWithoutCoordinates))
	r.SkippedElements.WithLabelValues("unsupported_node").Add(float64(s.Skipped.UnsupportedNodes))
	r.SkippedElements.WithLabelValues("unsupported_edge").Add(float64(s.Skipped.UnsupportedEdges))
	r.SkippedElements.WithLabelValues("dangling_edge").Add(float64(s.Skipped.DanglingEdges))
	r.SkippedElements.WithLabelValues("self_loop").Add(float64(s.Skipped.SelfLoops))
	r.SkippedElements.WithLabelValues("without_demand").Add(float64(s.Skipped.BuildingsWithoutDemand))

	r.NetworkJunctions.Set(float64(s.JunctionsTotal))
	r.NetworkPipes.Set(float64(s.PipesTotal))
	r.HeatLoadWatts.Set(s.TotalHeatLoadW)
	r.PumpMassFlowKgPS.Set(s.PumpMassFlowKgPerS)
	if s.PumpMassFlowSource == model.MassFlowFromMinimum {
		r.MassFlowFromFloor.Set(1)
	} else {
		r.MassFlowFromFloor.Set(0)
	}
}

// RecordBuildFailure counts a failed build under a short reason label
func (r *Registry) RecordBuildFailure(reason string) {
	r.BuildsTotal.WithLabelValues(reason).Inc()
}

// RecordSolve records a finished solver invocation
func (r *Registry) RecordSolve(converged bool, iterations int, duration time.Duration, pMin, pMax, vMax *float64) {
	outcome := "converged"
	if !converged {
		outcome = "not_converged"
	}
	r.SolverRunsTotal.WithLabelValues(outcome).Inc()
	r.SolverDuration.Observe(duration.Seconds())
	r.SolverIterations.Observe(float64(iterations))

	setIf(r.PressureMinBar, pMin)
	setIf(r.PressureMaxBar, pMax)
	setIf(r.VelocityMaxMPerS, vMax)
}

// RecordSolveFailure counts a solver invocation that produced no results
func (r *Registry) RecordSolveFailure(duration time.Duration) {
	r.SolverRunsTotal.WithLabelValues("error").Inc()
	r.SolverDuration.Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func setIf(g prometheus.Gauge, v *float64) {
	if v != nil {
		g.Set(*v)
	}
}
