package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/heatnet/pkg/logging"
	"github.com/ritzau/heatnet/pkg/metrics"
	"github.com/ritzau/heatnet/pkg/model"
	"github.com/ritzau/heatnet/pkg/network"
	"github.com/ritzau/heatnet/pkg/pipeline"
	"github.com/ritzau/heatnet/pkg/pubsub"
	"github.com/ritzau/heatnet/pkg/results"
)

// Pipeline is the part of the runner the server drives
type Pipeline interface {
	Run(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error)
	LastBuild() *network.Build
	LastRun() *results.RunSummary
}

// RunResponse is returned by the trigger endpoints
type RunResponse struct {
	RunID string              `json:"run_id"`
	Build *model.BuildSummary `json:"build"`
	Run   *results.RunSummary `json:"run,omitempty"`
}

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

var topics = map[string]bool{
	pubsub.TopicPipelineStatus: true,
	pubsub.TopicBuildSummary:   true,
	pubsub.TopicRunSummary:     true,
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	pipeline  Pipeline
	publisher pubsub.Publisher
	metrics   *metrics.Registry
}

// NewPublisher creates the SSE publisher with the buffering each topic needs.
// New subscribers see the latest status and the latest summaries.
func NewPublisher() *pubsub.SSEPublisher {
	p := pubsub.NewSSEPublisher()
	p.ConfigureTopic(pubsub.TopicPipelineStatus, pubsub.TopicConfig{BufferSize: 10, ReplayAll: false})
	p.ConfigureTopic(pubsub.TopicBuildSummary, pubsub.TopicConfig{BufferSize: 1, ReplayAll: false})
	p.ConfigureTopic(pubsub.TopicRunSummary, pubsub.TopicConfig{BufferSize: 1, ReplayAll: false})
	return p
}

// NewServer creates a new web server
func NewServer(p Pipeline, publisher pubsub.Publisher, reg *metrics.Registry) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		pipeline:  p,
		publisher: publisher,
		metrics:   reg,
	}
	s.setupRoutes()
	return s
}

// Handler returns the root handler with request logging applied
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

func (s *Server) setupRoutes() {
	s.router.Use(s.metricsMiddleware)

	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	s.router.HandleFunc("/api/summary", s.handleSummary).Methods("GET")
	s.router.HandleFunc("/api/network", s.handleNetwork).Methods("GET")
	s.router.HandleFunc("/api/results", s.handleResults).Methods("GET")

	s.router.HandleFunc("/api/build", s.handleTrigger(false)).Methods("POST")
	s.router.HandleFunc("/api/run", s.handleTrigger(true)).Methods("POST")

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if !topics[topic] {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown topic: %s", topic), "")
		return
	}

	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err, "")
		return
	}
	defer sub.Close()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flush(w)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.WarnContext(r.Context(), "Error writing SSE event", "topic", topic, "error", err)
				return
			}
			flush(w)
		}
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	build := s.pipeline.LastBuild()
	if build == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no network has been built yet"), "")
		return
	}
	writeJSON(w, http.StatusOK, build.Summary)
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	build := s.pipeline.LastBuild()
	if build == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no network has been built yet"), "")
		return
	}
	writeJSON(w, http.StatusOK, network.NewDocument(build))
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	run := s.pipeline.LastRun()
	if run == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no pipeflow results yet"), "")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleTrigger(solve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.pipeline.Run(r.Context(), pipeline.Options{Solve: solve, Reason: "api"})
		if err != nil {
			writeError(w, statusFor(err), err, pipeline.FailureReason(err))
			return
		}

		resp := RunResponse{RunID: res.RunID, Build: &res.Build.Summary}
		if res.Outcome != nil {
			resp.Run = &res.Outcome.Summary
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// statusFor maps pipeline errors onto HTTP status codes
func statusFor(err error) int {
	switch pipeline.FailureReason(err) {
	case "missing_input", "no_heat_source", "empty_network":
		return http.StatusUnprocessableEntity
	case "dependency_unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error, reason string) {
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Reason: reason})
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// metricsMiddleware records request counts by route template, not by raw path
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(rec.status), time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Flush() {
	flush(rec.ResponseWriter)
}

// Start serves until ctx is canceled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logging.Info("Starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	// Closing the publisher ends open event streams so Shutdown does not wait on them
	if err := s.publisher.Close(); err != nil {
		logging.Warn("Error closing publisher", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down web server: %w", err)
	}
	logging.Info("Web server stopped")
	return nil
}
