package logging

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf, level)
	t.Cleanup(func() { SetOutput(os.Stdout, slog.LevelInfo) })
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		verbosity string
		count     int
		want      slog.Level
	}{
		{"", 0, slog.LevelInfo},
		{"", 1, slog.LevelDebug},
		{"", 3, LevelTrace},
		{"WARN", 2, slog.LevelWarn},
		{"warning", 0, slog.LevelWarn},
		{"error", 0, slog.LevelError},
		{"trace", 0, LevelTrace},
		{"loud", 0, slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.verbosity, tt.count), "%q/%d", tt.verbosity, tt.count)
	}
}

func TestCompactHandler_Format(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	New("network.builder").Info("Network assembled", "junctions", 10, "path", "a b", "durationMs", 12)
	Debug("hidden")

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "[INFO]  "), line)
	assert.Contains(t, line, "Network assembled | component=network.builder junctions=10")
	assert.Contains(t, line, `path="a b"`)
	assert.Contains(t, line, "duration=12ms")
	assert.NotContains(t, line, "hidden")
	assert.Equal(t, 1, strings.Count(line, "\n"))
}

func TestContextIDsAreStamped(t *testing.T) {
	buf := captureLogs(t, LevelTrace)

	ctx := WithRunID(context.Background(), "0123456789abcdef")
	ctx = WithRequestID(ctx, "fedcba9876543210")
	New("results").WarnContext(ctx, "Solver rows without matching component")
	TraceContext(ctx, "Build stage", "stage", "prune")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, "req=fedcba98")
		assert.Contains(t, line, "run=01234567")
	}
	assert.True(t, strings.HasPrefix(lines[1], "[TRACE]"))
	assert.Equal(t, "0123456789abcdef", GetRunID(ctx))
	assert.Empty(t, GetRunID(context.Background()))
}

func TestRequestIDMiddleware(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	req.Header.Set("X-Request-ID", "given-request-id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "given-request-id", seen)
	assert.Equal(t, "given-request-id", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), "[WARN]  ")
	assert.Contains(t, buf.String(), "status=418")
}

func TestRequestIDMiddleware_GeneratesIDAndQuietsMetrics(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
	assert.Empty(t, buf.String())
}

func TestCompactHandler_UnitsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	h := NewCompactHandler(&buf, nil)
	l := slog.New(h).With("stage", "sizing").WithGroup("pump")

	l.Info("Pump sized", "loadW", 25.0, "massFlowKgPerS", 0.1, "error", "too small")

	line := buf.String()
	assert.Contains(t, line, "| stage=sizing pump.load=25W pump.mass_flow=0.1kg/s")
	assert.Contains(t, line, `error="too small"`)
}
