package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/heatnet/pkg/model"
)

const graphML = `<?xml version='1.0' encoding='utf-8'?>
<graphml xmlns="http://graphml.graphdrawing.org/xmlns">
  <key id="d3" for="node" attr.name="heat_demand" attr.type="double"/>
  <key id="d2" for="node" attr.name="node_type" attr.type="string"/>
  <key id="d1" for="node" attr.name="y" attr.type="double"/>
  <key id="d0" for="node" attr.name="x" attr.type="double"/>
  <graph edgedefault="undirected">
    <node id="s"><data key="d0">0</data><data key="d1">0</data><data key="d2">%s</data></node>
    <node id="b"><data key="d0">10</data><data key="d1">0</data><data key="d2">building</data><data key="d3">100</data></node>
    <edge source="s" target="b"/>
  </graph>
</graphml>`

// writeInputs writes a graph and a config file that keeps every output inside dir
func writeInputs(t *testing.T, sourceType, solver string) (graph, cfg, dir string) {
	t.Helper()
	dir = t.TempDir()
	graph = filepath.Join(dir, "network.graphml")
	require.NoError(t, os.WriteFile(graph, []byte(fmt.Sprintf(graphML, sourceType)), 0o644))

	cfg = filepath.Join(dir, "heatnet.toml")
	require.NoError(t, os.WriteFile(cfg, []byte(fmt.Sprintf(`
[paths]
network_json = %q
junction_results_csv = %q
pipe_results_csv = ""
heat_exchanger_results_csv = ""
pipe_results_geojson = ""

[pipeflow]
command = %q
`, filepath.Join(dir, "out", "network.json"), filepath.Join(dir, "out", "junctions.csv"), solver)), 0o644))
	return graph, cfg, dir
}

func init() {
	color.NoColor = true
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{&model.MissingInputError{}, exitMissingInput},
		{fmt.Errorf("build: %w", &model.NoHeatSourceError{TotalLoadW: 25}), exitNoHeatSource},
		{&model.DependencyUnavailableError{Dependency: "x", Err: errors.New("missing")}, exitDependencyUnavailable},
		{model.ErrEmptyNetwork, exitError},
		{errors.New("boom"), exitError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &out, []string{"--help"}))
	assert.Contains(t, out.String(), "Usage: heatnet <command>")
	assert.Contains(t, out.String(), "--graph")

	out.Reset()
	require.NoError(t, run(context.Background(), &out, []string{"build", "-h"}))
	assert.Contains(t, out.String(), "--json-logs")
	assert.NotContains(t, out.String(), "--port")

	assert.Error(t, run(context.Background(), &out, nil))
}

func TestRun_BadArguments(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, []string{"deploy"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "deploy"`)

	err = run(context.Background(), &out, []string{"build", "--no-such-flag"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-flag")
}

func TestRun_Build(t *testing.T) {
	graph, cfg, dir := writeInputs(t, "heat_source", "pandapipes-runner")

	var out bytes.Buffer
	err := run(context.Background(), &out, []string{"build", "--graph", graph, "--config", cfg})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "out", "network.json"))
	assert.Contains(t, out.String(), "Two-Pipe Network Summary")
	assert.Contains(t, out.String(), "Junctions: 4 (supply 2, return 2)")
	assert.NotContains(t, out.String(), "Pipeflow Summary")
}

func TestRun_MissingGraph(t *testing.T) {
	_, cfg, dir := writeInputs(t, "heat_source", "pandapipes-runner")

	var out bytes.Buffer
	err := run(context.Background(), &out, []string{"build", "--config", cfg, "--graph", filepath.Join(dir, "absent.graphml")})
	assert.Equal(t, exitMissingInput, exitCode(err))
	assert.NoFileExists(t, filepath.Join(dir, "out", "network.json"))
}

func TestRun_NoHeatSource(t *testing.T) {
	graph, cfg, dir := writeInputs(t, "street", "pandapipes-runner")

	var out bytes.Buffer
	err := run(context.Background(), &out, []string{"build", "--graph", graph, "--config", cfg})
	assert.Equal(t, exitNoHeatSource, exitCode(err))
	assert.NoFileExists(t, filepath.Join(dir, "out", "network.json"))
}

func TestRun_SolverMissing(t *testing.T) {
	graph, cfg, dir := writeInputs(t, "heat_source", filepath.Join(t.TempDir(), "no-such-solver"))

	var out bytes.Buffer
	err := run(context.Background(), &out, []string{"run", "--graph", graph, "--config", cfg})
	assert.Equal(t, exitDependencyUnavailable, exitCode(err))
	assert.NoFileExists(t, filepath.Join(dir, "out", "network.json"))
}

func TestRun_WithSolverScript(t *testing.T) {
	script := filepath.Join(t.TempDir(), "solver.sh")
	require.NoError(t, os.WriteFile(script, []byte(`#!/bin/sh
cat > "$2" <<'EOF'
{"converged": true, "iterations": 3, "junctions": [{"name": "sup_s", "p_bar": 20, "t_k": 403.15}]}
EOF
`), 0o755))
	graph, cfg, dir := writeInputs(t, "heat_source", script)

	var out bytes.Buffer
	err := run(context.Background(), &out, []string{"run", "--graph", graph, "--config", cfg})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Converged: yes (3 iterations)")
	assert.FileExists(t, filepath.Join(dir, "out", "junctions.csv"))
}
