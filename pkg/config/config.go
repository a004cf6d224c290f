package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds all configuration for the application.
// A loaded Config is treated as immutable and passed by value into each stage.
type Config struct {
	Graph      string `koanf:"graph"` // explicit graph path, overrides Paths.GraphCandidates
	ConfigFile string `koanf:"config"`
	Verbosity  string `koanf:"verbosity"`
	VerboseCnt int    `koanf:"verbose"`
	JSONLogs   bool   `koanf:"json_logs"`

	Paths    Paths    `koanf:"paths"`
	Network  Network  `koanf:"network"`
	Pipeflow Pipeflow `koanf:"pipeflow"`
	CRS      CRS      `koanf:"crs"`
	Server   Server   `koanf:"server"`
}

// Paths lists input candidates and output destinations
type Paths struct {
	GraphCandidates         []string `koanf:"graph_candidates"`
	NetworkJSON             string   `koanf:"network_json" validate:"required"`
	JunctionResultsCSV      string   `koanf:"junction_results_csv"`
	PipeResultsCSV          string   `koanf:"pipe_results_csv"`
	HeatExchangerResultsCSV string   `koanf:"heat_exchanger_results_csv"`
	PipeResultsGeoJSON      string   `koanf:"pipe_results_geojson"`
}

// Network holds the physical constants and component defaults used by the builder
type Network struct {
	SupplyTemperatureC     float64            `koanf:"supply_temperature_c" validate:"gtfield=ReturnTemperatureC"`
	ReturnTemperatureC     float64            `koanf:"return_temperature_c" validate:"gt=-273.15"`
	DeltaTK                float64            `koanf:"delta_t_k" validate:"gte=0"`
	CpJPerKgK              float64            `koanf:"cp_j_per_kgk" validate:"gt=0"`
	MinMassFlowKgPerS      float64            `koanf:"min_mass_flow_kg_per_s" validate:"gt=0"`
	MinJunctionPressureBar float64            `koanf:"min_junction_pressure_bar" validate:"gt=0"`
	PumpPressureBar        float64            `koanf:"pump_pressure_bar" validate:"gt=0"`
	PipeDiameterM          float64            `koanf:"pipe_diameter_m" validate:"gt=0"`
	PipeDiametersByTypeM   map[string]float64 `koanf:"pipe_diameters_by_type_m" validate:"dive,gt=0"`
	RoughnessM             float64            `koanf:"roughness_m" validate:"gte=0"`
	MinPipeLengthM         float64            `koanf:"min_pipe_length_m" validate:"gt=0"`
	HeatExchangerDiameterM float64            `koanf:"heat_exchanger_diameter_m" validate:"gt=0"`
	OperatingHoursPerYear  float64            `koanf:"operating_hours_per_year" validate:"gt=0,lte=8784"`
	DemandScalingFactor    float64            `koanf:"demand_scaling_factor" validate:"gt=0"`
	EdgeTypesAsPipes       []string           `koanf:"edge_types_as_pipes" validate:"min=1"`
	RequireCoordinates     bool               `koanf:"require_coordinates"`
}

// TemperatureDifferenceK returns the configured design ΔT, or supply minus return when unset
func (n Network) TemperatureDifferenceK() float64 {
	if n.DeltaTK > 0 {
		return n.DeltaTK
	}
	return n.SupplyTemperatureC - n.ReturnTemperatureC
}

// Pipeflow configures the external solver invocation
type Pipeflow struct {
	Command       string        `koanf:"command" validate:"required"`
	Args          []string      `koanf:"args"`
	FrictionModel string        `koanf:"friction_model" validate:"oneof=swamee_jain colebrook nikuradse"`
	Mode          string        `koanf:"mode" validate:"oneof=sequential all legacy"`
	Tol           float64       `koanf:"tol" validate:"gt=0"`
	MaxIter       int           `koanf:"max_iter" validate:"gt=0"`
	Timeout       time.Duration `koanf:"timeout" validate:"gte=0"`
	RunAfterBuild bool          `koanf:"run_after_build"`
}

// CRS names the coordinate reference systems of the input graph and the geographic export
type CRS struct {
	Input  string `koanf:"input" validate:"required"`
	Target string `koanf:"target" validate:"required"`
}

// Server configures serve mode
type Server struct {
	Port  int  `koanf:"port" validate:"gte=0,lte=65535"`
	Watch bool `koanf:"watch"`
}

// configFiles are tried in order when no --config flag is given
var configFiles = []string{"heatnet.toml", "heatnet.yaml", "heatnet.yml"}

// flagKeys maps CLI flag names onto nested config keys
var flagKeys = map[string]string{
	"port":  "server.port",
	"watch": "server.watch",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Defaults returns the built-in configuration values
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"graph":     "",
		"config":    "",
		"verbosity": "",
		"verbose":   0,
		"json_logs": false,

		"paths.graph_candidates": []string{
			"./data/filtered_heating_network.graphml",
			"./data/heating_network.graphml",
		},
		"paths.network_json":               "./data/pandapipes/network.json",
		"paths.junction_results_csv":       "./data/pandapipes/junction_results.csv",
		"paths.pipe_results_csv":           "./data/pandapipes/pipe_results.csv",
		"paths.heat_exchanger_results_csv": "./data/pandapipes/heat_exchanger_results.csv",
		"paths.pipe_results_geojson":       "./data/pandapipes/pipe_results.geojson",

		"network.supply_temperature_c":      130.0,
		"network.return_temperature_c":      50.0,
		"network.delta_t_k":                 30.0,
		"network.cp_j_per_kgk":              4180.0,
		"network.min_mass_flow_kg_per_s":    0.1,
		"network.min_junction_pressure_bar": 1.5,
		"network.pump_pressure_bar":         20.0,
		"network.pipe_diameter_m":           0.1,
		"network.pipe_diameters_by_type_m": map[string]interface{}{
			"building_connection": 0.2,
			"street_segment":      0.8,
		},
		"network.roughness_m":               1.0e-4,
		"network.min_pipe_length_m":         0.5,
		"network.heat_exchanger_diameter_m": 0.1,
		"network.operating_hours_per_year":  2000.0,
		"network.demand_scaling_factor":     1.0,
		"network.edge_types_as_pipes": []string{
			"street_segment", "building_connection", "heat_source_connection",
		},
		"network.require_coordinates": true,

		"pipeflow.command":         "pandapipes-runner",
		"pipeflow.args":            []string{},
		"pipeflow.friction_model":  "swamee_jain",
		"pipeflow.mode":            "sequential",
		"pipeflow.tol":             1e-6,
		"pipeflow.max_iter":        100,
		"pipeflow.timeout":         "5m",
		"pipeflow.run_after_build": false,

		"crs.input":  "EPSG:5243",
		"crs.target": "EPSG:5243",

		"server.port":  8080,
		"server.watch": false,
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file: --config wins, otherwise the first well-known name that exists
	explicit := ""
	if f != nil {
		explicit, _ = f.GetString("config")
	}
	if err := loadFile(k, explicit); err != nil {
		return nil, err
	}

	// 3. Environment Variables
	// Prefix: HEATNET_, "__" separates nesting levels (e.g., HEATNET_NETWORK__MIN_PIPE_LENGTH_M=1)
	if err := k.Load(env.Provider("HEATNET_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "HEATNET_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, interface{}) {
			key := fl.Name
			if mapped, ok := flagKeys[key]; ok {
				key = mapped
			}
			return strings.ReplaceAll(key, "-", "_"), posflag.FlagVal(f, fl)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the loaded values against their constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Network.TemperatureDifferenceK() <= 0 {
		return errors.New("invalid configuration: temperature difference must be positive")
	}
	return nil
}

// FindFile returns the config file Load reads: explicit when set, otherwise the first
// well-known name that exists, or "" when there is none
func FindFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFiles {
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			return name
		}
	}
	return ""
}

func loadFile(k *koanf.Koanf, explicit string) error {
	path := FindFile(explicit)
	if path == "" {
		return nil
	}
	parser, err := parserFor(path)
	if err != nil {
		return err
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", path)
	}
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

// Read returns the map unflattened so dotted default keys nest like file keys do
func (p *mapProvider) Read() (map[string]interface{}, error) {
	out := make(map[string]interface{})
	for key, val := range p.m {
		parts := strings.Split(key, ".")
		cur := out
		for _, part := range parts[:len(parts)-1] {
			next, ok := cur[part].(map[string]interface{})
			if !ok {
				next = make(map[string]interface{})
				cur[part] = next
			}
			cur = next
		}
		cur[parts[len(parts)-1]] = val
	}
	return out, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
