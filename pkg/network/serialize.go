package network

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ritzau/heatnet/pkg/model"
)

// Document is the serialized form of a build
type Document struct {
	Junctions        []model.Junction        `json:"junctions"`
	Pipes            []model.Pipe            `json:"pipes"`
	HeatExchangers   []model.HeatExchanger   `json:"heat_exchangers"`
	CirculationPumps []model.CirculationPump `json:"circulation_pumps"`
	Summary          model.BuildSummary      `json:"summary"`
}

// NewDocument returns the serializable form of b
func NewDocument(b *Build) Document {
	return Document{
		Junctions:        b.Network.Junctions,
		Pipes:            b.Network.Pipes,
		HeatExchangers:   b.Network.HeatExchangers,
		CirculationPumps: b.Network.CirculationPumps,
		Summary:          b.Summary,
	}
}

// WriteNetwork writes the network and its summary as indented JSON to path,
// creating parent directories as needed. The summary records path as its artifact location.
func WriteNetwork(path string, b *Build) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	b.Summary.NetworkPath = path
	data, err := json.MarshalIndent(NewDocument(b), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding network: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing network %s: %w", path, err)
	}
	return nil
}
