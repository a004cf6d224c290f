package solver

import (
	"bytes"
	"encoding/json"
	"math"
)

// Results is what the solver reports back, keyed by component name
type Results struct {
	Converged     bool     `json:"converged"`
	Iterations    int      `json:"iterations"`
	Mode          Mode     `json:"mode"`
	FrictionModel string   `json:"friction_model"`
	Errors        []string `json:"errors,omitempty"`

	Junctions      []JunctionResult      `json:"junctions"`
	Pipes          []PipeResult          `json:"pipes"`
	HeatExchangers []HeatExchangerResult `json:"heat_exchangers"`
}

type JunctionResult struct {
	Name         string  `json:"name"`
	PressureBar  float64 `json:"p_bar"`
	TemperatureK float64 `json:"t_k"`
}

type PipeResult struct {
	Name           string  `json:"name"`
	VMeanMPerS     float64 `json:"v_mean_m_per_s"`
	PFromBar       float64 `json:"p_from_bar"`
	PToBar         float64 `json:"p_to_bar"`
	TFromK         float64 `json:"t_from_k"`
	TToK           float64 `json:"t_to_k"`
	MdotFromKgPerS float64 `json:"mdot_from_kg_per_s"`
	Reynolds       float64 `json:"reynolds"`
	FrictionFactor float64 `json:"lambda"`
}

type HeatExchangerResult struct {
	Name           string  `json:"name"`
	VMeanMPerS     float64 `json:"v_mean_m_per_s"`
	PFromBar       float64 `json:"p_from_bar"`
	PToBar         float64 `json:"p_to_bar"`
	TFromK         float64 `json:"t_from_k"`
	TToK           float64 `json:"t_to_k"`
	MdotFromKgPerS float64 `json:"mdot_from_kg_per_s"`
}

// Values the solver could not compute arrive as null or as the bare NaN and
// Infinity tokens Python's json module writes. Both decode to NaN; a field
// missing from a row does too.

func (r *JunctionResult) UnmarshalJSON(data []byte) error {
	type plain JunctionResult
	nan := math.NaN()
	row := plain{PressureBar: nan, TemperatureK: nan}
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}
	*r = JunctionResult(row)
	return nil
}

func (r *PipeResult) UnmarshalJSON(data []byte) error {
	type plain PipeResult
	nan := math.NaN()
	row := plain{
		VMeanMPerS: nan, PFromBar: nan, PToBar: nan, TFromK: nan, TToK: nan,
		MdotFromKgPerS: nan, Reynolds: nan, FrictionFactor: nan,
	}
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}
	*r = PipeResult(row)
	return nil
}

func (r *HeatExchangerResult) UnmarshalJSON(data []byte) error {
	type plain HeatExchangerResult
	nan := math.NaN()
	row := plain{VMeanMPerS: nan, PFromBar: nan, PToBar: nan, TFromK: nan, TToK: nan, MdotFromKgPerS: nan}
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}
	*r = HeatExchangerResult(row)
	return nil
}

var nonFiniteTokens = [][]byte{[]byte("-Infinity"), []byte("Infinity"), []byte("NaN")}

// DecodeResults parses a solver results document, accepting non-finite
// number tokens outside of strings as null
func DecodeResults(raw []byte) (*Results, error) {
	var res Results
	if err := json.Unmarshal(replaceNonFinite(raw), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func replaceNonFinite(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	inString := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if inString {
			out = append(out, c)
			switch c {
			case '\\':
				if i+1 < len(raw) {
					i++
					out = append(out, raw[i])
				}
			case '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			out = append(out, c)
			continue
		}
		replaced := false
		for _, tok := range nonFiniteTokens {
			if bytes.HasPrefix(raw[i:], tok) {
				out = append(out, "null"...)
				i += len(tok) - 1
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, c)
		}
	}
	return out
}
