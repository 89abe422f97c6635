// Package export writes ride results out of the run store: JSON documents
// and PNG charts.
package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/braketilt/internal/ride"
)

type ExportData struct {
	Scenario        string             `json:"scenario"`
	Profile         string             `json:"profile"`
	Dt              float64            `json:"dt"`
	Ticks           int                `json:"ticks"`
	HoldActivations int                `json:"hold_activations"`
	Metrics         map[string]float64 `json:"metrics"`
	Samples         []ride.Sample      `json:"samples"`
}

func newExportData(result *ride.Result) ExportData {
	return ExportData{
		Scenario:        result.Scenario,
		Profile:         result.Profile,
		Dt:              result.Dt,
		Ticks:           len(result.Samples),
		HoldActivations: result.HoldActivations,
		Metrics:         result.Metrics,
		Samples:         result.Samples,
	}
}

func WriteJSON(w io.Writer, result *ride.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExportData(result))
}

func ExportJSON(path string, result *ride.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, result)
}
