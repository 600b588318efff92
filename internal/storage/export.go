package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/odestep/internal/dynamo"
)

type ExportData struct {
	*RunMetadata
	Times  []float64      `json:"times"`
	States []dynamo.State `json:"states"`
}

// ExportJSON writes a run's metadata and trajectory as indented JSON.
func ExportJSON(w io.Writer, meta *RunMetadata, states []dynamo.State, times []float64) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{
		RunMetadata: meta,
		Times:       times,
		States:      states,
	})
}
