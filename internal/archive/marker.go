package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MarkerName is the completion marker written into an extracted working directory.
const MarkerName = ".flashbulb-extracted.json"

// Source describes one extracted archive.
type Source struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Entries int    `json:"entries"`
}

// Marker records a completed extraction.
type Marker struct {
	Archives    []Source  `json:"archives"`
	CompletedAt time.Time `json:"completed_at"`
	// ExportDate is the newest entry modification time, an upper bound for
	// plausible timestamps.
	ExportDate time.Time `json:"export_date,omitzero"`
	// Adopted is set when a pre-existing directory was accepted without extraction.
	Adopted bool `json:"adopted,omitempty"`
}

// ReadMarker loads the marker from dir. The boolean is false when no marker exists.
func ReadMarker(dir string) (Marker, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, MarkerName))
	if errors.Is(err, os.ErrNotExist) {
		return Marker{}, false, nil
	}
	if err != nil {
		return Marker{}, false, fmt.Errorf("read extraction marker: %w", err)
	}
	var marker Marker
	if err := json.Unmarshal(data, &marker); err != nil {
		return Marker{}, false, fmt.Errorf("parse extraction marker: %w", err)
	}
	return marker, true, nil
}

func writeMarker(dir string, marker Marker) error {
	data, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return fmt.Errorf("encode extraction marker: %w", err)
	}
	data = append(data, '\n')
	tmp := filepath.Join(dir, MarkerName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write extraction marker: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, MarkerName)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace extraction marker: %w", err)
	}
	return nil
}
