// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tunnelwatch/engine/internal/config"
	v1 "github.com/tunnelwatch/engine/internal/storage/memory/export/v1"
)

// exportJSON writes the run data to a JSON archive, gzipped when configured.
// Caller holds b.mu.
func (b *Backend) exportJSON() error {
	export := v1.Build(b.buildRunData())

	// Build filename
	runName := strings.ReplaceAll(b.run.Name, " ", "_")
	runName = strings.ReplaceAll(runName, ":", "_")
	timestamp := b.run.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", runName, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", runName, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildRunData() *v1.RunData {
	vehicles := make(map[uint64]*v1.VehicleRecord, len(b.vehicles))
	for id, record := range b.vehicles {
		vehicles[id] = &v1.VehicleRecord{
			Spawn:  record.Spawn,
			States: record.States,
		}
	}

	return &v1.RunData{
		Run:           b.run,
		TickIncrement: config.GetFloat64("sim.tickIncrement"),
		Vehicles:      vehicles,
		Alerts:        b.alerts,
		Samples:       b.samples,
	}
}

func writeJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
