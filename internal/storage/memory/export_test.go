// internal/storage/memory/export_test.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tunnelwatch/engine/internal/config"
	v1 "github.com/tunnelwatch/engine/internal/storage/memory/export/v1"
	"github.com/tunnelwatch/engine/pkg/core"
)

func populatedBackend(cfg config.StorageConfig) *Backend {
	b := New(cfg)
	_ = b.StartRun(&core.Run{
		Name:       "Evening Rush",
		TunnelName: "Main Tunnel",
		StartTime:  time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC),
	})

	_ = b.AddVehicle(&core.SpawnEvent{
		Tick:    1,
		Vehicle: core.Vehicle{ID: 1, Type: core.VehicleTypeCar, Lane: 0, Speed: 0.6},
	})
	_ = b.RecordVehicleState(&core.VehicleState{VehicleID: 1, Tick: 2, Position: 0.6, Speed: 0.6})
	_ = b.RecordVehicleState(&core.VehicleState{VehicleID: 1, Tick: 3, Position: 1.2, Speed: 0.6})
	_ = b.RecordAlert(&core.AlertEvent{
		Tick:  3,
		Alert: core.Alert{ID: 1, Severity: core.SeverityWarning, Message: "Slow/stopped car detected in Lane 1 at 1%", Zone: "CAM-1", VehicleID: 1},
	})
	_ = b.RecordEnvironmentSample(&core.TickSample{Tick: 3, Elapsed: 0.3, VehicleCount: 1})

	return b
}

func TestEndRun_WritesPlainArchive(t *testing.T) {
	dir := t.TempDir()
	b := populatedBackend(config.StorageConfig{OutputDir: dir, CompressOutput: false})

	if err := b.EndRun(); err != nil {
		t.Fatalf("EndRun failed: %v", err)
	}

	path := b.ExportedFilePath()
	if path == "" {
		t.Fatal("no archive path recorded")
	}
	if !strings.HasSuffix(path, ".json") {
		t.Errorf("expected .json suffix, got %s", path)
	}
	if !strings.Contains(path, "Evening_Rush") {
		t.Errorf("expected sanitized run name in filename, got %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer f.Close()

	var export v1.Export
	if err := json.NewDecoder(f).Decode(&export); err != nil {
		t.Fatalf("failed to decode archive: %v", err)
	}

	if export.RunName != "Evening Rush" {
		t.Errorf("expected run name 'Evening Rush', got %q", export.RunName)
	}
	if export.TunnelName != "Main Tunnel" {
		t.Errorf("expected tunnel name 'Main Tunnel', got %q", export.TunnelName)
	}
	if len(export.Vehicles) != 1 {
		t.Fatalf("expected 1 vehicle track, got %d", len(export.Vehicles))
	}
	if len(export.Vehicles[0].Positions) != 2 {
		t.Errorf("expected 2 position rows, got %d", len(export.Vehicles[0].Positions))
	}
	if len(export.Alerts) != 1 {
		t.Errorf("expected 1 alert row, got %d", len(export.Alerts))
	}
	if len(export.Environment) != 1 {
		t.Errorf("expected 1 environment row, got %d", len(export.Environment))
	}
	if export.EndTick != 3 {
		t.Errorf("expected end tick 3, got %d", export.EndTick)
	}
}

func TestEndRun_WritesGzipArchive(t *testing.T) {
	dir := t.TempDir()
	b := populatedBackend(config.StorageConfig{OutputDir: dir, CompressOutput: true})

	if err := b.EndRun(); err != nil {
		t.Fatalf("EndRun failed: %v", err)
	}

	path := b.ExportedFilePath()
	if !strings.HasSuffix(path, ".json.gz") {
		t.Errorf("expected .json.gz suffix, got %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("archive is not valid gzip: %v", err)
	}
	defer gz.Close()

	var export v1.Export
	if err := json.NewDecoder(gz).Decode(&export); err != nil {
		t.Fatalf("failed to decode archive: %v", err)
	}
	if export.RunName != "Evening Rush" {
		t.Errorf("expected run name 'Evening Rush', got %q", export.RunName)
	}
}

func TestEndRun_CreatesOutputDir(t *testing.T) {
	dir := t.TempDir() + "/nested/runs"
	b := populatedBackend(config.StorageConfig{OutputDir: dir, CompressOutput: false})

	if err := b.EndRun(); err != nil {
		t.Fatalf("EndRun failed: %v", err)
	}
	if _, err := os.Stat(b.ExportedFilePath()); err != nil {
		t.Errorf("archive not written: %v", err)
	}
}
