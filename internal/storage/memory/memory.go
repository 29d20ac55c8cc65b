// internal/storage/memory/memory.go
package memory

import (
	"sync"

	"github.com/tunnelwatch/engine/internal/config"
	"github.com/tunnelwatch/engine/pkg/core"
)

// VehicleRecord groups a vehicle with its time-series states
type VehicleRecord struct {
	Spawn  core.SpawnEvent
	States []core.VehicleState
}

// Backend keeps the whole run in memory and writes a JSON archive on EndRun
type Backend struct {
	cfg config.StorageConfig
	run *core.Run

	vehicles map[uint64]*VehicleRecord // keyed by engine-assigned vehicle ID

	alerts  []core.AlertEvent
	samples []core.TickSample
	perf    []core.RunPerformance

	runCounter     uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.StorageConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		vehicles: make(map[uint64]*VehicleRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run and assigns it a sequential ID
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.runCounter++
	run.ID = b.runCounter
	b.run = run

	// Reset all collections
	b.vehicles = make(map[uint64]*VehicleRecord)
	b.alerts = nil
	b.samples = nil
	b.perf = nil

	return nil
}

// EndRun finalizes and exports the run data
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return nil
	}
	return b.exportJSON()
}

// AddVehicle registers a vehicle entering the tunnel
func (b *Backend) AddVehicle(e *core.SpawnEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.vehicles[e.Vehicle.ID] = &VehicleRecord{
		Spawn:  *e,
		States: make([]core.VehicleState, 0),
	}
	return nil
}

// GetVehicleByID looks up a recorded vehicle by its engine-assigned ID
func (b *Backend) GetVehicleByID(id uint64) (*core.Vehicle, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if record, ok := b.vehicles[id]; ok {
		return &record.Spawn.Vehicle, true
	}
	return nil, false
}

// RecordVehicleState records a vehicle state update
func (b *Backend) RecordVehicleState(s *core.VehicleState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.vehicles[s.VehicleID]; ok {
		record.States = append(record.States, *s)
	}
	// silently ignore states for unknown vehicles
	return nil
}

// RecordAlert records an anomaly alert
func (b *Backend) RecordAlert(a *core.AlertEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = append(b.alerts, *a)
	return nil
}

// RecordEnvironmentSample records a per-tick environment sample
func (b *Backend) RecordEnvironmentSample(s *core.TickSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = append(b.samples, *s)
	return nil
}

// RecordRunPerformance records a writer health sample
func (b *Backend) RecordRunPerformance(p *core.RunPerformance) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.perf = append(b.perf, *p)
	return nil
}

// ExportedFilePath returns the path of the last written archive
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
