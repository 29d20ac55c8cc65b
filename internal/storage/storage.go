// internal/storage/storage.go
package storage

import "github.com/tunnelwatch/engine/pkg/core"

// Backend is the interface all recording implementations must satisfy.
// One run is active at a time; Record* calls made outside a run are dropped.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management. StartRun assigns the run ID to the passed pointer.
	StartRun(run *core.Run) error
	EndRun() error

	// Vehicle registration
	AddVehicle(e *core.SpawnEvent) error

	// Time-series recording
	RecordVehicleState(s *core.VehicleState) error
	RecordAlert(a *core.AlertEvent) error
	RecordEnvironmentSample(s *core.TickSample) error
	RecordRunPerformance(p *core.RunPerformance) error
}

// Exportable is an optional interface for backends that write a run archive
// to disk when the run ends.
type Exportable interface {
	ExportedFilePath() string
}
