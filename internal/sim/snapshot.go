package sim

import (
	"github.com/tunnelwatch/engine/pkg/core"
)

// Snapshot is the read-only view of simulation state published after each
// completed tick. Consumers (rendering, monitoring, recording) hold the
// pointer returned by Engine.Snapshot; the engine never mutates a published
// snapshot, it swaps in a new one when the next tick commits.
type Snapshot struct {
	Tick             uint64
	Elapsed          float64
	Vehicles         []core.Vehicle
	VehicleCount     int
	Environment      core.EnvironmentReading
	Alerts           []core.Alert
	IncidentDetected bool
	Running          bool
}
