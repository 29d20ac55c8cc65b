// pkg/core/run.go
package core

import "time"

// Run identifies one simulation session from start to reset/shutdown.
type Run struct {
	ID         uint
	Name       string
	TunnelName string
	StartTime  time.Time
}

// EnvironmentReading is the set of synthetic environmental signals published
// with each snapshot. Ventilation is a static display value, not a random
// walk; it is included because it shares the reset contract.
type EnvironmentReading struct {
	AirQuality  float64 `json:"airQuality"`
	Temperature float64 `json:"temperature"`
	Visibility  float64 `json:"visibility"`
	Ventilation float64 `json:"ventilation"`
}

// TickSample is the per-tick measurement forwarded to the recording backends
// and the metrics pipeline. It never feeds back into simulation state.
type TickSample struct {
	RunID        uint
	Tick         uint64
	Time         time.Time
	Elapsed      float64
	VehicleCount int
	Environment  EnvironmentReading
}

// SpawnEvent records a vehicle entering the tunnel. The vehicle snapshot
// carries the entry speed and temperature as drawn at spawn.
type SpawnEvent struct {
	RunID   uint
	Tick    uint64
	Time    time.Time
	Vehicle Vehicle
}

// VehicleState is one vehicle's kinematic state at a single tick, as handed
// to the recording backends after the motion and detection passes.
type VehicleState struct {
	RunID       uint
	Tick        uint64
	Time        time.Time
	VehicleID   uint64
	Position    float64
	Speed       float64
	Temperature float64
	Detected    bool
	Slowed      bool
}

// AlertEvent pairs an alert with the tick it was raised on. The tick is a
// recording concern; the alert itself only carries wall time.
type AlertEvent struct {
	RunID uint
	Tick  uint64
	Alert Alert
}

// RunPerformance is a health sample of the recording pipeline, taken by the
// writer loop once per drain cycle.
type RunPerformance struct {
	RunID               uint
	Time                time.Time
	QueueVehicles       int
	QueueVehicleStates  int
	QueueAlerts         int
	QueueSamples        int
	LastWriteDurationMs float32
}
