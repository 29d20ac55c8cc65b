// Package worker connects the control surface to the simulation engine and
// fans completed ticks out to the storage backend and the metrics pipeline.
package worker

import (
	"context"
	"time"

	"github.com/tunnelwatch/engine/internal/handlers"
	"github.com/tunnelwatch/engine/internal/influx"
	"github.com/tunnelwatch/engine/internal/logging"
	"github.com/tunnelwatch/engine/internal/sim"
	"github.com/tunnelwatch/engine/internal/storage"
	"github.com/tunnelwatch/engine/internal/view"
	"github.com/tunnelwatch/engine/pkg/core"
)

// Dependencies holds all dependencies for the worker manager.
type Dependencies struct {
	Engine         *sim.Engine
	Selector       *view.ZoneSelector
	HandlerService handlers.Service
	LogManager     *logging.SlogManager

	// Metrics is optional; nil disables metric export entirely.
	Metrics *influx.Manager
}

// Manager routes operator commands to the engine and records tick output.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
}

// NewManager creates a new worker manager.
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// PerformanceProvider is an optional interface backends implement to expose
// write queue depths and the last write cycle duration for health sampling.
type PerformanceProvider interface {
	QueueLengths() (vehicles, states, alerts, samples int)
	LastWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(PerformanceProvider); ok {
		return p.LastWriteDuration()
	}
	return 0
}

// record forwards one completed tick to the storage backend and the metrics
// pipeline. Without an active run the tick output is dropped; the engine
// keeps running but nothing is recorded.
func (m *Manager) record(result sim.TickResult) {
	run, active := m.deps.HandlerService.GetRunContext().Current()
	if !active {
		return
	}

	tick := result.Sample.Tick
	now := result.Sample.Time

	for _, v := range result.Spawned {
		err := m.backend.AddVehicle(&core.SpawnEvent{
			RunID:   run.ID,
			Tick:    tick,
			Time:    now,
			Vehicle: v,
		})
		if err != nil {
			m.deps.LogManager.Logger().Warn("Failed to record vehicle spawn", "vehicleID", v.ID, "error", err)
		}
	}

	// States come from the published snapshot so they reflect post-motion
	// positions for the whole live set, not only this tick's changes.
	for _, v := range m.deps.Engine.Snapshot().Vehicles {
		m.backend.RecordVehicleState(&core.VehicleState{
			RunID:       run.ID,
			Tick:        tick,
			Time:        now,
			VehicleID:   v.ID,
			Position:    v.Position,
			Speed:       v.Speed,
			Temperature: v.Temperature,
			Detected:    v.Detected,
			Slowed:      v.Slowed,
		})
	}

	for _, a := range result.Alerts {
		event := core.AlertEvent{RunID: run.ID, Tick: tick, Alert: a}
		m.backend.RecordAlert(&event)
		if m.deps.Metrics != nil {
			m.deps.Metrics.WritePoint(context.Background(), influx.BucketAlerts, influx.AlertPoint(&event))
		}
	}

	sample := result.Sample
	sample.RunID = run.ID
	m.backend.RecordEnvironmentSample(&sample)

	if m.deps.Metrics != nil {
		m.deps.Metrics.WritePoint(context.Background(), influx.BucketTraffic, influx.TrafficPoint(&sample))
		m.deps.Metrics.WritePoint(context.Background(), influx.BucketEnvironment, influx.EnvironmentPoint(&sample))
	}
}

// SamplePerformance records a writer health sample from the backend's queue
// depths. Backends that don't expose them report ok=false and nothing is
// recorded.
func (m *Manager) SamplePerformance() (core.RunPerformance, bool) {
	p, ok := m.backend.(PerformanceProvider)
	if !ok {
		return core.RunPerformance{}, false
	}
	run, active := m.deps.HandlerService.GetRunContext().Current()
	if !active {
		return core.RunPerformance{}, false
	}

	vehicles, states, alerts, samples := p.QueueLengths()
	perf := core.RunPerformance{
		RunID:               run.ID,
		Time:                time.Now(),
		QueueVehicles:       vehicles,
		QueueVehicleStates:  states,
		QueueAlerts:         alerts,
		QueueSamples:        samples,
		LastWriteDurationMs: float32(p.LastWriteDuration().Milliseconds()),
	}

	m.backend.RecordRunPerformance(&perf)
	if m.deps.Metrics != nil {
		m.deps.Metrics.WritePoint(context.Background(), influx.BucketPerformance, influx.PerformancePoint(&perf))
	}
	return perf, true
}
