package worker

import (
	"fmt"
	"time"

	"github.com/tunnelwatch/engine/internal/dispatcher"
	"github.com/tunnelwatch/engine/pkg/core"
)

// RegisterHandlers registers all control command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Run lifecycle - sync (recording must be active before tick output arrives)
	d.Register(":RUN:START:", m.handleRunStart, dispatcher.Logged())
	d.Register(":RUN:END:", m.handleRunEnd, dispatcher.Logged())

	// Clock transitions - sync
	d.Register(":CLOCK:START:", m.handleClockStart, dispatcher.Logged())
	d.Register(":CLOCK:PAUSE:", m.handleClockPause, dispatcher.Logged())
	d.Register(":CLOCK:RESET:", m.handleClockReset, dispatcher.Logged())

	// High-volume tick stream - buffered; blocking preserves tick order and
	// the generation guard rejects ticks queued before a reset
	d.Register(":TICK:", m.handleTick, dispatcher.Buffered(1000), dispatcher.Blocking(), dispatcher.Logged())

	// Operator actions - sync
	d.Register(":SPAWN:VEHICLE:", m.handleSpawnVehicle, dispatcher.Logged())
	d.Register(":ACK:INCIDENT:", m.handleAckIncident, dispatcher.Logged())
	d.Register(":ZONE:SELECT:", m.handleZoneSelect, dispatcher.Logged())

	// Read-only queries - sync, unlogged to keep polling quiet
	d.Register(":SNAPSHOT:", m.handleSnapshot)
	d.Register(":ZONE:VEHICLES:", m.handleZoneVehicles)

	// Writer health sampling - buffered
	d.Register(":PERF:", m.handlePerf, dispatcher.Buffered(100), dispatcher.Logged())
}

func (m *Manager) handleRunStart(e dispatcher.Event) (any, error) {
	run, err := m.deps.HandlerService.ParseRunStart(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	run.StartTime = e.Timestamp
	if run.StartTime.IsZero() {
		run.StartTime = time.Now()
	}

	// The backend assigns the run ID before the context goes active, so
	// every recorded row carries the final ID.
	if err := m.backend.StartRun(&run); err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	m.deps.HandlerService.GetRunContext().Begin(run)
	m.deps.Engine.Start()

	return run.ID, nil
}

func (m *Manager) handleRunEnd(e dispatcher.Event) (any, error) {
	if _, active := m.deps.HandlerService.GetRunContext().Current(); !active {
		return nil, nil
	}

	m.deps.Engine.Pause()
	if err := m.backend.EndRun(); err != nil {
		return nil, fmt.Errorf("failed to end run: %w", err)
	}
	m.deps.HandlerService.GetRunContext().End()

	return nil, nil
}

func (m *Manager) handleClockStart(e dispatcher.Event) (any, error) {
	m.deps.Engine.Start()
	return nil, nil
}

func (m *Manager) handleClockPause(e dispatcher.Event) (any, error) {
	m.deps.Engine.Pause()
	return nil, nil
}

func (m *Manager) handleClockReset(e dispatcher.Event) (any, error) {
	m.deps.Engine.Reset()
	return nil, nil
}

func (m *Manager) handleTick(e dispatcher.Event) (any, error) {
	delta, gen, err := m.deps.HandlerService.ParseTick(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to process tick: %w", err)
	}

	// A stale generation means a reset raced this tick; dropping it is the
	// correct outcome, not an error.
	result, ok := m.deps.Engine.TickGen(delta, gen)
	if !ok {
		return nil, nil
	}

	m.record(result)
	return nil, nil
}

func (m *Manager) handleSpawnVehicle(e dispatcher.Event) (any, error) {
	vehicleType, err := m.deps.HandlerService.ParseSpawnVehicle(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn vehicle: %w", err)
	}

	v := m.deps.Engine.SpawnVehicle(vehicleType)

	if run, active := m.deps.HandlerService.GetRunContext().Current(); active {
		spawnTime := e.Timestamp
		if spawnTime.IsZero() {
			spawnTime = time.Now()
		}
		m.backend.AddVehicle(&core.SpawnEvent{
			RunID:   run.ID,
			Tick:    m.deps.Engine.Snapshot().Tick,
			Time:    spawnTime,
			Vehicle: v,
		})
	}

	return v.ID, nil
}

func (m *Manager) handleAckIncident(e dispatcher.Event) (any, error) {
	m.deps.Engine.AcknowledgeIncident()
	return nil, nil
}

func (m *Manager) handleZoneSelect(e dispatcher.Event) (any, error) {
	index, err := m.deps.HandlerService.ParseZoneSelect(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to select zone: %w", err)
	}
	if err := m.deps.Selector.Select(index); err != nil {
		return nil, fmt.Errorf("failed to select zone: %w", err)
	}
	return m.deps.Selector.Zone().ID, nil
}

func (m *Manager) handleSnapshot(e dispatcher.Event) (any, error) {
	return m.deps.Engine.Snapshot(), nil
}

func (m *Manager) handleZoneVehicles(e dispatcher.Event) (any, error) {
	return m.deps.Selector.VehiclesInView(m.deps.Engine.Snapshot()), nil
}

func (m *Manager) handlePerf(e dispatcher.Event) (any, error) {
	m.SamplePerformance()
	return nil, nil
}
