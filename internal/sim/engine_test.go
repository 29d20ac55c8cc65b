package sim

import (
	"math/rand"
	"testing"
	"time"

	"github.com/tunnelwatch/engine/pkg/core"
)

func newTestEngine() *Engine {
	return NewEngine(DefaultConfig(), rand.New(rand.NewSource(1)))
}

func TestEngine_TickRejectedWhileStopped(t *testing.T) {
	e := newTestEngine()

	if _, ok := e.Tick(100 * time.Millisecond); ok {
		t.Fatal("tick applied to a stopped engine")
	}
	if snap := e.Snapshot(); snap.Tick != 0 || snap.Elapsed != 0 {
		t.Errorf("stopped engine state changed: tick=%d elapsed=%v", snap.Tick, snap.Elapsed)
	}
}

// Scenario: pausing freezes all state. Ticks delivered after Pause returns
// are rejected and the snapshot is unchanged; resuming continues from the
// frozen state rather than restarting.
func TestEngine_PauseFreezesState(t *testing.T) {
	e := newTestEngine()
	e.Start()

	for i := 0; i < 30; i++ {
		e.Tick(100 * time.Millisecond)
	}
	e.Pause()

	frozen := e.Snapshot()
	if frozen.Running {
		t.Fatal("snapshot still reports running after pause")
	}

	for i := 0; i < 10; i++ {
		if _, ok := e.Tick(100 * time.Millisecond); ok {
			t.Fatal("tick applied to a paused engine")
		}
	}

	after := e.Snapshot()
	if after.Tick != frozen.Tick || after.Elapsed != frozen.Elapsed {
		t.Errorf("paused state drifted: tick %d -> %d, elapsed %v -> %v",
			frozen.Tick, after.Tick, frozen.Elapsed, after.Elapsed)
	}
	if after.VehicleCount != frozen.VehicleCount {
		t.Errorf("vehicle count changed while paused: %d -> %d",
			frozen.VehicleCount, after.VehicleCount)
	}

	e.Start()
	if _, ok := e.Tick(100 * time.Millisecond); !ok {
		t.Fatal("tick rejected after resume")
	}
	resumed := e.Snapshot()
	if resumed.Tick != frozen.Tick+1 {
		t.Errorf("resume did not continue from frozen state: tick %d, want %d",
			resumed.Tick, frozen.Tick+1)
	}
}

func TestEngine_ElapsedAdvancesByFixedIncrement(t *testing.T) {
	e := newTestEngine()
	e.Start()

	// Wildly uneven wall-clock deltas must not affect logical elapsed time.
	deltas := []time.Duration{10 * time.Millisecond, 500 * time.Millisecond, time.Second}
	ticks := 0
	for i := 0; i < 12; i++ {
		e.Tick(deltas[i%len(deltas)])
		ticks++
	}

	snap := e.Snapshot()
	want := float64(ticks) * 0.1
	if diff := snap.Elapsed - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("elapsed %v after %d ticks, want %v", snap.Elapsed, ticks, want)
	}
}

func TestEngine_SpawnGate(t *testing.T) {
	cfg := DefaultConfig()
	// Deterministic 2s threshold.
	cfg.SpawnIntervalMin = 2 * time.Second
	cfg.SpawnIntervalMax = 2 * time.Second

	e := NewEngine(cfg, rand.New(rand.NewSource(1)))
	e.Start()

	// 19 ticks of 100ms stay under the threshold.
	for i := 0; i < 19; i++ {
		res, _ := e.Tick(100 * time.Millisecond)
		if len(res.Spawned) != 0 {
			t.Fatalf("tick %d: spawned before the threshold elapsed", i)
		}
	}

	res, _ := e.Tick(100 * time.Millisecond)
	if len(res.Spawned) != 1 {
		t.Fatalf("expected a spawn once accumulated time reached the threshold, got %d", len(res.Spawned))
	}
	if res.Spawned[0].Position != 0 {
		t.Errorf("spawned vehicle enters at position %v, want 0", res.Spawned[0].Position)
	}

	// Timer restarts after the spawn.
	res, _ = e.Tick(100 * time.Millisecond)
	if len(res.Spawned) != 0 {
		t.Error("spawned again immediately after the gate fired")
	}
}

func TestEngine_ResetRestoresInitialState(t *testing.T) {
	e := newTestEngine()
	e.Start()

	for i := 0; i < 50; i++ {
		e.Tick(200 * time.Millisecond)
	}
	e.SpawnVehicle(core.VehicleTypeEmergency)

	e.Reset()

	snap := e.Snapshot()
	if snap.Running {
		t.Error("engine still running after reset")
	}
	if snap.Tick != 0 || snap.Elapsed != 0 {
		t.Errorf("counters survived reset: tick=%d elapsed=%v", snap.Tick, snap.Elapsed)
	}
	if snap.VehicleCount != 0 || len(snap.Vehicles) != 0 {
		t.Errorf("vehicles survived reset: %d", snap.VehicleCount)
	}
	if len(snap.Alerts) != 0 {
		t.Errorf("alert log survived reset: %d entries", len(snap.Alerts))
	}
	if snap.IncidentDetected {
		t.Error("incident flag survived reset")
	}
	if env := snap.Environment; env.AirQuality != 85 || env.Temperature != 22 || env.Visibility != 95 {
		t.Errorf("environment not restored to defaults: %+v", env)
	}

	// ID numbering restarts as well.
	e.Start()
	v := e.SpawnVehicle(core.VehicleTypeCar)
	if v.ID != 1 {
		t.Errorf("vehicle IDs did not restart after reset: got %d", v.ID)
	}
}

// A tick scheduled before a reset must lose the race: the generation it
// captured no longer matches and the step is discarded.
func TestEngine_StaleGenerationTickRejected(t *testing.T) {
	e := newTestEngine()
	e.Start()

	gen := e.Generation()
	e.Reset()
	e.Start()

	if _, ok := e.TickGen(100*time.Millisecond, gen); ok {
		t.Fatal("tick from a pre-reset generation was applied")
	}
	if snap := e.Snapshot(); snap.Tick != 0 {
		t.Errorf("stale tick advanced state: tick=%d", snap.Tick)
	}

	if _, ok := e.TickGen(100*time.Millisecond, e.Generation()); !ok {
		t.Fatal("tick with the current generation was rejected")
	}
}

func TestEngine_IncidentLatchAndAcknowledge(t *testing.T) {
	e := newTestEngine()
	e.Start()

	// Drive a stalled hot-free vehicle through detection via a direct spawn.
	v := e.SpawnVehicle(core.VehicleTypeCar)
	e.mu.Lock()
	for i := range e.vehicles {
		if e.vehicles[i].ID == v.ID {
			e.vehicles[i].Speed = 0.05
			e.vehicles[i].Temperature = 25
		}
	}
	e.mu.Unlock()

	res, _ := e.Tick(10 * time.Millisecond)
	if len(res.Alerts) != 1 {
		t.Fatalf("expected the stalled vehicle to raise 1 alert, got %d", len(res.Alerts))
	}
	if !e.Snapshot().IncidentDetected {
		t.Fatal("incident flag not latched")
	}

	// The flag stays latched across quiet ticks.
	e.Tick(10 * time.Millisecond)
	if !e.Snapshot().IncidentDetected {
		t.Error("incident flag dropped without acknowledgement")
	}

	e.AcknowledgeIncident()
	snap := e.Snapshot()
	if snap.IncidentDetected {
		t.Error("incident flag still set after acknowledgement")
	}
	if len(snap.Alerts) != 1 {
		t.Errorf("acknowledgement touched the alert log: %d entries", len(snap.Alerts))
	}
}

func TestEngine_SpawnVehicleEmergency(t *testing.T) {
	e := newTestEngine()

	v := e.SpawnVehicle(core.VehicleTypeEmergency)
	if v.Type != core.VehicleTypeEmergency {
		t.Fatalf("expected emergency vehicle, got %q", v.Type)
	}

	snap := e.Snapshot()
	if snap.VehicleCount != 1 {
		t.Fatalf("dispatched vehicle missing from snapshot: count=%d", snap.VehicleCount)
	}
	if snap.Vehicles[0].Type != core.VehicleTypeEmergency {
		t.Errorf("snapshot vehicle type %q", snap.Vehicles[0].Type)
	}
}

func TestEngine_SnapshotIsolatedFromLaterTicks(t *testing.T) {
	e := newTestEngine()
	e.Start()
	e.SpawnVehicle(core.VehicleTypeCar)

	before := e.Snapshot()
	beforeCount := before.VehicleCount
	beforePos := before.Vehicles[0].Position

	for i := 0; i < 20; i++ {
		e.Tick(100 * time.Millisecond)
	}

	if before.VehicleCount != beforeCount || before.Vehicles[0].Position != beforePos {
		t.Error("earlier snapshot mutated by later ticks")
	}
	if e.Snapshot() == before {
		t.Error("snapshot pointer not replaced by later ticks")
	}
}
