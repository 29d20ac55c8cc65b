package sim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tunnelwatch/engine/pkg/core"
)

// Config bundles the tuning knobs for one simulation engine.
type Config struct {
	Generator GeneratorConfig
	Motion    MotionConfig
	Detector  DetectorConfig

	// TickIncrement is the fixed logical time added to elapsed per tick,
	// decoupled from the wall-clock delta driving the spawn gate.
	TickIncrement float64

	// SpawnIntervalMin/Max bound the randomized spawn threshold. A new
	// vehicle spawns once the wall time since the last spawn exceeds the
	// threshold; the threshold is redrawn after every spawn.
	SpawnIntervalMin time.Duration
	SpawnIntervalMax time.Duration

	AlertLogCapacity int
}

// DefaultConfig returns the standard simulation parameters.
func DefaultConfig() Config {
	return Config{
		Generator:        DefaultGeneratorConfig(),
		Motion:           DefaultMotionConfig(),
		Detector:         DefaultDetectorConfig(),
		TickIncrement:    0.1,
		SpawnIntervalMin: 2000 * time.Millisecond,
		SpawnIntervalMax: 4000 * time.Millisecond,
		AlertLogCapacity: DefaultAlertLogCapacity,
	}
}

// TickResult is what one completed tick hands to the embedding shell for
// distribution to recorders and metrics. It is a value; the engine keeps no
// reference to it after returning.
type TickResult struct {
	Spawned []core.Vehicle
	Alerts  []core.Alert
	Sample  core.TickSample
}

// Engine owns the tick loop state: the live vehicle set, elapsed time, the
// alert log, the environmental signals, and the incident flag. All mutation
// happens inside Tick while holding the engine mutex; external consumers only
// ever see whole-tick state through Snapshot.
type Engine struct {
	mu  sync.Mutex
	cfg Config
	rng Rand

	generator *Generator
	detector  *Detector
	alerts    *AlertLog
	env       *Environment

	running    bool
	generation uint64
	tick       uint64
	elapsed    float64
	vehicles   []core.Vehicle
	incident   bool

	sinceSpawn     time.Duration
	spawnThreshold time.Duration

	snapshot atomic.Pointer[Snapshot]
}

// NewEngine creates a stopped engine with empty state.
func NewEngine(cfg Config, rng Rand) *Engine {
	alerts := NewAlertLog(cfg.AlertLogCapacity)
	e := &Engine{
		cfg:       cfg,
		rng:       rng,
		generator: NewGenerator(cfg.Generator, rng),
		detector:  NewDetector(cfg.Detector, alerts),
		alerts:    alerts,
		env:       NewEnvironment(),
	}
	e.spawnThreshold = e.drawSpawnThreshold()
	e.publish()
	return e
}

// Start transitions Stopped -> Running. Starting a running engine is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.publish()
}

// Pause transitions Running -> Stopped. Any tick observed after Pause returns
// is rejected: Tick re-checks the running flag and the generation under the
// same mutex.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	e.publish()
}

// Reset returns the engine to its initial state from any state: empty vehicle
// set, zero elapsed time and counters, default environmental signals, empty
// alert log, incident flag cleared, Stopped. The generation counter advances
// so a tick scheduled before the reset can never apply afterwards.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	e.generation++
	e.tick = 0
	e.elapsed = 0
	e.vehicles = nil
	e.incident = false
	e.sinceSpawn = 0
	e.generator.Reset()
	e.detector.Reset()
	e.alerts.Clear()
	e.env.Reset()
	e.spawnThreshold = e.drawSpawnThreshold()
	e.publish()
}

// AcknowledgeIncident clears the latched incident flag without touching the
// alert log.
func (e *Engine) AcknowledgeIncident() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.incident = false
	e.publish()
}

// Generation returns the current reset generation. A shell scheduling ticks
// asynchronously captures this before scheduling and passes it to TickGen so
// a racing reset wins.
func (e *Engine) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// Tick advances the simulation by one step using the wall-clock delta since
// the previous tick. It returns ok=false without touching state when the
// engine is not running.
func (e *Engine) Tick(delta time.Duration) (TickResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tickLocked(delta)
}

// TickGen is Tick with a generation guard: the step is rejected when a reset
// has happened since the caller observed gen.
func (e *Engine) TickGen(delta time.Duration, gen uint64) (TickResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation {
		return TickResult{}, false
	}
	return e.tickLocked(delta)
}

func (e *Engine) tickLocked(delta time.Duration) (TickResult, bool) {
	if !e.running {
		return TickResult{}, false
	}

	var result TickResult

	// Spawn gate: independent wall-clock timer with a redrawn threshold.
	e.sinceSpawn += delta
	if e.sinceSpawn >= e.spawnThreshold {
		v := e.generator.Spawn()
		e.vehicles = append(e.vehicles, v)
		result.Spawned = append(result.Spawned, v)
		e.sinceSpawn = 0
		e.spawnThreshold = e.drawSpawnThreshold()
	}

	// Motion, then detection over the post-motion set.
	e.vehicles = Advance(e.vehicles, e.cfg.Motion, e.rng)
	result.Alerts = e.detector.Scan(e.vehicles, time.Now())
	if len(result.Alerts) > 0 {
		e.incident = true
	}

	e.env.Tick(e.rng)
	e.elapsed += e.cfg.TickIncrement
	e.tick++

	result.Sample = core.TickSample{
		Tick:         e.tick,
		Time:         time.Now(),
		Elapsed:      e.elapsed,
		VehicleCount: len(e.vehicles),
		Environment:  e.env.Reading(),
	}

	e.publish()
	return result, true
}

// SpawnVehicle inserts an operator-triggered vehicle of the given type at the
// tunnel entrance. Primarily used to dispatch emergency vehicles, which the
// weighted generator never produces on its own.
func (e *Engine) SpawnVehicle(t core.VehicleType) core.Vehicle {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.generator.SpawnOfType(t)
	e.vehicles = append(e.vehicles, v)
	e.publish()
	return v
}

// Snapshot returns the most recently committed read-only view. Never nil.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// publish commits the whole-tick state as a fresh immutable snapshot.
// Caller must hold e.mu.
func (e *Engine) publish() {
	vehicles := make([]core.Vehicle, len(e.vehicles))
	copy(vehicles, e.vehicles)
	e.snapshot.Store(&Snapshot{
		Tick:             e.tick,
		Elapsed:          e.elapsed,
		Vehicles:         vehicles,
		VehicleCount:     len(vehicles),
		Environment:      e.env.Reading(),
		Alerts:           e.alerts.All(),
		IncidentDetected: e.incident,
		Running:          e.running,
	})
}

func (e *Engine) drawSpawnThreshold() time.Duration {
	span := e.cfg.SpawnIntervalMax - e.cfg.SpawnIntervalMin
	if span <= 0 {
		return e.cfg.SpawnIntervalMin
	}
	return e.cfg.SpawnIntervalMin + time.Duration(e.rng.Float64()*float64(span))
}
