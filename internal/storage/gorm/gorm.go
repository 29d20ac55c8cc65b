// Package gormstorage implements the recording backend on a GORM database
// with internal write queues and a background writer goroutine. The SQLite
// and Postgres backends wrap it; the only dialect-specific concerns live in
// those packages.
package gormstorage

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tunnelwatch/engine/internal/geo"
	"github.com/tunnelwatch/engine/internal/model"
	"github.com/tunnelwatch/engine/internal/queue"
	"github.com/tunnelwatch/engine/pkg/core"
)

// Dependencies holds all dependencies for the GORM storage backend.
// A nil DB puts the backend in queue-only mode, used by unit tests.
type Dependencies struct {
	DB     *gorm.DB
	Logger zerolog.Logger
	Axis   geo.Axis
	Tunnel model.Tunnel
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Vehicles      *queue.Queue[model.Vehicle]
	VehicleStates *queue.Queue[model.VehicleState]
	Alerts        *queue.Queue[model.Alert]
	Samples       *queue.Queue[model.EnvironmentSample]
	Performance   *queue.Queue[model.RunPerformance]
}

func newQueues() *queues {
	return &queues{
		Vehicles:      queue.New[model.Vehicle](),
		VehicleStates: queue.New[model.VehicleState](),
		Alerts:        queue.New[model.Alert](),
		Samples:       queue.New[model.EnvironmentSample](),
		Performance:   queue.New[model.RunPerformance](),
	}
}

// Backend implements the recording backend using GORM with queue-based batch writes.
type Backend struct {
	deps          Dependencies
	queues        *queues
	runID         atomic.Uint64
	lastWriteNano atomic.Int64
	stopChan      chan struct{}
	dbReady       bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// Init creates internal queues, runs schema migration, and starts the DB
// writer goroutine. In queue-only mode it only creates the queues.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})

	if b.deps.DB == nil {
		return nil
	}

	if err := b.setupDB(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.dbReady = true

	b.startDBWriter()
	return nil
}

// setupDB migrates tables and creates default operator settings if they don't exist.
func (b *Backend) setupDB() error {
	db := b.deps.DB
	log := b.deps.Logger

	if !db.Migrator().HasTable(&model.SimInfo{}) {
		if err := db.AutoMigrate(&model.SimInfo{}); err != nil {
			log.Error().Err(err).Msg("Failed to create sim_infos table")
			return fmt.Errorf("failed to auto-migrate SimInfo: %w", err)
		}
		if err := db.Create(&model.SimInfo{
			OperatorName: "TunnelWatch",
			Description:  "Tunnel traffic simulation",
			Website:      "https://github.com/tunnelwatch/engine",
		}).Error; err != nil {
			return fmt.Errorf("failed to create sim_infos entry: %w", err)
		}
	}

	if db.Name() == "postgres" {
		if err := db.Exec(`CREATE Extension IF NOT EXISTS postgis;`).Error; err != nil {
			return fmt.Errorf("failed to create PostGIS Extension: %w", err)
		}
		log.Info().Msg("PostGIS Extension created")
	}

	log.Info().Msg("Migrating schema")
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Info().Msg("Database setup complete")
	return nil
}

// Close stops the DB writer goroutine.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
	}
	return nil
}

// StartRun performs tunnel get-or-insert and run create in the DB, then
// assigns the DB-generated ID back to the core run.
func (b *Backend) StartRun(run *core.Run) error {
	if b.deps.DB == nil {
		return nil
	}

	db := b.deps.DB

	tunnel := b.deps.Tunnel
	if portal, err := b.deps.Axis.PointAt(0); err == nil {
		tunnel.Portal = portal
	}
	if _, err := tunnel.GetOrInsert(db); err != nil {
		return fmt.Errorf("failed to get or insert tunnel: %w", err)
	}

	gormRun := model.Run{
		Name:          run.Name,
		StartTime:     run.StartTime,
		TunnelID:      tunnel.ID,
		Tunnel:        tunnel,
		EngineVersion: core.EngineVersion,
	}
	if err := db.Create(&gormRun).Error; err != nil {
		return fmt.Errorf("failed to insert new run: %w", err)
	}

	run.ID = gormRun.ID
	b.runID.Store(uint64(gormRun.ID))

	return nil
}

// DB exposes the underlying connection for dialect-specific setup such as
// TimescaleDB hypertables. Nil in queue-only mode.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// SetRunID sets the current run ID for the DB writer (used by CLI tools).
func (b *Backend) SetRunID(id uint) {
	b.runID.Store(uint64(id))
}

// EndRun flushes the remaining queue contents synchronously.
func (b *Backend) EndRun() error {
	if b.deps.DB == nil || !b.dbReady {
		return nil
	}
	b.drainQueues()
	return nil
}

// AddVehicle converts a spawn event to GORM and pushes to the write queue.
func (b *Backend) AddVehicle(e *core.SpawnEvent) error {
	b.queues.Vehicles.Push(model.Vehicle{
		ObjectID:   e.Vehicle.ID,
		EntryTime:  e.Time,
		EntryTick:  uint(e.Tick),
		Kind:       string(e.Vehicle.Type),
		Color:      e.Vehicle.Color,
		Lane:       uint8(e.Vehicle.Lane),
		EntrySpeed: float32(e.Vehicle.Speed),
	})
	return nil
}

// RecordVehicleState converts and queues a vehicle state, projecting the
// tunnel position onto the georeferenced axis.
func (b *Backend) RecordVehicleState(s *core.VehicleState) error {
	state := model.VehicleState{
		Time:            s.Time,
		Tick:            uint(s.Tick),
		VehicleObjectID: s.VehicleID,
		PositionPct:     float32(s.Position),
		Speed:           float32(s.Speed),
		TemperatureC:    float32(s.Temperature),
		Detected:        s.Detected,
		Slowed:          s.Slowed,
	}
	if loc, err := b.deps.Axis.PointAt(s.Position); err == nil {
		state.Location = loc
	}
	b.queues.VehicleStates.Push(state)
	return nil
}

// RecordAlert converts and queues an alert. The location is the midpoint of
// the camera zone that raised it; the exact vehicle position is in the
// vehicle state stream.
func (b *Backend) RecordAlert(a *core.AlertEvent) error {
	alert := model.Alert{
		Time:     a.Alert.Time,
		Tick:     uint(a.Tick),
		Severity: string(a.Alert.Severity),
		Message:  a.Alert.Message,
		Zone:     a.Alert.Zone,
	}
	if a.Alert.VehicleID != 0 {
		alert.VehicleObjectID.Int64 = int64(a.Alert.VehicleID)
		alert.VehicleObjectID.Valid = true
	}
	for _, zone := range core.Zones() {
		if zone.ID == a.Alert.Zone {
			if loc, err := b.deps.Axis.PointAt((zone.Lo + zone.Hi) / 2); err == nil {
				alert.Location = loc
			}
			break
		}
	}
	if payload, err := json.Marshal(map[string]any{
		"vehicleId": a.Alert.VehicleID,
		"alertId":   a.Alert.ID,
	}); err == nil {
		alert.Payload = datatypes.JSON(payload)
	}
	b.queues.Alerts.Push(alert)
	return nil
}

// RecordEnvironmentSample converts and queues a per-tick environment sample.
func (b *Backend) RecordEnvironmentSample(s *core.TickSample) error {
	b.queues.Samples.Push(model.EnvironmentSample{
		Time:         s.Time,
		Tick:         uint(s.Tick),
		Elapsed:      float32(s.Elapsed),
		VehicleCount: uint16(s.VehicleCount),
		AirQuality:   float32(s.Environment.AirQuality),
		TemperatureC: float32(s.Environment.Temperature),
		Visibility:   float32(s.Environment.Visibility),
		Ventilation:  float32(s.Environment.Ventilation),
	})
	return nil
}

// RecordRunPerformance converts and queues a writer health sample.
func (b *Backend) RecordRunPerformance(p *core.RunPerformance) error {
	b.queues.Performance.Push(model.RunPerformance{
		Time: p.Time,
		WriteQueueLengths: model.WriteQueueLengths{
			Vehicles:      uint16(p.QueueVehicles),
			VehicleStates: uint16(p.QueueVehicleStates),
			Alerts:        uint16(p.QueueAlerts),
			Samples:       uint16(p.QueueSamples),
		},
		LastWriteDurationMs: p.LastWriteDurationMs,
	})
	return nil
}

// QueueLengths returns the current depth of each write queue.
func (b *Backend) QueueLengths() (vehicles, states, alerts, samples int) {
	return b.queues.Vehicles.Len(),
		b.queues.VehicleStates.Len(),
		b.queues.Alerts.Len(),
		b.queues.Samples.Len()
}

// LastWriteDuration returns the duration of the most recent DB write cycle.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastWriteNano.Load())
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed batches are pushed back for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log zerolog.Logger, prepare func([]T)) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log.Error().Err(err).Str("queue", name).Msg("Error writing batch")
		tx.Rollback()
		q.Push(items...)
		return
	}

	tx.Commit()
}

// drainQueues writes one cycle of all queues, stamping the current run ID.
func (b *Backend) drainQueues() {
	log := b.deps.Logger
	runID := uint(b.runID.Load())
	start := time.Now()
	defer func() { b.lastWriteNano.Store(int64(time.Since(start))) }()

	stampVehicles := func(items []model.Vehicle) {
		for i := range items {
			items[i].RunID = runID
		}
	}
	stampVehicleStates := func(items []model.VehicleState) {
		for i := range items {
			items[i].RunID = runID
		}
	}
	stampAlerts := func(items []model.Alert) {
		for i := range items {
			items[i].RunID = runID
		}
	}
	stampSamples := func(items []model.EnvironmentSample) {
		for i := range items {
			items[i].RunID = runID
		}
	}
	stampPerformance := func(items []model.RunPerformance) {
		for i := range items {
			items[i].RunID = runID
		}
	}

	// Vehicles first so the composite FK targets exist
	writeQueue(b.deps.DB, b.queues.Vehicles, "vehicles", log, stampVehicles)
	writeQueue(b.deps.DB, b.queues.VehicleStates, "vehicle states", log, stampVehicleStates)
	writeQueue(b.deps.DB, b.queues.Alerts, "alerts", log, stampAlerts)
	writeQueue(b.deps.DB, b.queues.Samples, "environment samples", log, stampSamples)
	writeQueue(b.deps.DB, b.queues.Performance, "run performance", log, stampPerformance)
}

// startDBWriter starts the background goroutine that periodically drains
// queues into the DB.
func (b *Backend) startDBWriter() {
	go func() {
		for {
			select {
			case <-b.stopChan:
				return
			default:
			}

			if !b.dbReady {
				time.Sleep(1 * time.Second)
				continue
			}

			b.drainQueues()
			time.Sleep(2 * time.Second)
		}
	}()
}
