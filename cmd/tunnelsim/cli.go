package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tunnelwatch/engine/internal/config"
	"github.com/tunnelwatch/engine/internal/database"
	"github.com/tunnelwatch/engine/internal/model"
	"github.com/tunnelwatch/engine/internal/sim"
	v1 "github.com/tunnelwatch/engine/internal/storage/memory/export/v1"
	"github.com/tunnelwatch/engine/pkg/core"
)

var db *gorm.DB

// runCLI executes a direct subcommand and exits.
func runCLI(args []string) {
	if strings.ToLower(args[0]) == "demo" {
		runDemo(args[1:])
		return
	}

	var err error
	Logger.Info("Connecting to database...")
	db, err = database.GetPostgresDB()
	if err != nil {
		panic(fmt.Errorf("failed to connect to postgres: %w", err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(fmt.Errorf("failed to access sql interface: %w", err))
	}
	if err = sqlDB.Ping(); err != nil {
		panic(fmt.Errorf("failed to validate connection: %w", err))
	}
	sqlDB.SetMaxOpenConns(10)
	Logger.Info("Database connection established.")

	switch strings.ToLower(args[0]) {
	case "export":
		runIDs := args[1:]
		if len(runIDs) == 0 {
			fmt.Println("No run IDs provided.")
			return
		}
		if err = exportRuns(runIDs); err != nil {
			panic(err)
		}
	case "reduce":
		runIDs := args[1:]
		if len(runIDs) == 0 {
			fmt.Println("No run IDs provided.")
			return
		}
		if err = reduceRuns(runIDs); err != nil {
			panic(err)
		}
	default:
		fmt.Printf("Unknown subcommand %q. Available: demo, export, reduce\n", args[0])
	}
}

// runDemo drives a bounded headless simulation and prints alerts as they are
// raised. No storage, metrics, or dispatcher involved.
func runDemo(args []string) {
	ticks := 600
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			ticks = n
		}
	}

	engine := sim.NewEngine(sim.DefaultConfig(), sim.NewTimeSeededRand())
	engine.Start()

	tickInterval := config.TickInterval()
	for i := 0; i < ticks; i++ {
		result, ok := engine.Tick(tickInterval)
		if !ok {
			break
		}
		for _, v := range result.Spawned {
			fmt.Printf("tick %4d  spawn %-9s id=%d lane=%d speed=%.2f\n",
				result.Sample.Tick, v.Type, v.ID, v.Lane, v.Speed)
		}
		for _, a := range result.Alerts {
			fmt.Printf("tick %4d  ALERT [%s] %s (%s)\n",
				result.Sample.Tick, a.Severity, a.Message, a.Zone)
		}
	}

	snap := engine.Snapshot()
	fmt.Printf("\n%d ticks, %.1f elapsed, %d vehicles in tunnel, incident=%v\n",
		snap.Tick, snap.Elapsed, snap.VehicleCount, snap.IncidentDetected)
}

// exportRuns rebuilds replay archives from the database, in the same format
// the memory backend writes at run end.
func exportRuns(runIDs []string) error {
	for _, runID := range runIDs {
		runIDInt, err := strconv.Atoi(runID)
		if err != nil {
			return err
		}

		txStart := time.Now()
		var run model.Run
		err = db.Model(&model.Run{}).Preload("Tunnel").Where("id = ?", runIDInt).First(&run).Error
		if err != nil {
			return fmt.Errorf("error getting run: %w", err)
		}

		vehicles := []model.Vehicle{}
		err = db.Model(&model.Vehicle{}).Where("run_id = ?", runIDInt).Find(&vehicles).Error
		if err != nil {
			return fmt.Errorf("error getting vehicles: %w", err)
		}

		allStates := []model.VehicleState{}
		err = db.Model(&model.VehicleState{}).
			Where("run_id = ?", runIDInt).
			Order("tick ASC").
			Find(&allStates).Error
		if err != nil {
			return fmt.Errorf("error getting vehicle states: %w", err)
		}
		statesByID := map[uint64][]core.VehicleState{}
		for _, s := range allStates {
			statesByID[s.VehicleObjectID] = append(statesByID[s.VehicleObjectID], core.VehicleState{
				RunID:       s.RunID,
				Tick:        uint64(s.Tick),
				Time:        s.Time,
				VehicleID:   s.VehicleObjectID,
				Position:    float64(s.PositionPct),
				Speed:       float64(s.Speed),
				Temperature: float64(s.TemperatureC),
				Detected:    s.Detected,
				Slowed:      s.Slowed,
			})
		}

		tracks := map[uint64]*v1.VehicleRecord{}
		for _, v := range vehicles {
			tracks[v.ObjectID] = &v1.VehicleRecord{
				Spawn: core.SpawnEvent{
					RunID: v.RunID,
					Tick:  uint64(v.EntryTick),
					Time:  v.EntryTime,
					Vehicle: core.Vehicle{
						ID:    v.ObjectID,
						Lane:  int(v.Lane),
						Speed: float64(v.EntrySpeed),
						Type:  core.VehicleType(v.Kind),
						Color: v.Color,
					},
				},
				States: statesByID[v.ObjectID],
			}
		}

		alerts := []model.Alert{}
		err = db.Model(&model.Alert{}).Where("run_id = ?", runIDInt).Order("tick ASC").Find(&alerts).Error
		if err != nil {
			return fmt.Errorf("error getting alerts: %w", err)
		}
		coreAlerts := make([]core.AlertEvent, 0, len(alerts))
		for _, a := range alerts {
			event := core.AlertEvent{
				RunID: a.RunID,
				Tick:  uint64(a.Tick),
				Alert: core.Alert{
					ID:       uint64(a.ID),
					Time:     a.Time,
					Severity: core.Severity(a.Severity),
					Message:  a.Message,
					Zone:     a.Zone,
				},
			}
			if a.VehicleObjectID.Valid {
				event.Alert.VehicleID = uint64(a.VehicleObjectID.Int64)
			}
			coreAlerts = append(coreAlerts, event)
		}

		samples := []model.EnvironmentSample{}
		err = db.Model(&model.EnvironmentSample{}).Where("run_id = ?", runIDInt).Order("tick ASC").Find(&samples).Error
		if err != nil {
			return fmt.Errorf("error getting environment samples: %w", err)
		}
		coreSamples := make([]core.TickSample, 0, len(samples))
		for _, s := range samples {
			coreSamples = append(coreSamples, core.TickSample{
				RunID:        s.RunID,
				Tick:         uint64(s.Tick),
				Time:         s.Time,
				Elapsed:      float64(s.Elapsed),
				VehicleCount: int(s.VehicleCount),
				Environment: core.EnvironmentReading{
					AirQuality:  float64(s.AirQuality),
					Temperature: float64(s.TemperatureC),
					Visibility:  float64(s.Visibility),
					Ventilation: float64(s.Ventilation),
				},
			})
		}

		export := v1.Build(&v1.RunData{
			Run: &core.Run{
				ID:         run.ID,
				Name:       run.Name,
				TunnelName: run.Tunnel.Name,
				StartTime:  run.StartTime,
			},
			TickIncrement: float64(run.TickIncrement),
			Tag:           run.Tag,
			Vehicles:      tracks,
			Alerts:        coreAlerts,
			Samples:       coreSamples,
		})

		fmt.Println("Got run data in ", time.Since(txStart))

		exportJSON, err := json.Marshal(export)
		if err != nil {
			return fmt.Errorf("error marshalling run data: %w", err)
		}

		fileName := fmt.Sprintf("%s_%s.json.gz", run.Name, run.StartTime.Format("20060102_150405"))
		fileName = strings.ReplaceAll(fileName, " ", "_")
		fileName = strings.ReplaceAll(fileName, ":", "_")
		f, err := os.Create(fileName)
		if err != nil {
			return fmt.Errorf("error creating file: %w", err)
		}
		defer func() { _ = f.Close() }()

		gzWriter := gzip.NewWriter(f)
		defer func() { _ = gzWriter.Close() }()
		if _, err = gzWriter.Write(exportJSON); err != nil {
			return fmt.Errorf("error writing to gzip: %w", err)
		}

		fmt.Println("Wrote run data to ", fileName)
	}

	return nil
}

// reduceRuns thins the vehicle state stream of old runs, keeping every fifth
// tick, then vacuums the touched tables to recover space.
func reduceRuns(runIDs []string) error {
	for _, runID := range runIDs {
		runIDInt, err := strconv.Atoi(runID)
		if err != nil {
			return err
		}

		txStart := time.Now()
		var run model.Run
		err = db.Model(&model.Run{}).Where("id = ?", runIDInt).First(&run).Error
		if err != nil {
			return fmt.Errorf("error getting run: %w", err)
		}

		statesToDelete := []model.VehicleState{}
		err = db.Model(&model.VehicleState{}).Where(
			"run_id = ? AND tick % 5 != 0",
			run.ID,
		).Order("tick ASC").Find(&statesToDelete).Error
		if err != nil {
			return fmt.Errorf("error getting vehicle states to delete: %w", err)
		}

		if len(statesToDelete) == 0 {
			fmt.Println("No vehicle states to delete for runId ", runID, ", checked in ", time.Since(txStart))
			continue
		}

		err = db.Delete(&statesToDelete).Error
		if err != nil {
			return fmt.Errorf("error deleting vehicle states: %w", err)
		}

		fmt.Println("Deleted ", len(statesToDelete), " vehicle states from runId ", runID, " in ", time.Since(txStart))
	}

	fmt.Println("")
	fmt.Println("----------------------------------------")
	fmt.Println("")
	fmt.Println("Finished reducing vehicle states, running VACUUM to recover space...")
	txStart := time.Now()
	tables := []string{}
	err := db.Raw(
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE'`,
	).Scan(&tables).Error
	if err != nil {
		return fmt.Errorf("error getting tables to vacuum: %w", err)
	}

	for _, table := range tables {
		err = db.Exec(fmt.Sprintf(`VACUUM (FULL) "%s"`, table)).Error
		if err != nil {
			return fmt.Errorf("error running VACUUM on table %s: %w", table, err)
		}
	}

	fmt.Println("Finished VACUUM in ", time.Since(txStart))
	return nil
}
