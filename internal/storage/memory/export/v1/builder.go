package v1

import (
	"sort"
	"time"

	"github.com/tunnelwatch/engine/pkg/core"
)

// RunData contains all the data needed to build an archive
type RunData struct {
	Run           *core.Run
	TickIncrement float64
	Tag           string
	Vehicles      map[uint64]*VehicleRecord
	Alerts        []core.AlertEvent
	Samples       []core.TickSample
}

// VehicleRecord groups a vehicle with its time-series states
type VehicleRecord struct {
	Spawn  core.SpawnEvent
	States []core.VehicleState
}

// Build creates an Export from the run data
func Build(data *RunData) Export {
	export := Export{
		EngineVersion: core.EngineVersion,
		RunName:       data.Run.Name,
		TunnelName:    data.Run.TunnelName,
		StartTime:     data.Run.StartTime.UTC().Format(time.RFC3339),
		TickIncrement: data.TickIncrement,
		Tag:           data.Tag,
		Vehicles:      make([]VehicleTrack, 0, len(data.Vehicles)),
		Alerts:        make([][]any, 0, len(data.Alerts)),
		Environment:   make([][]any, 0, len(data.Samples)),
	}

	var maxTick uint64

	// Convert vehicles, ordered by ID so the archive is deterministic
	ids := make([]uint64, 0, len(data.Vehicles))
	for id := range data.Vehicles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		record := data.Vehicles[id]
		track := VehicleTrack{
			ID:         record.Spawn.Vehicle.ID,
			Kind:       string(record.Spawn.Vehicle.Type),
			Color:      record.Spawn.Vehicle.Color,
			Lane:       record.Spawn.Vehicle.Lane,
			EntryTick:  record.Spawn.Tick,
			EntrySpeed: record.Spawn.Vehicle.Speed,
			Positions:  make([][]any, 0, len(record.States)),
		}

		for _, state := range record.States {
			pos := []any{
				state.Tick,
				state.Position,
				state.Speed,
				state.Temperature,
				boolToInt(state.Detected),
				boolToInt(state.Slowed),
			}
			track.Positions = append(track.Positions, pos)
			if state.Tick > maxTick {
				maxTick = state.Tick
			}
		}

		export.Vehicles = append(export.Vehicles, track)
	}

	// Convert alerts
	// Format: [tick, severity, message, zone, vehicleId]
	for _, evt := range data.Alerts {
		export.Alerts = append(export.Alerts, []any{
			evt.Tick,
			string(evt.Alert.Severity),
			evt.Alert.Message,
			evt.Alert.Zone,
			evt.Alert.VehicleID,
		})
		if evt.Tick > maxTick {
			maxTick = evt.Tick
		}
	}

	// Convert environment samples
	// Format: [tick, elapsed, vehicleCount, airQuality, temperature, visibility, ventilation]
	for _, s := range data.Samples {
		export.Environment = append(export.Environment, []any{
			s.Tick,
			s.Elapsed,
			s.VehicleCount,
			s.Environment.AirQuality,
			s.Environment.Temperature,
			s.Environment.Visibility,
			s.Environment.Ventilation,
		})
		if s.Tick > maxTick {
			maxTick = s.Tick
		}
	}

	export.EndTick = maxTick
	return export
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
