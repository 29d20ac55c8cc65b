package gormstorage

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunnelwatch/engine/internal/geo"
	"github.com/tunnelwatch/engine/pkg/core"
)

// newTestBackend creates a Backend with no DB (queue-only mode for unit testing).
func newTestBackend() *Backend {
	return New(Dependencies{
		DB:     nil,
		Logger: zerolog.Nop(),
		Axis: geo.Axis{
			PortalLon:  10.2045,
			PortalLat:  47.4861,
			HeadingDeg: 90,
			LengthM:    1800,
		},
	})
}

func TestNew(t *testing.T) {
	b := newTestBackend()
	require.NotNil(t, b)
}

func TestInitClose(t *testing.T) {
	b := newTestBackend()

	err := b.Init()
	require.NoError(t, err)
	require.NotNil(t, b.queues)
	require.NotNil(t, b.stopChan)

	err = b.Close()
	require.NoError(t, err)
}

func TestStartRun_NoDB_NoError(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	run := &core.Run{Name: "Morning Shift", StartTime: time.Now()}

	err := b.StartRun(run)
	require.NoError(t, err)
	// No DB, so no ID is assigned
	assert.Equal(t, uint(0), run.ID)
}

func TestAddVehicle_QueuesToInternalQueue(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	err := b.AddVehicle(&core.SpawnEvent{
		Tick: 12,
		Time: time.Now(),
		Vehicle: core.Vehicle{
			ID:    3,
			Type:  core.VehicleTypeTruck,
			Lane:  1,
			Speed: 0.4,
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, b.queues.Vehicles.Len())

	v := b.queues.Vehicles.Pop()
	assert.Equal(t, uint64(3), v.ObjectID)
	assert.Equal(t, "truck", v.Kind)
	assert.Equal(t, uint(12), v.EntryTick)
}

func TestRecordVehicleState_QueuesAndProjects(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	err := b.RecordVehicleState(&core.VehicleState{
		Tick:        50,
		Time:        time.Now(),
		VehicleID:   3,
		Position:    62.5,
		Speed:       0.6,
		Temperature: 28,
	})
	require.NoError(t, err)
	require.Equal(t, 1, b.queues.VehicleStates.Len())

	state := b.queues.VehicleStates.Pop()
	assert.Equal(t, uint64(3), state.VehicleObjectID)
	assert.Equal(t, float32(62.5), state.PositionPct)
	assert.False(t, state.Location.IsEmpty(), "position should project onto the axis")
}

func TestRecordAlert_ZoneMidpointLocation(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	err := b.RecordAlert(&core.AlertEvent{
		Tick: 80,
		Alert: core.Alert{
			ID:        1,
			Time:      time.Now(),
			Severity:  core.SeverityCritical,
			Message:   "Hot spot detected: truck showing 33°C in Lane 2",
			Zone:      "CAM-3",
			VehicleID: 7,
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, b.queues.Alerts.Len())

	alert := b.queues.Alerts.Pop()
	assert.Equal(t, "critical", alert.Severity)
	assert.Equal(t, "CAM-3", alert.Zone)
	assert.True(t, alert.VehicleObjectID.Valid)
	assert.Equal(t, int64(7), alert.VehicleObjectID.Int64)
	assert.False(t, alert.Location.IsEmpty(), "alert should carry the zone midpoint location")
	assert.NotEmpty(t, alert.Payload)
}

func TestRecordEnvironmentSample_QueuesToInternalQueue(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	err := b.RecordEnvironmentSample(&core.TickSample{
		Tick:         100,
		Time:         time.Now(),
		Elapsed:      10,
		VehicleCount: 4,
		Environment: core.EnvironmentReading{
			AirQuality:  85,
			Temperature: 22,
			Visibility:  95,
			Ventilation: 60,
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, b.queues.Samples.Len())

	sample := b.queues.Samples.Pop()
	assert.Equal(t, uint16(4), sample.VehicleCount)
	assert.Equal(t, float32(85), sample.AirQuality)
}

func TestRecordRunPerformance_QueuesToInternalQueue(t *testing.T) {
	b := newTestBackend()
	b.Init()
	defer b.Close()

	err := b.RecordRunPerformance(&core.RunPerformance{
		Time:                time.Now(),
		QueueVehicleStates:  20,
		LastWriteDurationMs: 3.5,
	})
	require.NoError(t, err)
	require.Equal(t, 1, b.queues.Performance.Len())

	perf := b.queues.Performance.Pop()
	assert.Equal(t, uint16(20), perf.WriteQueueLengths.VehicleStates)
	assert.Equal(t, float32(3.5), perf.LastWriteDurationMs)
}
