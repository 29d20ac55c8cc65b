package handlers

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunnelwatch/engine/pkg/core"
)

func newTestService() Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParseRunStart(t *testing.T) {
	s := newTestService()

	run, err := s.ParseRunStart([]string{`"Night Run"`, `"Main Tunnel"`})
	require.NoError(t, err)
	assert.Equal(t, "Night Run", run.Name)
	assert.Equal(t, "Main Tunnel", run.TunnelName)
	assert.True(t, run.StartTime.IsZero(), "start time is stamped by the caller")
}

func TestParseRunStart_UnquotedAndEscaped(t *testing.T) {
	s := newTestService()

	run, err := s.ParseRunStart([]string{"Morning Shift", `"The ""Long"" Tunnel"`})
	require.NoError(t, err)
	assert.Equal(t, "Morning Shift", run.Name)
	assert.Equal(t, `The "Long" Tunnel`, run.TunnelName)
}

func TestParseRunStart_Errors(t *testing.T) {
	s := newTestService()

	_, err := s.ParseRunStart([]string{`"Night Run"`})
	assert.Error(t, err)

	_, err = s.ParseRunStart([]string{`""`, `"Main Tunnel"`})
	assert.ErrorContains(t, err, "run name is empty")

	_, err = s.ParseRunStart([]string{`"Night Run"`, `""`})
	assert.ErrorContains(t, err, "tunnel name is empty")
}

func TestParseSpawnVehicle(t *testing.T) {
	s := newTestService()

	for arg, want := range map[string]core.VehicleType{
		"car":         core.VehicleTypeCar,
		"truck":       core.VehicleTypeTruck,
		`"emergency"`: core.VehicleTypeEmergency,
	} {
		got, err := s.ParseSpawnVehicle([]string{arg})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestParseSpawnVehicle_Errors(t *testing.T) {
	s := newTestService()

	_, err := s.ParseSpawnVehicle([]string{"bicycle"})
	assert.ErrorContains(t, err, "unknown vehicle type")

	_, err = s.ParseSpawnVehicle(nil)
	assert.Error(t, err)
}

func TestParseZoneSelect(t *testing.T) {
	s := newTestService()

	index, err := s.ParseZoneSelect([]string{"2"})
	require.NoError(t, err)
	assert.Equal(t, 2, index)

	// Out-of-range values pass parsing; the zone selector rejects them
	index, err = s.ParseZoneSelect([]string{"42"})
	require.NoError(t, err)
	assert.Equal(t, 42, index)

	_, err = s.ParseZoneSelect([]string{"two"})
	assert.ErrorContains(t, err, "invalid camera index")

	_, err = s.ParseZoneSelect([]string{"1", "2"})
	assert.Error(t, err)
}

func TestParseTick(t *testing.T) {
	s := newTestService()

	delta, gen, err := s.ParseTick([]string{"16.5", "3"})
	require.NoError(t, err)
	assert.Equal(t, 16500*time.Microsecond, delta)
	assert.Equal(t, uint64(3), gen)
}

func TestParseTick_Errors(t *testing.T) {
	s := newTestService()

	_, _, err := s.ParseTick([]string{"100"})
	assert.Error(t, err)

	_, _, err = s.ParseTick([]string{"abc", "0"})
	assert.ErrorContains(t, err, "invalid tick delta")

	_, _, err = s.ParseTick([]string{"-1", "0"})
	assert.ErrorContains(t, err, "negative tick delta")

	_, _, err = s.ParseTick([]string{"100", "-1"})
	assert.ErrorContains(t, err, "invalid tick generation")
}

func TestRunContext(t *testing.T) {
	ctx := NewRunContext()

	_, active := ctx.Current()
	assert.False(t, active)

	ctx.Begin(core.Run{ID: 4, Name: "Night Run"})
	run, active := ctx.Current()
	require.True(t, active)
	assert.Equal(t, uint(4), run.ID)

	ctx.End()
	run, active = ctx.Current()
	assert.False(t, active)
	assert.Zero(t, run.ID)
}

func TestServiceSharesRunContext(t *testing.T) {
	s := newTestService()

	s.GetRunContext().Begin(core.Run{ID: 1})
	_, active := s.GetRunContext().Current()
	assert.True(t, active)
}
