// Package handlers parses raw operator command arguments into typed
// requests. Commands arrive as string argument lists from the control
// surface; everything here is pure parsing and run bookkeeping, the worker
// package decides what to do with the results.
package handlers

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/tunnelwatch/engine/internal/util"
	"github.com/tunnelwatch/engine/pkg/core"
)

// RunContext tracks the active recording run. Command handlers stamp its ID
// onto everything they forward to the storage backend.
type RunContext struct {
	mu     sync.RWMutex
	run    core.Run
	active bool
}

// NewRunContext creates an empty run context with no active run.
func NewRunContext() *RunContext {
	return &RunContext{}
}

// Begin marks the given run as active.
func (c *RunContext) Begin(run core.Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run = run
	c.active = true
}

// End clears the active run.
func (c *RunContext) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run = core.Run{}
	c.active = false
}

// Current returns the active run, if any.
func (c *RunContext) Current() (core.Run, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.run, c.active
}

// Service parses operator command arguments.
type Service interface {
	ParseRunStart(args []string) (core.Run, error)
	ParseSpawnVehicle(args []string) (core.VehicleType, error)
	ParseZoneSelect(args []string) (int, error)
	ParseTick(args []string) (delta time.Duration, gen uint64, err error)
	GetRunContext() *RunContext
}

type service struct {
	runCtx *RunContext
	log    *slog.Logger
}

// NewService creates the default command parsing service.
func NewService(log *slog.Logger) Service {
	return &service{
		runCtx: NewRunContext(),
		log:    log,
	}
}

func (s *service) GetRunContext() *RunContext {
	return s.runCtx
}

// ParseRunStart parses [runName, tunnelName]. Both arrive quoted from the
// control surface. The start time is stamped by the caller, not here.
func (s *service) ParseRunStart(args []string) (core.Run, error) {
	if len(args) != 2 {
		return core.Run{}, fmt.Errorf("expected 2 arguments for run start, got %d", len(args))
	}

	name := util.FixEscapeQuotes(util.TrimQuotes(args[0]))
	tunnelName := util.FixEscapeQuotes(util.TrimQuotes(args[1]))
	if name == "" {
		return core.Run{}, fmt.Errorf("run name is empty")
	}
	if tunnelName == "" {
		return core.Run{}, fmt.Errorf("tunnel name is empty")
	}

	return core.Run{
		Name:       name,
		TunnelName: tunnelName,
	}, nil
}

// ParseSpawnVehicle parses [vehicleType].
func (s *service) ParseSpawnVehicle(args []string) (core.VehicleType, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected 1 argument for vehicle spawn, got %d", len(args))
	}

	switch t := core.VehicleType(util.TrimQuotes(args[0])); t {
	case core.VehicleTypeCar, core.VehicleTypeTruck, core.VehicleTypeEmergency:
		return t, nil
	default:
		return "", fmt.Errorf("unknown vehicle type %q", args[0])
	}
}

// ParseZoneSelect parses [cameraIndex]. Range checking is the zone
// selector's job; only the number format is validated here.
func (s *service) ParseZoneSelect(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected 1 argument for zone select, got %d", len(args))
	}

	index, err := strconv.Atoi(util.TrimQuotes(args[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid camera index %q: %w", args[0], err)
	}
	return index, nil
}

// ParseTick parses [deltaMs, generation]. The delta is the wall-clock
// milliseconds since the previous tick; the generation is the reset counter
// the scheduler observed when it queued the tick.
func (s *service) ParseTick(args []string) (time.Duration, uint64, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("expected 2 arguments for tick, got %d", len(args))
	}

	deltaMs, err := strconv.ParseFloat(util.TrimQuotes(args[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid tick delta %q: %w", args[0], err)
	}
	if deltaMs < 0 {
		return 0, 0, fmt.Errorf("negative tick delta %f", deltaMs)
	}

	gen, err := strconv.ParseUint(util.TrimQuotes(args[1]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid tick generation %q: %w", args[1], err)
	}

	return time.Duration(deltaMs * float64(time.Millisecond)), gen, nil
}
