package sim

import (
	"github.com/tunnelwatch/engine/pkg/core"
)

// GeneratorConfig holds the spawn parameter ranges. Speeds are in
// percent-of-tunnel-length per tick.
type GeneratorConfig struct {
	CarSpeedMin   float64
	CarSpeedMax   float64
	TruckSpeedMin float64
	TruckSpeedMax float64
	// Emergency vehicles never come out of the weighted table; the range is
	// used only for operator-triggered spawns.
	EmergencySpeedMin float64
	EmergencySpeedMax float64
	TemperatureMin    float64
	TemperatureMax    float64
}

// DefaultGeneratorConfig returns the standard spawn ranges.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		CarSpeedMin:       0.5,
		CarSpeedMax:       0.8,
		TruckSpeedMin:     0.3,
		TruckSpeedMax:     0.5,
		EmergencySpeedMin: 0.8,
		EmergencySpeedMax: 1.0,
		TemperatureMin:    20,
		TemperatureMax:    35,
	}
}

// typeTable weights spawn selection by repeated entries: four car slots to
// one truck slot. Emergency is intentionally absent.
var typeTable = [...]core.VehicleType{
	core.VehicleTypeCar,
	core.VehicleTypeCar,
	core.VehicleTypeCar,
	core.VehicleTypeCar,
	core.VehicleTypeTruck,
}

var colorTable = [...]string{
	"#e63946", "#f1faee", "#a8dadc", "#457b9d", "#1d3557", "#ffb703",
}

// Generator produces new vehicle entities with randomized type, lane, speed,
// color, and temperature. IDs are assigned from a monotonically increasing
// counter and are stable for a vehicle's lifetime.
type Generator struct {
	cfg    GeneratorConfig
	rng    Rand
	nextID uint64
}

// NewGenerator creates a generator drawing from rng.
func NewGenerator(cfg GeneratorConfig, rng Rand) *Generator {
	return &Generator{cfg: cfg, rng: rng}
}

// Spawn produces a new vehicle at the tunnel entrance with a weighted random
// type.
func (g *Generator) Spawn() core.Vehicle {
	return g.SpawnOfType(typeTable[g.rng.Intn(len(typeTable))])
}

// SpawnOfType produces a new vehicle of an explicit type. Used by operator
// triggered spawns (emergency dispatch) in addition to Spawn.
func (g *Generator) SpawnOfType(t core.VehicleType) core.Vehicle {
	g.nextID++

	var speed float64
	switch t {
	case core.VehicleTypeTruck:
		speed = g.uniform(g.cfg.TruckSpeedMin, g.cfg.TruckSpeedMax)
	case core.VehicleTypeEmergency:
		speed = g.uniform(g.cfg.EmergencySpeedMin, g.cfg.EmergencySpeedMax)
	default:
		speed = g.uniform(g.cfg.CarSpeedMin, g.cfg.CarSpeedMax)
	}

	return core.Vehicle{
		ID:          g.nextID,
		Lane:        g.rng.Intn(3),
		Position:    0,
		Speed:       speed,
		Type:        t,
		Color:       colorTable[g.rng.Intn(len(colorTable))],
		Temperature: g.uniform(g.cfg.TemperatureMin, g.cfg.TemperatureMax),
	}
}

// Reset restarts the ID counter for a fresh run.
func (g *Generator) Reset() {
	g.nextID = 0
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}
