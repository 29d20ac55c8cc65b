package sim

import (
	"github.com/tunnelwatch/engine/pkg/core"
)

// MotionConfig holds the integration parameters.
type MotionConfig struct {
	// SlowdownChance is the independent per-vehicle per-tick probability of
	// an irreversible speed reduction. This is the sole mechanism that
	// creates slow/stopped anomalies.
	SlowdownChance float64
	SlowdownFactor float64
	// ExitPosition is the position at or beyond which a vehicle leaves the
	// tunnel and is dropped from the live set.
	ExitPosition float64
}

// DefaultMotionConfig returns the standard integration parameters.
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		SlowdownChance: 0.005,
		SlowdownFactor: 0.3,
		ExitPosition:   100,
	}
}

// Advance integrates one tick of motion: every vehicle moves by its speed,
// rare vehicles slow down permanently, and vehicles at or past the exit are
// dropped. The input slice is never mutated; the result is a fresh slice in
// insertion order, which keeps the published snapshot immutable.
func Advance(vehicles []core.Vehicle, cfg MotionConfig, rng Rand) []core.Vehicle {
	next := make([]core.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if rng.Float64() < cfg.SlowdownChance {
			v.Speed *= cfg.SlowdownFactor
			v.Slowed = true
		}
		v.Position += v.Speed
		if v.Position >= cfg.ExitPosition {
			continue
		}
		next = append(next, v)
	}
	return next
}
