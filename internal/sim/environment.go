package sim

import (
	"github.com/tunnelwatch/engine/pkg/core"
)

// Signal is one bounded random-walk environmental quantity. Each tick it
// moves by uniform(-delta, delta)/2 and is clamped to [Lo, Hi]. No history is
// kept beyond the current value.
type Signal struct {
	Value   float64
	Initial float64
	Delta   float64
	Lo      float64
	Hi      float64
}

// Tick perturbs the signal by one step of the random walk.
func (s *Signal) Tick(rng Rand) {
	step := (rng.Float64()*2 - 1) * s.Delta / 2
	s.Value = clamp(s.Value+step, s.Lo, s.Hi)
}

// Reset restores the signal to its initial value.
func (s *Signal) Reset() {
	s.Value = s.Initial
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// defaultVentilation is the static ventilation display value. It is not part
// of the dynamic signal set and is never read by the detector.
const defaultVentilation = 60

// Environment holds the three synthetic environmental signals for the
// monitored tunnel.
type Environment struct {
	AirQuality  Signal
	Temperature Signal
	Visibility  Signal
	Ventilation float64
}

// NewEnvironment returns an environment at its default readings.
func NewEnvironment() *Environment {
	return &Environment{
		AirQuality:  Signal{Value: 85, Initial: 85, Delta: 2, Lo: 70, Hi: 100},
		Temperature: Signal{Value: 22, Initial: 22, Delta: 0.5, Lo: 18, Hi: 28},
		Visibility:  Signal{Value: 95, Initial: 95, Delta: 1, Lo: 80, Hi: 100},
		Ventilation: defaultVentilation,
	}
}

// Tick advances all three random walks by one step.
func (e *Environment) Tick(rng Rand) {
	e.AirQuality.Tick(rng)
	e.Temperature.Tick(rng)
	e.Visibility.Tick(rng)
}

// Reset restores every signal to its default value.
func (e *Environment) Reset() {
	e.AirQuality.Reset()
	e.Temperature.Reset()
	e.Visibility.Reset()
	e.Ventilation = defaultVentilation
}

// Reading returns the current values as a snapshot-friendly value type.
func (e *Environment) Reading() core.EnvironmentReading {
	return core.EnvironmentReading{
		AirQuality:  e.AirQuality.Value,
		Temperature: e.Temperature.Value,
		Visibility:  e.Visibility.Value,
		Ventilation: e.Ventilation,
	}
}
