package sim

import (
	"math/rand"
	"time"
)

// Rand is the source of randomness for every stochastic draw the simulation
// makes. *math/rand.Rand satisfies it; tests substitute seeded or scripted
// sources so runs are reproducible.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewTimeSeededRand returns the production randomness source.
func NewTimeSeededRand() Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
