// pkg/core/vehicle.go
package core

// VehicleType classifies a tunnel occupant.
type VehicleType string

const (
	VehicleTypeCar   VehicleType = "car"
	VehicleTypeTruck VehicleType = "truck"
	// VehicleTypeEmergency is a valid variant but is never selected by the
	// weighted spawn table; emergency vehicles enter only via operator-
	// triggered spawns.
	VehicleTypeEmergency VehicleType = "emergency"
)

// Vehicle is a simulated tunnel occupant.
// ID is unique and monotonically assigned for the lifetime of a run.
// Position is percentage progress through the tunnel in [0,100); a vehicle
// whose position would reach 100 is removed from the live set.
type Vehicle struct {
	ID          uint64
	Lane        int // 0..2, fixed at creation
	Position    float64
	Speed       float64 // percent-of-tunnel-length per tick, > 0
	Type        VehicleType
	Color       string  // cosmetic only
	Temperature float64 // fixed at creation

	// Detected latches true the first time any anomaly rule fires for this
	// vehicle. One flag is shared by all rules, so the first match suppresses
	// every later alert for the vehicle.
	Detected bool

	// Slowed latches true when the random irreversible slowdown has hit.
	Slowed bool
}
