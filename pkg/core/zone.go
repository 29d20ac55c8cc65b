// pkg/core/zone.go
package core

// CameraZone is one fixed quartile of tunnel length covered by a single
// monitoring camera. Zones partition [0,100) into equal bands.
type CameraZone struct {
	ID string
	Lo float64 // inclusive
	Hi float64 // exclusive
}

// ZoneCount is the number of camera zones covering the tunnel.
const ZoneCount = 4

var zones = [ZoneCount]CameraZone{
	{ID: "CAM-1", Lo: 0, Hi: 25},
	{ID: "CAM-2", Lo: 25, Hi: 50},
	{ID: "CAM-3", Lo: 50, Hi: 75},
	{ID: "CAM-4", Lo: 75, Hi: 100},
}

// Zones returns the static camera zone partition in tunnel order.
func Zones() []CameraZone {
	return zones[:]
}

// ZoneForPosition returns the camera zone covering a tunnel position.
// Positions outside [0,100) report ok=false.
func ZoneForPosition(position float64) (CameraZone, bool) {
	if position < 0 || position >= 100 {
		return CameraZone{}, false
	}
	idx := int(position / 25)
	return zones[idx], true
}

// ZoneByIndex returns the zone for a 1-based camera index.
func ZoneByIndex(index int) (CameraZone, bool) {
	if index < 1 || index > ZoneCount {
		return CameraZone{}, false
	}
	return zones[index-1], true
}
