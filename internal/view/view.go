// Package view holds UI-side selection state. It lives outside the
// simulation core: selecting a camera zone only changes which vehicles are
// considered "in view", never what the simulation or detector does.
package view

import (
	"errors"
	"sync"

	"github.com/tunnelwatch/engine/internal/sim"
	"github.com/tunnelwatch/engine/pkg/core"
)

// ErrInvalidZone is returned when a zone index outside 1..core.ZoneCount is
// selected.
var ErrInvalidZone = errors.New("invalid camera zone index")

// ZoneSelector tracks which camera zone the operator is watching.
type ZoneSelector struct {
	mu       sync.RWMutex
	selected int // 1-based camera index
}

// NewZoneSelector starts with the first camera selected.
func NewZoneSelector() *ZoneSelector {
	return &ZoneSelector{selected: 1}
}

// Select switches the highlighted camera zone. Out-of-range indices are
// rejected at this boundary and leave the selection unchanged.
func (z *ZoneSelector) Select(index int) error {
	if index < 1 || index > core.ZoneCount {
		return ErrInvalidZone
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	z.selected = index
	return nil
}

// Selected returns the 1-based index of the highlighted camera zone.
func (z *ZoneSelector) Selected() int {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.selected
}

// Zone returns the highlighted camera zone.
func (z *ZoneSelector) Zone() core.CameraZone {
	zone, _ := core.ZoneByIndex(z.Selected())
	return zone
}

// VehiclesInView filters a snapshot down to the vehicles inside the selected
// zone's [lo, hi) band. The snapshot is read-only; the result is a new slice.
func (z *ZoneSelector) VehiclesInView(snap *sim.Snapshot) []core.Vehicle {
	zone := z.Zone()
	var in []core.Vehicle
	for _, v := range snap.Vehicles {
		if v.Position >= zone.Lo && v.Position < zone.Hi {
			in = append(in, v)
		}
	}
	return in
}
