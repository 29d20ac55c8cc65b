// Package v1 contains the v1 archive format for recorded runs.
// The layout is what the replay frontend expects.
package v1

// Export is the root JSON structure for the v1 archive
type Export struct {
	EngineVersion string         `json:"engineVersion"`
	RunName       string         `json:"runName"`
	TunnelName    string         `json:"tunnelName"`
	StartTime     string         `json:"startTime"`
	EndTick       uint64         `json:"endTick"`
	TickIncrement float64        `json:"tickIncrement"`
	Tag           string         `json:"tag"`
	Vehicles      []VehicleTrack `json:"vehicles"`
	Alerts        [][]any        `json:"alerts"`
	Environment   [][]any        `json:"environment"`
}

// VehicleTrack is one vehicle with its per-tick track.
// Positions entries are [tick, position, speed, temperature, detected, slowed]
// with detected and slowed encoded as 0/1.
type VehicleTrack struct {
	ID         uint64  `json:"id"`
	Kind       string  `json:"kind"`
	Color      string  `json:"color"`
	Lane       int     `json:"lane"`
	EntryTick  uint64  `json:"entryTick"`
	EntrySpeed float64 `json:"entrySpeed"`
	Positions  [][]any `json:"positions"`
}
