// pkg/core/alert.go
package core

import "time"

// Severity grades an alert for operator display.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is an immutable record of a detected anomaly. It is created once by
// the detector and never mutated afterwards.
type Alert struct {
	ID        uint64
	Time      time.Time
	Severity  Severity
	Message   string
	Zone      string // camera zone covering the vehicle at detection time
	VehicleID uint64
}
