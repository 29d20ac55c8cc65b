package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/tunnelwatch/engine/pkg/core"
)

// DetectorConfig holds the anomaly rule thresholds.
type DetectorConfig struct {
	// StallSpeed is the speed below which a vehicle counts as slow/stopped.
	StallSpeed float64
	// HeatTemperature is the temperature above which a vehicle counts as a
	// hot spot.
	HeatTemperature float64
}

// DefaultDetectorConfig returns the standard rule thresholds.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		StallSpeed:      0.2,
		HeatTemperature: 30,
	}
}

// Detector scans the live vehicle set for anomalies and appends alerts to
// the operator log.
//
// Each vehicle carries one shared Detected flag gating both rules, so a
// vehicle detected by the stall rule can never later trigger the heat rule
// and vice versa. That is a faithful reproduction of the original monitoring
// console's behavior; per-rule flags would be the obvious "fix" but would
// change the alert stream.
type Detector struct {
	cfg         DetectorConfig
	alerts      *AlertLog
	nextAlertID uint64
}

// NewDetector creates a detector appending to alerts.
func NewDetector(cfg DetectorConfig, alerts *AlertLog) *Detector {
	return &Detector{cfg: cfg, alerts: alerts}
}

// Scan evaluates every not-yet-detected vehicle against the stall rule and
// then the heat rule, raising at most one alert per vehicle per scan. It
// mutates the Detected flag in place on the passed slice and returns the
// alerts raised this tick, oldest first.
func (d *Detector) Scan(vehicles []core.Vehicle, now time.Time) []core.Alert {
	var raised []core.Alert
	for i := range vehicles {
		v := &vehicles[i]
		if v.Detected {
			continue
		}

		switch {
		case v.Speed < d.cfg.StallSpeed:
			raised = append(raised, d.raise(v, now, core.SeverityWarning,
				fmt.Sprintf("Slow/stopped %s detected in Lane %d at %d%%",
					v.Type, v.Lane+1, int(math.Round(v.Position)))))
		case v.Temperature > d.cfg.HeatTemperature:
			raised = append(raised, d.raise(v, now, core.SeverityCritical,
				fmt.Sprintf("Hot spot detected: %s showing %d°C in Lane %d",
					v.Type, int(math.Round(v.Temperature)), v.Lane+1)))
		}
	}
	return raised
}

// Reset restarts the alert ID counter for a fresh run.
func (d *Detector) Reset() {
	d.nextAlertID = 0
}

func (d *Detector) raise(v *core.Vehicle, now time.Time, sev core.Severity, msg string) core.Alert {
	v.Detected = true
	d.nextAlertID++

	var zoneID string
	if zone, ok := core.ZoneForPosition(v.Position); ok {
		zoneID = zone.ID
	}

	a := core.Alert{
		ID:        d.nextAlertID,
		Time:      now,
		Severity:  sev,
		Message:   msg,
		Zone:      zoneID,
		VehicleID: v.ID,
	}
	d.alerts.Append(a)
	return a
}
