package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&SimInfo{},
	&Tunnel{},
	&Run{},
	&Vehicle{},
	&VehicleState{},
	&Alert{},
	&EnvironmentSample{},
	&RunPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// SimInfo contains operator information about the instance
type SimInfo struct {
	gorm.Model
	OperatorName string `json:"operatorName" gorm:"size:127"` // primary key
	Description  string `json:"description" gorm:"size:255"`
	Website      string `json:"websiteURL" gorm:"size:255"`
}

func (*SimInfo) TableName() string {
	return "sim_infos"
}

// RunPerformance is the model for recorder performance metrics
type RunPerformance struct {
	Time                time.Time         `json:"time" gorm:"type:timestamptz;index:idx_time"`
	RunID               uint              `json:"runId" gorm:"index:idx_runperformance_run_id"`
	Run                 Run               `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	WriteQueueLengths   WriteQueueLengths `json:"writeQueueLengths" gorm:"embedded;embeddedPrefix:writequeue_"`
	LastWriteDurationMs float32           `json:"lastWriteDurationMs"`
}

func (*RunPerformance) TableName() string {
	return "run_performances"
}

// WriteQueueLengths is the model for the write queue lengths
type WriteQueueLengths struct {
	Vehicles      uint16 `json:"vehicles"`
	VehicleStates uint16 `json:"vehicleStates"`
	Alerts        uint16 `json:"alerts"`
	Samples       uint16 `json:"samples"`
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Tunnel is the main model for a monitored tunnel tube
type Tunnel struct {
	gorm.Model
	Name       string     `json:"name" gorm:"size:127"`
	LengthM    float32    `json:"lengthM"`
	Lanes      uint8      `json:"lanes" gorm:"default:3"`
	HeadingDeg float32    `json:"headingDeg"`
	Latitude   float32    `json:"latitude" gorm:"-"`
	Longitude  float32    `json:"longitude" gorm:"-"`
	Portal     geom.Point `json:"portal"` // entrance portal, EPSG:3857
	Runs       []Run
}

func (*Tunnel) TableName() string {
	return "tunnels"
}

func (t *Tunnel) GetOrInsert(db *gorm.DB) (
	created bool,
	err error,
) {
	var existing Tunnel
	err = db.Where("name = ?", t.Name).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// insert
			err = db.Create(t).Error
			return true, err
		}
		return false, err
	}
	// overwrite with db record if found
	*t = existing
	return false, nil
}

// Run is the main model for one simulation session, from start (or reset) to
// the next reset or shutdown
type Run struct {
	gorm.Model
	Name             string    `json:"name" gorm:"size:200"`
	StartTime        time.Time `json:"startTime" gorm:"type:timestamptz;index:idx_run_start"`
	TunnelID         uint
	Tunnel           Tunnel  `gorm:"foreignkey:TunnelID"`
	TickIncrement    float32 `json:"tickIncrement" gorm:"default:0.1"`
	SpawnIntervalMin float32 `json:"spawnIntervalMinMs" gorm:"default:2000"`
	SpawnIntervalMax float32 `json:"spawnIntervalMaxMs" gorm:"default:4000"`
	EngineVersion    string  `json:"engineVersion" gorm:"size:64;default:1.0.0"`
	Tag              string  `json:"tag" gorm:"size:127"`

	Alerts             []Alert
	EnvironmentSamples []EnvironmentSample
}

func (*Run) TableName() string {
	return "runs"
}

// Vehicle is one simulated vehicle within a run.
// Uses composite primary key (RunID, ObjectID) - ObjectID is the
// engine-assigned sequential ID.
type Vehicle struct {
	RunID      uint           `json:"runId" gorm:"primaryKey;autoIncrement:false"`
	ObjectID   uint64         `json:"objectId" gorm:"primaryKey;autoIncrement:false"` // engine-assigned sequential ID
	Run        Run            `gorm:"foreignkey:RunID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `json:"deletedAt" gorm:"index"`
	EntryTime  time.Time      `json:"entryTime" gorm:"type:timestamptz;NOT NULL;index:idx_vehicle_entry_time"` // Wall time when vehicle entered the tunnel
	EntryTick  uint           `json:"entryTick"`                                                               // Tick number when vehicle entered
	Kind       string         `json:"kind" gorm:"size:16;default:car"`                                         // car, truck, emergency
	Color      string         `json:"color" gorm:"size:16"`                                                    // display color, hex
	Lane       uint8          `json:"lane"`                                                                    // 0-indexed lane
	EntrySpeed float32        `json:"entrySpeed"`                                                              // speed drawn at spawn, percent per tick
}

func (*Vehicle) TableName() string {
	return "vehicles"
}

func (v *Vehicle) Get(db *gorm.DB) (err error) {
	err = db.Where(&v).Order(
		"entry_time DESC",
	).First(&v).Error
	return err
}

// VehicleState tracks vehicle state at a tick.
// References Vehicle by (RunID, VehicleObjectID) composite FK.
type VehicleState struct {
	ID              uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time            time.Time `json:"time" gorm:"type:timestamptz;"`
	RunID           uint      `json:"runId" gorm:"index:idx_vehiclestate_run_id"`
	Run             Run       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Tick            uint      `json:"tick" gorm:"index:idx_vehiclestate_tick"` // Tick number in the run timeline
	VehicleObjectID uint64    `json:"vehicleObjectId" gorm:"index:idx_vehiclestate_vehicle_object_id"`
	Vehicle         Vehicle   `gorm:"foreignkey:RunID,VehicleObjectID;references:RunID,ObjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	PositionPct  float32    `json:"positionPct"`  // Position along the tunnel axis, percent [0,100)
	Location     geom.Point `json:"location"`     // Projected location, EPSG:3857
	Speed        float32    `json:"speed"`        // Percent of tunnel length per tick
	TemperatureC float32    `json:"temperatureC"` // Engine temperature, Celsius
	Detected     bool       `json:"detected"`     // Whether an anomaly rule has fired for this vehicle
	Slowed       bool       `json:"slowed"`       // Whether the random slowdown has hit
}

func (*VehicleState) TableName() string {
	return "vehicle_states"
}

// Alert is a persisted anomaly alert.
// References Vehicle by (RunID, VehicleObjectID) composite FK.
type Alert struct {
	ID              uint          `json:"id" gorm:"primarykey;autoIncrement;"`
	Time            time.Time     `json:"time" gorm:"type:timestamptz;"`
	RunID           uint          `json:"runId" gorm:"index:idx_alert_run_id"`
	Run             Run           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Tick            uint          `json:"tick" gorm:"index:idx_alert_tick"` // Tick number when raised
	VehicleObjectID sql.NullInt64 `json:"vehicleObjectId" gorm:"index:idx_alert_vehicle_object_id;default:NULL"`

	Severity string         `json:"severity" gorm:"size:16;index:idx_alert_severity"` // warning or critical
	Message  string         `json:"message" gorm:"size:256"`
	Zone     string         `json:"zone" gorm:"size:16"`                      // camera zone covering the alert position
	Location geom.Point     `json:"location"`                                 // Projected alert location, EPSG:3857
	Payload  datatypes.JSON `json:"payload" gorm:"type:jsonb;default:'{}'"`   // Rule inputs at fire time (speed, temperature)
}

func (*Alert) TableName() string {
	return "alerts"
}

// EnvironmentSample records the environmental signals once per tick.
type EnvironmentSample struct {
	Time         time.Time `json:"time" gorm:"type:timestamptz;"`
	RunID        uint      `json:"runId" gorm:"index:idx_environmentsample_run_id"`
	Run          Run       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Tick         uint      `json:"tick" gorm:"index:idx_environmentsample_tick"`
	Elapsed      float32   `json:"elapsed"`      // Logical simulation time
	VehicleCount uint16    `json:"vehicleCount"` // Live vehicles after the tick
	AirQuality   float32   `json:"airQuality"`   // Percent
	TemperatureC float32   `json:"temperatureC"` // Ambient tunnel temperature, Celsius
	Visibility   float32   `json:"visibility"`   // Percent
	Ventilation  float32   `json:"ventilation"`  // Percent, static display value
}

func (*EnvironmentSample) TableName() string {
	return "environment_samples"
}
