package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// StorageConfig holds recording backend settings. Backend selects the
// implementation: memory, sqlite, or postgres.
type StorageConfig struct {
	Backend         string `json:"backend" mapstructure:"backend"`
	OutputDir       string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput  bool   `json:"compressOutput" mapstructure:"compressOutput"`
	SqlitePath      string `json:"sqlitePath" mapstructure:"sqlitePath"`
	DumpIntervalSec int    `json:"dumpIntervalSec" mapstructure:"dumpIntervalSec"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. A missing file is
// not an error; defaults apply.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./tunnelsimlogs")
	viper.SetDefault("tunnel.name", "Main Tunnel")

	viper.SetDefault("sim.tickIntervalMs", 100)
	viper.SetDefault("sim.tickIncrement", 0.1)
	viper.SetDefault("sim.spawnIntervalMinMs", 2000)
	viper.SetDefault("sim.spawnIntervalMaxMs", 4000)
	viper.SetDefault("sim.alertLogCapacity", 5)

	viper.SetDefault("storage.backend", "memory")
	viper.SetDefault("storage.outputDir", "./runs")
	viper.SetDefault("storage.compressOutput", true)
	viper.SetDefault("storage.sqlitePath", "./runs/tunnelsim.db")
	viper.SetDefault("storage.dumpIntervalSec", 60)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "tunnelsim")
	viper.SetDefault("db.timescale", false)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "tunnelsim-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", false)

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.intervalSec", 1)

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.url", "http://localhost:5000")
	viper.SetDefault("api.key", "")

	// Tunnel entrance portal, WGS84 lon/lat. Alerts are georeferenced by
	// interpolating along the tunnel axis from here.
	viper.SetDefault("geo.portalLon", 10.2045)
	viper.SetDefault("geo.portalLat", 47.4861)
	viper.SetDefault("geo.headingDeg", 90.0)
	viper.SetDefault("geo.lengthM", 1800.0)

	viper.SetConfigName("tunnelsim.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %v", err)
		}
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat64 returns a float64 config value.
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// TickInterval returns the wall-clock period between simulation ticks.
func TickInterval() time.Duration {
	return time.Duration(viper.GetInt("sim.tickIntervalMs")) * time.Millisecond
}

// SpawnIntervalMin returns the lower bound of the randomized spawn gate.
func SpawnIntervalMin() time.Duration {
	return time.Duration(viper.GetInt("sim.spawnIntervalMinMs")) * time.Millisecond
}

// SpawnIntervalMax returns the upper bound of the randomized spawn gate.
func SpawnIntervalMax() time.Duration {
	return time.Duration(viper.GetInt("sim.spawnIntervalMaxMs")) * time.Millisecond
}

// Storage returns the decoded storage section.
func Storage() StorageConfig {
	var sc StorageConfig
	if err := viper.UnmarshalKey("storage", &sc); err != nil {
		return StorageConfig{Backend: "memory", OutputDir: "./runs", CompressOutput: true}
	}
	return sc
}
