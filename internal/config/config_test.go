package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"logLevel": "debug",
		"tunnel": { "name": "Harbor Crossing" },
		"sim": { "tickIntervalMs": 50, "spawnIntervalMinMs": 1000 },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tunnelsim.cfg.json"), []byte(cfg), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "Harbor Crossing", viper.GetString("tunnel.name"))
	assert.Equal(t, 50*time.Millisecond, TickInterval())
	assert.Equal(t, time.Second, SpawnIntervalMin())
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tunnelsim.cfg.json"), []byte(`{}`), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./tunnelsimlogs", viper.GetString("logsDir"))
	assert.Equal(t, "Main Tunnel", viper.GetString("tunnel.name"))
	assert.Equal(t, 100*time.Millisecond, TickInterval())
	assert.Equal(t, 0.1, viper.GetFloat64("sim.tickIncrement"))
	assert.Equal(t, 2000*time.Millisecond, SpawnIntervalMin())
	assert.Equal(t, 4000*time.Millisecond, SpawnIntervalMax())
	assert.Equal(t, 5, viper.GetInt("sim.alertLogCapacity"))
	assert.Equal(t, "memory", viper.GetString("storage.backend"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "5432", viper.GetString("db.port"))
	assert.Equal(t, "tunnelsim", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, "tunnelsim-metrics", viper.GetString("influx.org"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, true, viper.GetBool("monitor.enabled"))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "memory", viper.GetString("storage.backend"))
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetFloat64(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testFloat", 0.3)
	assert.Equal(t, 0.3, GetFloat64("testFloat"))
}

func TestStorage_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tunnelsim.cfg.json"), []byte(`{}`), 0644))
	require.NoError(t, Load(dir))

	sc := Storage()
	assert.Equal(t, "memory", sc.Backend)
	assert.Equal(t, "./runs", sc.OutputDir)
	assert.Equal(t, true, sc.CompressOutput)
	assert.Equal(t, "./runs/tunnelsim.db", sc.SqlitePath)
	assert.Equal(t, 60, sc.DumpIntervalSec)
}

func TestStorage_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"storage": {
			"backend": "sqlite",
			"outputDir": "/tmp/out",
			"compressOutput": false
		}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tunnelsim.cfg.json"), []byte(cfg), 0644))
	require.NoError(t, Load(dir))

	sc := Storage()
	assert.Equal(t, "sqlite", sc.Backend)
	assert.Equal(t, "/tmp/out", sc.OutputDir)
	assert.Equal(t, false, sc.CompressOutput)
	assert.Equal(t, "sqlite", GetString("storage.backend"))
}
