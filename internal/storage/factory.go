// internal/storage/factory.go
package storage

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tunnelwatch/engine/internal/config"
	"github.com/tunnelwatch/engine/internal/geo"
	"github.com/tunnelwatch/engine/internal/model"
	gormstorage "github.com/tunnelwatch/engine/internal/storage/gorm"
	"github.com/tunnelwatch/engine/internal/storage/memory"
	"github.com/tunnelwatch/engine/internal/storage/postgres"
	sqlitestorage "github.com/tunnelwatch/engine/internal/storage/sqlite"
)

// Dependencies carries the shared wiring the database-backed backends need.
// The memory backend ignores it.
type Dependencies struct {
	Logger zerolog.Logger
	Axis   geo.Axis
	Tunnel model.Tunnel
}

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	gormDeps := gormstorage.Dependencies{
		Logger: deps.Logger,
		Axis:   deps.Axis,
		Tunnel: deps.Tunnel,
	}

	switch cfg.Backend {
	case "postgres":
		return postgres.New(gormDeps)
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: time.Duration(cfg.DumpIntervalSec) * time.Second,
			DumpPath:     cfg.SqlitePath,
		}, gormDeps)
	case "memory":
		return memory.New(cfg), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// Compile-time interface checks for all backends.
var (
	_ Backend    = (*memory.Backend)(nil)
	_ Exportable = (*memory.Backend)(nil)
	_ Backend    = (*gormstorage.Backend)(nil)
	_ Backend    = (*sqlitestorage.Backend)(nil)
	_ Backend    = (*postgres.Backend)(nil)
)
