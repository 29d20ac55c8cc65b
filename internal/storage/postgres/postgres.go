// Package postgres implements the recording backend on PostgreSQL. All the
// queueing and write logic lives in the embedded GORM backend; this package
// only owns the connection.
package postgres

import (
	"fmt"

	"github.com/tunnelwatch/engine/internal/database"
	gormstorage "github.com/tunnelwatch/engine/internal/storage/gorm"
)

// Backend wraps the GORM backend with a Postgres connection.
type Backend struct {
	*gormstorage.Backend
}

// New creates a new Postgres storage backend. If no DB was injected via
// Dependencies, it opens its own connection from config.
func New(deps gormstorage.Dependencies) (*Backend, error) {
	if deps.DB == nil {
		db, err := database.GetPostgresDB()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return nil, fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		deps.DB = db
	}

	return &Backend{
		Backend: gormstorage.New(deps),
	}, nil
}
