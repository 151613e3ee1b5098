// Package postgres implements the storage.Backend interface on PostgreSQL/PostGIS.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/squidsoft/flightmarkers/internal/database"
	"github.com/squidsoft/flightmarkers/internal/storage/gormstore"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the postgres storage backend.
type Dependencies struct {
	// DB is optional; when nil Init connects using the db.* settings.
	DB               *gorm.DB
	Logger           *slog.Logger
	ExtensionVersion string
}

// Backend wraps the GORM backend with connection setup and PostGIS migration.
type Backend struct {
	*gormstore.Backend
	deps Dependencies
}

// New creates a new postgres storage backend. No connection is made until Init.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{deps: deps}
}

// Init connects, migrates the schema and starts the writer.
func (b *Backend) Init() error {
	db := b.deps.DB
	if db == nil {
		var err error
		if db, err = database.OpenPostgres(); err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	if err := database.Migrate(db, b.deps.Logger, b.deps.ExtensionVersion); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.Backend = gormstore.New(gormstore.Dependencies{DB: db, Logger: b.deps.Logger})
	return b.Backend.Init()
}

// Close flushes and stops the writer. It is safe to call before Init.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}
