package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"github.com/squidsoft/flightmarkers/internal/config"
	"github.com/squidsoft/flightmarkers/internal/storage/memory"
	"github.com/squidsoft/flightmarkers/internal/storage/postgres"
	sqlitestorage "github.com/squidsoft/flightmarkers/internal/storage/sqlite"
	"github.com/squidsoft/flightmarkers/internal/storage/websocket"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, log *slog.Logger, extensionVersion string) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(cfg.Memory), nil
	case "postgres":
		return postgres.New(postgres.Dependencies{Logger: log, ExtensionVersion: extensionVersion}), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     filepath.Join(cfg.Memory.OutputDir, fmt.Sprintf("flightmarkers_%s.db", time.Now().Format("20060102_150405"))),
		}, log, extensionVersion)
	case "websocket":
		return websocket.New(websocket.Config{
			URL:    viper.GetString("api.serverUrl"),
			Secret: viper.GetString("api.apiKey"),
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
