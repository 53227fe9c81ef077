package database

import (
	"fmt"
	"os"
	"path/filepath"

	"pagesync/internal/config"
)

// NewDBFromConfig creates a DB implementation based on the database config
// type. In-memory databases are migrated on open; file databases are
// migrated on open too, since the schema is small and forward-only.
func NewDBFromConfig(cfg config.DatabaseConfig) (DB, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		db, err := NewSQLiteDB(filepath.Join(cfg.DataDir, "pagesync.db"))
		if err != nil {
			return nil, err
		}
		if err := db.MigrateUp(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		return db, nil
	case "memory":
		db, err := NewSQLiteDB(":memory:")
		if err != nil {
			return nil, err
		}
		if err := db.MigrateUp(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
