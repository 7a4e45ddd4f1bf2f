package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// IsPostgresDSN reports whether dsn points at a PostgreSQL server.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// IsSQLiteDSN reports whether dsn points at a SQLite database.
func IsSQLiteDSN(dsn string) bool {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"), strings.HasPrefix(dsn, "file:"):
		return true
	case strings.Contains(dsn, "://"):
		return false
	}
	return strings.HasSuffix(dsn, ".db") || strings.HasSuffix(dsn, ".sqlite")
}

// Open connects to the SQL database behind dsn and migrates the schema.
// postgres:// URLs use the PostgreSQL driver; everything else is treated as SQLite.
func Open(dsn string, cfg *gorm.Config) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, errors.New("database dsn is required")
	}
	if cfg == nil {
		cfg = &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	}

	var dialector gorm.Dialector
	if IsPostgresDSN(trimmed) {
		dialector = postgres.Open(trimmed)
	} else {
		path := strings.TrimPrefix(trimmed, "sqlite://")
		if !strings.HasPrefix(path, "file:") {
			if err := ensureParentDir(path); err != nil {
				return nil, err
			}
		}
		dialector = sqlite.Open(path)
	}

	gdb, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate creates or updates the content and consultation tables.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&ContentItem{}, &LeadRequest{})
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
