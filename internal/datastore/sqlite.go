package datastore

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/securitas/internal/conf"
	"github.com/tphakala/securitas/internal/errors"
	"github.com/tphakala/securitas/internal/logger"
)

// sqlitePragmas enables WAL and foreign keys and waits on a busy database
// instead of failing immediately.
const sqlitePragmas = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

func openSQLite(settings *conf.DatabaseSettings, log logger.Logger) (*gorm.DB, error) {
	path := settings.SQLite.Path
	if path == "" {
		return nil, errors.New(errors.NewStd("sqlite path is empty")).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.New(err).
					Component("datastore").
					Category(errors.CategoryConfiguration).
					Context("path", path).
					Build()
			}
		}
		path += sqlitePragmas
	}

	db, err := gorm.Open(sqlite.Open(path), gormConfig(settings, log))
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "open_sqlite").
			Context("path", settings.SQLite.Path).
			Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY storms
	// and keeps :memory: databases coherent.
	sqlDB.SetMaxOpenConns(1)

	log.Info("opened sqlite database", logger.String("path", settings.SQLite.Path))
	return db, nil
}
