// Package datastore opens the detection database and exposes its repositories.
package datastore

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/tphakala/securitas/internal/conf"
	"github.com/tphakala/securitas/internal/datastore/repository"
	"github.com/tphakala/securitas/internal/errors"
	"github.com/tphakala/securitas/internal/logger"
)

// Store bundles the database handle with the repositories built on it.
type Store struct {
	DB *gorm.DB

	Detections           repository.DetectionRepository
	Monitors             repository.MonitorRepository
	Engines              repository.EngineRepository
	Companies            repository.CompanyRepository
	NotificationSettings repository.NotificationSettingsRepository

	log logger.Logger
}

// New wraps an already opened database. It does not run migrations.
func New(db *gorm.DB, log logger.Logger) *Store {
	if log == nil {
		log = GetLogger()
	}
	return &Store{
		DB:                   db,
		Detections:           repository.NewDetectionRepository(db),
		Monitors:             repository.NewMonitorRepository(db),
		Engines:              repository.NewEngineRepository(db),
		Companies:            repository.NewCompanyRepository(db),
		NotificationSettings: repository.NewNotificationSettingsRepository(db),
		log:                  log,
	}
}

// Open connects to the database selected by settings.Database.Type and, when
// enabled, migrates the schema.
func Open(settings *conf.Settings) (*Store, error) {
	log := GetLogger()

	var (
		db  *gorm.DB
		err error
	)
	switch settings.Database.Type {
	case conf.DatabaseSQLite, "":
		db, err = openSQLite(&settings.Database, log)
	case conf.DatabaseMySQL:
		db, err = openMySQL(&settings.Database, log)
	default:
		return nil, errors.Newf("unsupported database type %q", settings.Database.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err != nil {
		return nil, err
	}

	if settings.Database.AutoMigrate {
		if err := Migrate(db); err != nil {
			closeDB(db)
			return nil, err
		}
		log.Info("database schema migrated", logger.String("type", dbType(settings)))
	}

	return New(db, log), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		s.log.Error("failed to close database", logger.Error(err))
		return err
	}
	s.log.Debug("database connection closed")
	return nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func dbType(settings *conf.Settings) string {
	if settings.Database.Type == "" {
		return conf.DatabaseSQLite
	}
	return settings.Database.Type
}

// gormConfig returns the shared GORM configuration. Duplicate key errors are
// translated so that idempotent inserts can recognize them on every backend.
func gormConfig(settings *conf.DatabaseSettings, log logger.Logger) *gorm.Config {
	gormLog := logger.NewGormLoggerAdapter(log.Module("gorm"), settings.SlowQueryThreshold).
		WithExpectedErrors(repository.IsDuplicateKeyError)
	return &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	}
}
