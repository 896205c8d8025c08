package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tphakala/securitas/internal/datastore/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// Every pooled connection to :memory: is a separate database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&entities.Company{},
		&entities.Monitor{},
		&entities.Engine{},
		&entities.NotificationSetting{},
		&entities.Detection{},
	))
	return db
}

// seedDirectory creates two companies with one monitor each.
func seedDirectory(t *testing.T, db *gorm.DB) {
	t.Helper()
	ctx := context.Background()

	companies := NewCompanyRepository(db)
	require.NoError(t, companies.Upsert(ctx, &entities.Company{CompanyCode: "ACME", Name: "Acme Security"}))
	require.NoError(t, companies.Upsert(ctx, &entities.Company{CompanyCode: "GLOBEX", Name: "Globex Corp"}))

	monitors := NewMonitorRepository(db)
	require.NoError(t, monitors.Upsert(ctx, &entities.Monitor{ID: "mon-1", CompanyCode: "ACME", Name: "Front Gate"}))
	require.NoError(t, monitors.Upsert(ctx, &entities.Monitor{ID: "mon-2", CompanyCode: "GLOBEX", Name: "Loading Dock"}))
}

func newDetection(id, monitorID, engineID string, ts time.Time) *entities.Detection {
	return &entities.Detection{
		ID:             id,
		Timestamp:      ts,
		MonitorID:      monitorID,
		EngineID:       engineID,
		Status:         entities.StatusPending,
		FeedbackStatus: entities.FeedbackUnmark,
		Approved:       entities.ApprovalNo,
		Unread:         true,
	}
}
