package app

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/securitas/internal/conf"
	"github.com/tphakala/securitas/internal/datastore"
	"github.com/tphakala/securitas/internal/datastore/entities"
	"github.com/tphakala/securitas/internal/detection"
	"github.com/tphakala/securitas/internal/logger"
)

func testSettings() *conf.Settings {
	return &conf.Settings{
		Main: conf.MainSettings{Name: "securitas-test"},
		Database: conf.DatabaseSettings{
			Type:        conf.DatabaseSQLite,
			SQLite:      conf.SQLiteSettings{Path: ":memory:"},
			AutoMigrate: true,
		},
		Directory: conf.DirectorySettings{CacheTTL: time.Minute},
	}
}

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelDebug, time.UTC)
}

func TestWire_NotificationsDisabled(t *testing.T) {
	t.Parallel()
	settings := testSettings()
	store, err := datastore.Open(settings)
	require.NoError(t, err)

	a, err := Wire(settings, store, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Nil(t, a.Dispatcher)
	require.NotNil(t, a.Detections)
	require.NotNil(t, a.Statistics)

	ctx := context.Background()
	require.NoError(t, store.Monitors.Upsert(ctx, &entities.Monitor{ID: "m1", CompanyCode: "ACME", Name: "Gate"}))
	require.NoError(t, store.Engines.Upsert(ctx, &entities.Engine{ID: "eng-cam", Name: "Intrusion"}))

	det, err := a.Detections.Ingest(ctx, &detection.IngestRequest{MonitorID: "m1", Engine: "eng-cam"})
	require.NoError(t, err)
	assert.Equal(t, entities.ApprovalYes, det.Approved)

	// The second lookup of the engine is served from the directory cache.
	_, err = a.Detections.Ingest(ctx, &detection.IngestRequest{MonitorID: "m1", Engine: "eng-cam"})
	require.NoError(t, err)
	assert.Positive(t, a.CacheStats().Hits)

	// A policy change applies to the next ingestion despite the cache.
	policy := `["eng-cam"]`
	require.NoError(t, store.Monitors.Upsert(ctx, &entities.Monitor{
		ID: "m1", CompanyCode: "ACME", Name: "Gate", EnginesRequireApproval: &policy,
	}))
	held, err := a.Detections.Ingest(ctx, &detection.IngestRequest{MonitorID: "m1", Engine: "eng-cam"})
	require.NoError(t, err)
	assert.Equal(t, entities.ApprovalNo, held.Approved)
}

func TestWire_NotificationsEnabled(t *testing.T) {
	t.Parallel()
	settings := testSettings()
	settings.Notification = conf.NotificationSettings{
		Enabled:   true,
		Transport: conf.TransportShoutrrr,
		Shoutrrr:  conf.ShoutrrrSettings{URLTemplate: "logger://" + conf.ChannelPlaceholder},
	}
	store, err := datastore.Open(settings)
	require.NoError(t, err)

	a, err := Wire(settings, store, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NotNil(t, a.Dispatcher)
	assert.Equal(t, conf.TransportShoutrrr, a.Dispatcher.Transport())
}

func TestWire_InvalidTransport(t *testing.T) {
	t.Parallel()
	settings := testSettings()
	settings.Notification = conf.NotificationSettings{Enabled: true, Transport: conf.TransportTelegram}
	store, err := datastore.Open(settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = Wire(settings, store, testLogger())
	require.Error(t, err, "telegram without a token must fail")
}
