// Package app assembles the detection pipeline from settings. Every command
// builds its collaborators here so that serve, stats and the operator
// commands share one wiring.
package app

import (
	"github.com/tphakala/securitas/internal/conf"
	"github.com/tphakala/securitas/internal/datastore"
	"github.com/tphakala/securitas/internal/detection"
	"github.com/tphakala/securitas/internal/directory"
	"github.com/tphakala/securitas/internal/logger"
	"github.com/tphakala/securitas/internal/notification"
	"github.com/tphakala/securitas/internal/observability"
	"github.com/tphakala/securitas/internal/statistics"
)

// App holds the wired pipeline.
type App struct {
	Settings   *conf.Settings
	Store      *datastore.Store
	Directory  *directory.Directory
	CacheStats func() directory.CacheStats
	Metrics    *observability.Metrics

	// Dispatcher is nil when notifications are disabled.
	Dispatcher *notification.Dispatcher
	Detections *detection.Service
	Statistics *statistics.Aggregator

	log logger.Logger
}

// New opens the store and wires every collaborator. The caller owns the
// returned App and must Close it.
func New(settings *conf.Settings) (*App, error) {
	log := logger.Global().Module("app")

	store, err := datastore.Open(settings)
	if err != nil {
		return nil, err
	}
	a, err := Wire(settings, store, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

// Wire builds the pipeline on an open store.
func Wire(settings *conf.Settings, store *datastore.Store, log logger.Logger) (*App, error) {
	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}

	dir, cacheStats := directory.Cached(directory.FromStore(store), settings.Directory.CacheTTL)

	a := &App{
		Settings:   settings,
		Store:      store,
		Directory:  dir,
		CacheStats: cacheStats,
		Metrics:    m,
		log:        log,
	}

	cfg := detection.Config{
		Detections:      store.Detections,
		Directory:       dir,
		DispatchTimeout: settings.Notification.DispatchTimeout,
		Pagination: detection.PageLimits{
			Default: settings.Pagination.DefaultLimit,
			Max:     settings.Pagination.MaxLimit,
		},
		Metrics: m.Pipeline,
	}
	if settings.Notification.Enabled {
		d, err := notification.NewFromSettings(&settings.Notification, dir, m.Notification, nil)
		if err != nil {
			return nil, err
		}
		a.Dispatcher = d
		cfg.Dispatcher = d
		log.Info("notifications enabled", logger.String("transport", d.Transport()))
	} else {
		log.Info("notifications disabled")
	}

	a.Detections = detection.NewService(cfg)
	a.Statistics = statistics.NewAggregator(&statistics.Config{
		Detections:      store.Detections,
		Monitors:        dir.Monitors,
		Engines:         dir.Engines,
		MaxBuckets:      settings.Statistics.MaxBuckets,
		DefaultTimezone: settings.Statistics.DefaultTimezone,
		Metrics:         m.Pipeline,
	})
	return a, nil
}

// Close releases the store.
func (a *App) Close() error {
	stats := a.CacheStats()
	a.log.Debug("directory cache statistics",
		logger.Int64("hits", stats.Hits),
		logger.Int64("misses", stats.Misses),
		logger.Int("items", stats.Items))
	return a.Store.Close()
}
