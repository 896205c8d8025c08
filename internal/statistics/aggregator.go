// Package statistics computes per-engine detection counts in day or hour
// buckets for a company, in the caller's timezone, with every bucket of the
// range present even when it has no detections.
package statistics

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/securitas/internal/datastore/entities"
	"github.com/tphakala/securitas/internal/directory"
	"github.com/tphakala/securitas/internal/logger"
	"github.com/tphakala/securitas/internal/observability/metrics"
	"github.com/tphakala/securitas/internal/timezone"
)

// DefaultMaxBuckets bounds the number of buckets in one report.
const DefaultMaxBuckets = 10000

// DetectionSource lists detections of a set of monitors with timestamps in
// [from, to], in ascending timestamp order.
type DetectionSource interface {
	ListForMonitors(ctx context.Context, monitorIDs []string, from, to time.Time) ([]*entities.Detection, error)
}

// Request parameterizes one report.
type Request struct {
	CompanyCode string
	From        time.Time
	To          time.Time
	Timezone    string // see timezone.Parse; empty uses the aggregator default
	GroupBy     GroupBy
}

// Config holds the collaborators of an Aggregator.
type Config struct {
	Detections      DetectionSource
	Monitors        directory.MonitorDirectory
	Engines         directory.EngineCatalog
	MaxBuckets      int
	DefaultTimezone string
	Metrics         *metrics.PipelineMetrics
	Logger          logger.Logger
}

// Aggregator builds statistics reports. It is read-only and safe for
// concurrent use.
type Aggregator struct {
	detections      DetectionSource
	monitors        directory.MonitorDirectory
	engines         directory.EngineCatalog
	maxBuckets      int
	defaultTimezone string
	metrics         *metrics.PipelineMetrics
	log             logger.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(cfg *Config) *Aggregator {
	if cfg.MaxBuckets <= 0 {
		cfg.MaxBuckets = DefaultMaxBuckets
	}
	log := cfg.Logger
	if log == nil {
		log = GetLogger()
	}
	return &Aggregator{
		detections:      cfg.Detections,
		monitors:        cfg.Monitors,
		engines:         cfg.Engines,
		maxBuckets:      cfg.MaxBuckets,
		defaultTimezone: cfg.DefaultTimezone,
		metrics:         cfg.Metrics,
		log:             log,
	}
}

// Aggregate builds the report for req. A company without monitors yields an
// empty report. Invalid input fails with a validation error; lookup failures
// are returned as is and no partial report is produced.
func (a *Aggregator) Aggregate(ctx context.Context, req *Request) (*Report, error) {
	start := time.Now()

	groupBy, err := ParseGroupBy(string(req.GroupBy))
	if err != nil {
		return nil, err
	}
	tz := req.Timezone
	if tz == "" {
		tz = a.defaultTimezone
	}
	loc, err := timezone.Parse(tz)
	if err != nil {
		return nil, err
	}
	if req.CompanyCode == "" {
		return nil, badRequest("company_code is required")
	}
	if req.From.IsZero() || req.To.IsZero() {
		return nil, badRequest("from and to are required")
	}
	if req.From.After(req.To) {
		return nil, badRequest("from must not be after to")
	}

	labels, err := bucketLabels(req.From, req.To, loc, groupBy, a.maxBuckets)
	if err != nil {
		return nil, err
	}

	monitors, err := a.monitors.ListByCompany(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	if len(monitors) == 0 {
		a.log.Debug("no monitors for company", logger.String("company_code", req.CompanyCode))
		return emptyReport(), nil
	}
	ids := make([]string, len(monitors))
	for i, m := range monitors {
		ids[i] = m.ID
	}

	var (
		detections []*entities.Detection
		catalog    []*entities.Engine
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detections, err = a.detections.ListForMonitors(gctx, ids, req.From, req.To)
		return err
	})
	g.Go(func() error {
		var err error
		catalog, err = a.engines.ListAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	detections = a.dropReserved(detections)
	report := build(labels, detections, catalog, loc, groupBy)

	a.metrics.ObserveStatistics(string(groupBy), time.Since(start))
	a.log.Debug("statistics computed",
		logger.String("company_code", req.CompanyCode),
		logger.String("group_by", string(groupBy)),
		logger.String("timezone", loc.String()),
		logger.Int("buckets", len(report.Data)),
		logger.Int("detections", len(detections)),
		logger.Duration("duration", time.Since(start)))
	return report, nil
}

// dropReserved removes detections whose engine id collides with the label
// key of a row. Ingestion rejects such ids, so these can only be rows written
// outside the pipeline.
func (a *Aggregator) dropReserved(detections []*entities.Detection) []*entities.Detection {
	kept := slices.DeleteFunc(detections, func(d *entities.Detection) bool {
		return d.EngineID == entities.ReservedEngineID
	})
	if dropped := len(detections) - len(kept); dropped > 0 {
		a.log.Warn("skipping detections with reserved engine id",
			logger.String("engine_id", entities.ReservedEngineID),
			logger.Int("count", dropped))
	}
	return kept
}

// build assigns detections to buckets and zero-fills every bucket for every
// engine present in the range.
func build(labels []string, detections []*entities.Detection, catalog []*entities.Engine, loc *time.Location, groupBy GroupBy) *Report {
	var engineIDs []string
	seen := make(map[string]struct{})
	for _, d := range detections {
		if _, ok := seen[d.EngineID]; !ok {
			seen[d.EngineID] = struct{}{}
			engineIDs = append(engineIDs, d.EngineID)
		}
	}
	slices.Sort(engineIDs)

	column := make(map[string]int, len(engineIDs))
	for i, id := range engineIDs {
		column[id] = i
	}
	rows := make([]Row, len(labels))
	index := make(map[string]int, len(labels))
	for i, label := range labels {
		rows[i] = Row{Timestamp: label, engines: engineIDs, Counts: make([]int, len(engineIDs))}
		index[label] = i
	}
	for _, d := range detections {
		i, ok := index[groupBy.label(d.Timestamp, loc)]
		if !ok {
			continue
		}
		rows[i].Counts[column[d.EngineID]]++
	}

	names := make(map[string]*entities.Engine, len(catalog))
	for _, e := range catalog {
		names[e.ID] = e
	}
	engines := make(map[string]EngineInfo, len(engineIDs))
	for _, id := range engineIDs {
		info := EngineInfo{Name: id}
		if e, ok := names[id]; ok {
			info = EngineInfo{Name: e.Name, Description: e.Description}
		}
		engines[id] = info
	}

	return &Report{Data: rows, Engines: engines}
}
