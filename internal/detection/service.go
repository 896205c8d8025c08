// Package detection is the detection pipeline core: idempotent ingestion,
// queries over stored detections and the approval gate that controls when
// alerts are dispatched.
package detection

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/securitas/internal/datastore/entities"
	"github.com/tphakala/securitas/internal/datastore/repository"
	"github.com/tphakala/securitas/internal/directory"
	"github.com/tphakala/securitas/internal/errors"
	"github.com/tphakala/securitas/internal/logger"
	"github.com/tphakala/securitas/internal/observability/metrics"
)

// Config holds the collaborators of a Service.
type Config struct {
	Detections      repository.DetectionRepository
	Directory       *directory.Directory
	Dispatcher      Dispatcher // nil disables alerts
	DispatchTimeout time.Duration
	Pagination      PageLimits
	Metrics         *metrics.PipelineMetrics
	Logger          logger.Logger

	// Now overrides the clock used for detections without a timestamp.
	Now func() time.Time
}

// Service owns the detection lifecycle.
type Service struct {
	detections repository.DetectionRepository
	monitors   directory.MonitorDirectory
	engines    directory.EngineCatalog
	gate       *Gate
	limits     PageLimits
	metrics    *metrics.PipelineMetrics
	log        logger.Logger
	now        func() time.Time
}

// NewService creates a Service and its Gate.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = GetLogger()
	}
	if cfg.Pagination.Default <= 0 || cfg.Pagination.Max <= 0 {
		cfg.Pagination = DefaultPageLimits
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	gate := NewGate(GateConfig{
		Detections:      cfg.Detections,
		Monitors:        cfg.Directory.Monitors,
		Dispatcher:      cfg.Dispatcher,
		DispatchTimeout: cfg.DispatchTimeout,
		Metrics:         cfg.Metrics,
		Logger:          cfg.Logger,
	})
	return &Service{
		detections: cfg.Detections,
		monitors:   cfg.Directory.Monitors,
		engines:    cfg.Directory.Engines,
		gate:       gate,
		limits:     cfg.Pagination,
		metrics:    cfg.Metrics,
		log:        cfg.Logger,
		now:        cfg.Now,
	}
}

// Gate returns the approval gate sharing this service's store.
func (s *Service) Gate() *Gate {
	return s.gate
}

// Ingest stores a detection event. Redelivery of an id that is already
// stored returns the stored detection unchanged, including when a concurrent
// delivery of the same id wins the insert. The monitor and engine must exist.
// An alert is dispatched when the gate auto-approves the detection.
func (s *Service) Ingest(ctx context.Context, req *IngestRequest) (*entities.Detection, error) {
	det, created, err := s.ingest(ctx, req)
	switch {
	case err != nil && (errors.IsValidation(err) || errors.IsNotFound(err)):
		s.metrics.RecordIngest(metrics.IngestRejected)
	case err != nil:
		s.metrics.RecordIngest(metrics.IngestError)
	case created:
		s.metrics.RecordIngest(metrics.IngestCreated)
	default:
		s.metrics.RecordIngest(metrics.IngestDuplicate)
	}
	return det, err
}

func (s *Service) ingest(ctx context.Context, req *IngestRequest) (*entities.Detection, bool, error) {
	if req == nil {
		return nil, false, badRequest("detection payload is required")
	}
	status, feedback, err := req.validate()
	if err != nil {
		return nil, false, err
	}

	if req.ID != "" {
		existing, err := s.detections.Get(ctx, req.ID)
		switch {
		case err == nil:
			s.log.Debug("detection already stored, skipping",
				logger.String("detection_id", req.ID))
			return existing, false, nil
		case !errors.IsNotFound(err):
			return nil, false, err
		}
	}

	monitor, err := s.monitors.Get(ctx, req.MonitorID)
	if err != nil {
		return nil, false, err
	}
	engineID := req.engineID()
	if _, err := s.engines.Get(ctx, engineID); err != nil {
		return nil, false, err
	}

	det := s.newDetection(req, engineID, status, feedback)
	det.Approved = s.gate.Decide(ctx, monitor, engineID)

	if err := s.detections.Create(ctx, det); err != nil {
		if !repository.IsDuplicateKeyError(err) {
			return nil, false, err
		}
		existing, getErr := s.detections.Get(ctx, det.ID)
		if getErr != nil {
			return nil, false, getErr
		}
		s.log.Debug("concurrent delivery stored detection first",
			logger.String("detection_id", det.ID))
		return existing, false, nil
	}

	s.log.Info("detection ingested",
		logger.String("detection_id", det.ID),
		logger.String("monitor_id", det.MonitorID),
		logger.String("engine_id", det.EngineID),
		logger.String("approved", string(det.Approved)))

	if det.Approved == entities.ApprovalYes {
		s.gate.dispatch(ctx, monitor.CompanyCode, det)
	}
	return det, true, nil
}

func (s *Service) newDetection(req *IngestRequest, engineID string, status entities.DetectionStatus, feedback entities.FeedbackStatus) *entities.Detection {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	ts := s.now()
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		ts = *req.Timestamp
	}
	unread := true
	if req.Unread != nil {
		unread = bool(*req.Unread)
	}
	alert := false
	if req.Alert != nil {
		alert = bool(*req.Alert)
	}
	return &entities.Detection{
		ID:               id,
		Timestamp:        ts,
		MonitorID:        req.MonitorID,
		EngineID:         engineID,
		Zone:             req.Zone,
		Status:           status,
		FeedbackStatus:   feedback,
		Alert:            alert,
		Unread:           unread,
		District:         req.District,
		SuspectedOffense: req.SuspectedOffense,
		VehicleType:      req.VehicleType,
		LicensePlate:     req.LicensePlate,
		Metadata:         req.Metadata,
		ImageURL:         req.ImageURL,
		VideoURL:         req.VideoURL,
	}
}

// Get returns one detection.
func (s *Service) Get(ctx context.Context, id string) (*entities.Detection, error) {
	return s.detections.Get(ctx, id)
}

// Update merges patch into the stored detection.
func (s *Service) Update(ctx context.Context, id string, patch *Patch) (*entities.Detection, error) {
	if patch == nil {
		patch = &Patch{}
	}
	if err := patch.validate(); err != nil {
		return nil, err
	}
	det, err := s.detections.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.apply(det)
	if err := s.detections.Save(ctx, det); err != nil {
		return nil, err
	}
	return det, nil
}

// Remove deletes one detection.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.detections.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("detection removed", logger.String("detection_id", id))
	return nil
}

// List returns one page of detections matching filter, newest first.
func (s *Service) List(ctx context.Context, filter *repository.DetectionFilter, page Page) (*Paginated[*entities.Detection], error) {
	if err := checkRange(filter); err != nil {
		return nil, err
	}
	page = s.limits.normalize(page)
	dets, total, err := s.detections.List(ctx, filter, page.PageSize, page.offset())
	if err != nil {
		return nil, err
	}
	return newPaginated(dets, total, page), nil
}

// Search is List joined with monitor and company display fields.
func (s *Service) Search(ctx context.Context, filter *repository.SearchFilter, page Page) (*Paginated[*repository.SearchResult], error) {
	if filter != nil {
		if err := checkRange(&filter.DetectionFilter); err != nil {
			return nil, err
		}
	}
	page = s.limits.normalize(page)
	results, total, err := s.detections.Search(ctx, filter, page.PageSize, page.offset())
	if err != nil {
		return nil, err
	}
	return newPaginated(results, total, page), nil
}

func checkRange(filter *repository.DetectionFilter) error {
	if filter != nil && filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return badRequest("from must not be after to")
	}
	return nil
}
