package detection

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/securitas/internal/datastore/entities"
	"github.com/tphakala/securitas/internal/datastore/repository"
	"github.com/tphakala/securitas/internal/directory"
	"github.com/tphakala/securitas/internal/errors"
	"github.com/tphakala/securitas/internal/logger"
	"github.com/tphakala/securitas/internal/observability/metrics"
)

// DefaultDispatchTimeout bounds one dispatch call when no ceiling is configured.
const DefaultDispatchTimeout = 45 * time.Second

// bulkDispatchConcurrency bounds parallel alerts after a bulk approval.
const bulkDispatchConcurrency = 4

// Dispatcher delivers an alert for an approved detection. It reports success
// and never fails the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, companyCode string, det *entities.Detection) bool
}

// ApproveOptions parameterizes a single approval.
type ApproveOptions struct {
	Value      entities.ApprovalState // defaults to ApprovalYes
	ApprovedBy *string
}

// Gate decides the initial approval state of new detections and performs
// explicit approval transitions. Only NO may transition, to YES or EXPIRED,
// and an alert is dispatched exactly when a detection becomes YES.
type Gate struct {
	detections      repository.DetectionRepository
	monitors        directory.MonitorDirectory
	dispatcher      Dispatcher
	dispatchTimeout time.Duration
	metrics         *metrics.PipelineMetrics
	log             logger.Logger
}

// GateConfig holds the collaborators of a Gate. Dispatcher may be nil, in
// which case approvals never alert.
type GateConfig struct {
	Detections      repository.DetectionRepository
	Monitors        directory.MonitorDirectory
	Dispatcher      Dispatcher
	DispatchTimeout time.Duration
	Metrics         *metrics.PipelineMetrics
	Logger          logger.Logger
}

// NewGate creates a Gate.
func NewGate(cfg GateConfig) *Gate {
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = DefaultDispatchTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = GetLogger()
	}
	return &Gate{
		detections:      cfg.Detections,
		monitors:        cfg.Monitors,
		dispatcher:      cfg.Dispatcher,
		dispatchTimeout: cfg.DispatchTimeout,
		metrics:         cfg.Metrics,
		log:             cfg.Logger.With(logger.String("component", "approval_gate")),
	}
}

// Decide returns NO when the monitor's approval policy lists engineID and YES
// otherwise. A malformed policy is logged and treated as empty.
func (g *Gate) Decide(ctx context.Context, monitor *entities.Monitor, engineID string) entities.ApprovalState {
	policy, err := parseApprovalPolicy(monitor.EnginesRequireApproval)
	if err != nil {
		g.log.WithContext(ctx).Warn("ignoring malformed engines_require_approval",
			logger.String("monitor_id", monitor.ID),
			logger.Error(err))
		return entities.ApprovalYes
	}
	if policy.requires(engineID) {
		return entities.ApprovalNo
	}
	return entities.ApprovalYes
}

// approvalValue validates a requested transition target.
func approvalValue(v entities.ApprovalState) (entities.ApprovalState, error) {
	switch v {
	case "":
		return entities.ApprovalYes, nil
	case entities.ApprovalYes, entities.ApprovalExpired:
		return v, nil
	default:
		return "", badRequest("invalid approval value %q: must be %q or %q",
			string(v), entities.ApprovalYes, entities.ApprovalExpired)
	}
}

// ApproveOne transitions a pending detection to opts.Value and dispatches an
// alert when the new value is YES. A failed dispatch does not fail the call.
func (g *Gate) ApproveOne(ctx context.Context, id string, opts ApproveOptions) (*entities.Detection, error) {
	value, err := approvalValue(opts.Value)
	if err != nil {
		return nil, err
	}

	det, err := g.detections.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	monitor, err := g.monitors.Get(ctx, det.MonitorID)
	if err != nil {
		return nil, err
	}

	if resolved := countResolved([]*entities.Detection{det}); resolved != nil {
		return nil, alreadyResolved(resolved)
	}

	det.Approved = value
	det.ApprovedBy = opts.ApprovedBy
	if err := g.detections.Save(ctx, det); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, g.lostRace(ctx, id)
		}
		return nil, err
	}
	g.metrics.RecordApprovals(string(value), 1)

	g.log.Info("detection approval updated",
		logger.String("detection_id", det.ID),
		logger.String("approved", string(value)),
		logger.String("approved_by", deref(opts.ApprovedBy)))

	if value == entities.ApprovalYes {
		g.dispatch(ctx, monitor.CompanyCode, det)
	}
	return det, nil
}

// lostRace explains a version conflict on a single approval.
func (g *Gate) lostRace(ctx context.Context, id string) error {
	current, err := g.detections.Get(ctx, id)
	if err != nil {
		return err
	}
	if resolved := countResolved([]*entities.Detection{current}); resolved != nil {
		return alreadyResolved(resolved)
	}
	return errors.New(errors.Join(repository.ErrVersionConflict, errors.NewStd("retry the approval"))).
		Component(component).
		Category(errors.CategoryConflict).
		Context("detection_id", id).
		Build()
}

// ApproveBulk applies value to every detection in ids, all or nothing. Any
// missing id fails the whole batch with a MissingIDsError, and any detection
// no longer pending fails it with an AlreadyResolvedError. Alerts are
// dispatched after commit, independently per detection.
func (g *Gate) ApproveBulk(ctx context.Context, ids []string, value entities.ApprovalState, approvedBy *string) ([]*entities.Detection, error) {
	value, err := approvalValue(value)
	if err != nil {
		return nil, err
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, badRequest("detection_ids must not be empty")
	}

	var approved []*entities.Detection
	err = g.detections.Transaction(ctx, func(tx repository.DetectionRepository) error {
		dets, err := tx.GetMany(ctx, ids)
		if err != nil {
			return err
		}
		ordered, missing := orderByIDs(ids, dets)
		if len(missing) > 0 {
			return missingIDs(missing)
		}
		if resolved := countResolved(ordered); resolved != nil {
			return alreadyResolved(resolved)
		}

		for _, det := range ordered {
			det.Approved = value
			det.ApprovedBy = approvedBy
			if err := tx.Save(ctx, det); err != nil {
				if errors.Is(err, repository.ErrVersionConflict) {
					return alreadyResolved(&AlreadyResolvedError{IDs: []string{det.ID}, Approved: 1})
				}
				return err
			}
		}
		approved = ordered
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.metrics.RecordApprovals(string(value), len(approved))

	g.log.Info("bulk approval applied",
		logger.Int("count", len(approved)),
		logger.String("approved", string(value)),
		logger.String("approved_by", deref(approvedBy)))

	if value == entities.ApprovalYes {
		g.dispatchAll(ctx, approved)
	}
	return approved, nil
}

// dispatchAll alerts for each detection. A failure for one detection,
// including an unresolvable monitor, does not affect the others.
func (g *Gate) dispatchAll(ctx context.Context, dets []*entities.Detection) {
	var eg errgroup.Group
	eg.SetLimit(bulkDispatchConcurrency)
	for _, det := range dets {
		eg.Go(func() error {
			monitor, err := g.monitors.Get(ctx, det.MonitorID)
			if err != nil {
				g.log.Warn("skipping alert, monitor lookup failed",
					logger.String("detection_id", det.ID),
					logger.String("monitor_id", det.MonitorID),
					logger.Error(err))
				return nil
			}
			g.dispatch(ctx, monitor.CompanyCode, det)
			return nil
		})
	}
	_ = eg.Wait()
}

// dispatch alerts under the dispatch ceiling. The context keeps the caller's
// values but not its cancellation, so an alert already underway is not cut
// off when the triggering request completes.
func (g *Gate) dispatch(ctx context.Context, companyCode string, det *entities.Detection) bool {
	if g.dispatcher == nil {
		return false
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.dispatchTimeout)
	defer cancel()

	ok := g.dispatcher.Dispatch(dctx, companyCode, det)
	if !ok {
		g.log.Warn("alert not delivered",
			logger.String("detection_id", det.ID),
			logger.String("company_code", companyCode))
	}
	return ok
}

// countResolved returns nil when every detection is still pending.
func countResolved(dets []*entities.Detection) *AlreadyResolvedError {
	var resolved AlreadyResolvedError
	for _, det := range dets {
		switch det.Approved {
		case entities.ApprovalYes:
			resolved.Approved++
		case entities.ApprovalExpired:
			resolved.Expired++
		default:
			continue
		}
		resolved.IDs = append(resolved.IDs, det.ID)
	}
	if len(resolved.IDs) == 0 {
		return nil
	}
	return &resolved
}

// orderByIDs returns dets in the order of ids, plus the ids with no detection.
func orderByIDs(ids []string, dets []*entities.Detection) (ordered []*entities.Detection, missing []string) {
	byID := make(map[string]*entities.Detection, len(dets))
	for _, det := range dets {
		byID[det.ID] = det
	}
	ordered = make([]*entities.Detection, 0, len(ids))
	for _, id := range ids {
		det, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		ordered = append(ordered, det)
	}
	return ordered, missing
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
