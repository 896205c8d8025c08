package detection

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/securitas/internal/conf"
	"github.com/tphakala/securitas/internal/datastore"
	"github.com/tphakala/securitas/internal/datastore/entities"
	"github.com/tphakala/securitas/internal/datastore/repository"
	"github.com/tphakala/securitas/internal/directory"
	"github.com/tphakala/securitas/internal/errors"
	"github.com/tphakala/securitas/internal/logger"
)

type dispatchCall struct {
	CompanyCode string
	DetectionID string
	HasDeadline bool
}

// recordingDispatcher records calls and returns a fixed result.
type recordingDispatcher struct {
	mu     sync.Mutex
	calls  []dispatchCall
	result bool
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, companyCode string, det *entities.Detection) bool {
	_, hasDeadline := ctx.Deadline()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{CompanyCode: companyCode, DetectionID: det.ID, HasDeadline: hasDeadline})
	return d.result
}

func (d *recordingDispatcher) Calls() []dispatchCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dispatchCall(nil), d.calls...)
}

type fixture struct {
	store      *datastore.Store
	service    *Service
	dispatcher *recordingDispatcher
}

var fixedNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := datastore.Open(&conf.Settings{
		Database: conf.DatabaseSettings{
			Type:        conf.DatabaseSQLite,
			SQLite:      conf.SQLiteSettings{Path: ":memory:"},
			AutoMigrate: true,
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	policy := `["eng-cam"]`
	require.NoError(t, store.Companies.Upsert(ctx, &entities.Company{CompanyCode: "ACME", Name: "Acme"}))
	require.NoError(t, store.Monitors.Upsert(ctx, &entities.Monitor{
		ID: "m1", CompanyCode: "ACME", Name: "Gate", EnginesRequireApproval: &policy,
	}))
	require.NoError(t, store.Monitors.Upsert(ctx, &entities.Monitor{ID: "m2", CompanyCode: "ACME", Name: "Lobby"}))
	require.NoError(t, store.Engines.Upsert(ctx, &entities.Engine{ID: "eng-cam", Name: "Camera Intrusion"}))
	require.NoError(t, store.Engines.Upsert(ctx, &entities.Engine{ID: "eng-fire", Name: "Fire"}))

	f := &fixture{store: store, dispatcher: &recordingDispatcher{result: true}}
	f.service = f.serviceWith(store.Detections)
	return f
}

// serviceWith builds a service over the fixture's directory and dispatcher
// that reads and writes detections through repo.
func (f *fixture) serviceWith(repo repository.DetectionRepository) *Service {
	return NewService(Config{
		Detections:      repo,
		Directory:       directory.FromStore(f.store),
		Dispatcher:      f.dispatcher,
		DispatchTimeout: 5 * time.Second,
		Logger:          logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC),
		Now:             func() time.Time { return fixedNow },
	})
}

// pending ingests a detection on m1 that the policy holds for approval.
func (f *fixture) pending(t *testing.T, id string) *entities.Detection {
	t.Helper()
	det, err := f.service.Ingest(context.Background(), &IngestRequest{ID: id, MonitorID: "m1", Engine: "eng-cam"})
	require.NoError(t, err)
	require.Equal(t, entities.ApprovalNo, det.Approved)
	return det
}

func strPtr(s string) *string { return &s }

// interleavedRepository injects a competing writer between a read and the
// write that follows it. The first missGets calls to Get report not found,
// and onRead runs once, on the first detection read after that, with the
// repository the caller is using.
type interleavedRepository struct {
	repository.DetectionRepository

	mu       sync.Mutex
	missGets int
	onRead   func(repo repository.DetectionRepository, det *entities.Detection)
}

func (r *interleavedRepository) Get(ctx context.Context, id string) (*entities.Detection, error) {
	r.mu.Lock()
	miss := r.missGets > 0
	if miss {
		r.missGets--
	}
	r.mu.Unlock()
	if miss {
		return nil, errors.New(fmt.Errorf("%w: %s", repository.ErrDetectionNotFound, id)).
			Category(errors.CategoryNotFound).
			Build()
	}

	det, err := r.DetectionRepository.Get(ctx, id)
	if err == nil {
		r.interleave(r.DetectionRepository, det)
	}
	return det, err
}

func (r *interleavedRepository) GetMany(ctx context.Context, ids []string) ([]*entities.Detection, error) {
	dets, err := r.DetectionRepository.GetMany(ctx, ids)
	if err == nil && len(dets) > 0 {
		r.interleave(r.DetectionRepository, dets[0])
	}
	return dets, err
}

func (r *interleavedRepository) Transaction(ctx context.Context, fn func(tx repository.DetectionRepository) error) error {
	return r.DetectionRepository.Transaction(ctx, func(tx repository.DetectionRepository) error {
		r.mu.Lock()
		hook := r.onRead
		r.onRead = nil
		r.mu.Unlock()
		return fn(&interleavedRepository{DetectionRepository: tx, onRead: hook})
	})
}

func (r *interleavedRepository) interleave(repo repository.DetectionRepository, det *entities.Detection) {
	r.mu.Lock()
	hook := r.onRead
	r.onRead = nil
	r.mu.Unlock()
	if hook != nil {
		hook(repo, det)
	}
}

// resolveConcurrently returns a hook that stores det with approved set to
// value, as a competing approval would, leaving the caller's copy stale.
func resolveConcurrently(t *testing.T, value entities.ApprovalState) func(repository.DetectionRepository, *entities.Detection) {
	t.Helper()
	return func(repo repository.DetectionRepository, det *entities.Detection) {
		winner := *det
		winner.Approved = value
		winner.ApprovedBy = strPtr("other-operator")
		require.NoError(t, repo.Save(context.Background(), &winner))
	}
}
