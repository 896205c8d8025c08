package detection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/securitas/internal/datastore/entities"
	"github.com/tphakala/securitas/internal/datastore/repository"
	"github.com/tphakala/securitas/internal/errors"
)

func TestGate_Decide(t *testing.T) {
	t.Parallel()
	gate := newFixture(t).service.Gate()
	ctx := context.Background()

	tests := []struct {
		name   string
		policy *string
		engine string
		want   entities.ApprovalState
	}{
		{"no policy", nil, "eng-cam", entities.ApprovalYes},
		{"blank policy", strPtr("  "), "eng-cam", entities.ApprovalYes},
		{"listed engine", strPtr(`["eng-cam","eng-lpr"]`), "eng-lpr", entities.ApprovalNo},
		{"unlisted engine", strPtr(`["eng-cam"]`), "eng-fire", entities.ApprovalYes},
		{"empty list", strPtr(`[]`), "eng-cam", entities.ApprovalYes},
		{"malformed", strPtr(`eng-cam`), "eng-cam", entities.ApprovalYes},
		{"wrong shape", strPtr(`{"eng-cam":true}`), "eng-cam", entities.ApprovalYes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monitor := &entities.Monitor{ID: "m", EnginesRequireApproval: tt.policy}
			assert.Equal(t, tt.want, gate.Decide(ctx, monitor, tt.engine))
		})
	}
}

func TestApproveOne_EndToEnd(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.pending(t, "d1")
	assert.Empty(t, f.dispatcher.Calls())

	det, err := f.service.Gate().ApproveOne(ctx, "d1", ApproveOptions{ApprovedBy: strPtr("user-1")})
	require.NoError(t, err)
	assert.Equal(t, entities.ApprovalYes, det.Approved)
	require.NotNil(t, det.ApprovedBy)
	assert.Equal(t, "user-1", *det.ApprovedBy)

	calls := f.dispatcher.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "d1", calls[0].DetectionID)
	assert.Equal(t, "ACME", calls[0].CompanyCode)
}

func TestApproveOne_TerminalStates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	gate := f.service.Gate()

	f.pending(t, "d1")
	_, err := gate.ApproveOne(ctx, "d1", ApproveOptions{ApprovedBy: strPtr("user-1")})
	require.NoError(t, err)

	_, err = gate.ApproveOne(ctx, "d1", ApproveOptions{ApprovedBy: strPtr("user-2")})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	var resolved *AlreadyResolvedError
	require.ErrorAs(t, err, &resolved)
	assert.Equal(t, 1, resolved.Approved)

	stored, err := f.service.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", *stored.ApprovedBy, "record unchanged")
	assert.Len(t, f.dispatcher.Calls(), 1)

	f.pending(t, "d2")
	det, err := gate.ApproveOne(ctx, "d2", ApproveOptions{Value: entities.ApprovalExpired})
	require.NoError(t, err)
	assert.Equal(t, entities.ApprovalExpired, det.Approved)
	assert.Len(t, f.dispatcher.Calls(), 1, "expiring never alerts")

	_, err = gate.ApproveOne(ctx, "d2", ApproveOptions{})
	require.ErrorAs(t, err, &resolved)
	assert.Equal(t, 1, resolved.Expired)
}

func TestApproveOne_NotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	gate := f.service.Gate()

	_, err := gate.ApproveOne(ctx, "missing", ApproveOptions{})
	assert.True(t, errors.IsNotFound(err))

	f.pending(t, "d1")
	require.NoError(t, f.store.DB.Exec("DELETE FROM monitors WHERE id = ?", "m1").Error)
	_, err = gate.ApproveOne(ctx, "d1", ApproveOptions{})
	assert.True(t, errors.IsNotFound(err), "monitor gone")
}

func TestApproveOne_InvalidValue(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.pending(t, "d1")

	_, err := f.service.Gate().ApproveOne(context.Background(), "d1", ApproveOptions{Value: entities.ApprovalNo})
	assert.True(t, errors.IsValidation(err))
}

func TestApproveOne_DispatchFailureIsAbsorbed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.dispatcher.result = false
	f.pending(t, "d1")

	det, err := f.service.Gate().ApproveOne(context.Background(), "d1", ApproveOptions{})
	require.NoError(t, err)
	assert.Equal(t, entities.ApprovalYes, det.Approved)
	assert.Len(t, f.dispatcher.Calls(), 1)
}

func TestApproveBulk_MissingIDsAbortBatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.pending(t, "a")
	f.pending(t, "c")

	_, err := f.service.Gate().ApproveBulk(ctx, []string{"a", "b", "c", "z"}, entities.ApprovalYes, nil)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	var missing *MissingIDsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"b", "z"}, missing.IDs)

	for _, id := range []string{"a", "c"} {
		det, err := f.service.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, entities.ApprovalNo, det.Approved, id)
	}
	assert.Empty(t, f.dispatcher.Calls())
}

func TestApproveBulk_AlreadyApprovedAbortsBatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	gate := f.service.Gate()

	f.pending(t, "a")
	f.pending(t, "b")
	_, err := gate.ApproveOne(ctx, "a", ApproveOptions{})
	require.NoError(t, err)
	require.Len(t, f.dispatcher.Calls(), 1)

	_, err = gate.ApproveBulk(ctx, []string{"a", "b"}, entities.ApprovalYes, strPtr("ops"))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	var resolved *AlreadyResolvedError
	require.ErrorAs(t, err, &resolved)
	assert.Equal(t, 1, resolved.Approved)
	assert.Equal(t, []string{"a"}, resolved.IDs)
	assert.Contains(t, err.Error(), "1 detection(s) already approved")

	b, err := f.service.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, entities.ApprovalNo, b.Approved)
	assert.Len(t, f.dispatcher.Calls(), 1, "no re-notification")
}

func TestApproveBulk_AppliesAndDispatchesEach(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		f.pending(t, id)
	}

	dets, err := f.service.Gate().ApproveBulk(ctx, []string{"c", "a", "b", "a"}, entities.ApprovalYes, strPtr("ops"))
	require.NoError(t, err)
	require.Len(t, dets, 3)
	assert.Equal(t, "c", dets[0].ID, "input order, duplicates dropped")

	for _, id := range []string{"a", "b", "c"} {
		det, err := f.service.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, entities.ApprovalYes, det.Approved)
		assert.Equal(t, "ops", *det.ApprovedBy)
		assert.Equal(t, uint(2), det.Version)
	}

	dispatched := map[string]bool{}
	for _, c := range f.dispatcher.Calls() {
		dispatched[c.DetectionID] = true
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, dispatched)
}

func TestApproveBulk_ExpireDoesNotDispatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.pending(t, "a")

	dets, err := f.service.Gate().ApproveBulk(context.Background(), []string{"a"}, entities.ApprovalExpired, nil)
	require.NoError(t, err)
	assert.Equal(t, entities.ApprovalExpired, dets[0].Approved)
	assert.Empty(t, f.dispatcher.Calls())
}

func TestApproveBulk_EmptyIDs(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.service.Gate().ApproveBulk(context.Background(), []string{"", ""}, entities.ApprovalYes, nil)
	assert.True(t, errors.IsValidation(err))
}

func TestApproveOne_LostRaceReportsResolution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		winner      entities.ApprovalState
		wantApprove int
		wantExpired int
	}{
		{"approved first", entities.ApprovalYes, 1, 0},
		{"expired first", entities.ApprovalExpired, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			ctx := context.Background()
			f.pending(t, "d1")

			repo := &interleavedRepository{
				DetectionRepository: f.store.Detections,
				onRead:              resolveConcurrently(t, tt.winner),
			}
			gate := f.serviceWith(repo).Gate()

			_, err := gate.ApproveOne(ctx, "d1", ApproveOptions{ApprovedBy: strPtr("user-1")})
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			var resolved *AlreadyResolvedError
			require.ErrorAs(t, err, &resolved)
			assert.Equal(t, []string{"d1"}, resolved.IDs)
			assert.Equal(t, tt.wantApprove, resolved.Approved)
			assert.Equal(t, tt.wantExpired, resolved.Expired)

			stored, err := f.service.Get(ctx, "d1")
			require.NoError(t, err)
			assert.Equal(t, tt.winner, stored.Approved)
			require.NotNil(t, stored.ApprovedBy)
			assert.Equal(t, "other-operator", *stored.ApprovedBy)
			assert.Empty(t, f.dispatcher.Calls())
		})
	}
}

func TestApproveOne_ConcurrentEditIsConflict(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.pending(t, "d1")

	repo := &interleavedRepository{
		DetectionRepository: f.store.Detections,
		onRead: func(repo repository.DetectionRepository, det *entities.Detection) {
			edited := *det
			edited.Zone = "north"
			require.NoError(t, repo.Save(ctx, &edited))
		},
	}

	_, err := f.serviceWith(repo).Gate().ApproveOne(ctx, "d1", ApproveOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	stored, err := f.service.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, entities.ApprovalNo, stored.Approved, "still pending, safe to retry")
	assert.Empty(t, f.dispatcher.Calls())
}

func TestApproveBulk_LostRaceAbortsBatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.pending(t, "a")
	f.pending(t, "b")

	repo := &interleavedRepository{
		DetectionRepository: f.store.Detections,
		onRead:              resolveConcurrently(t, entities.ApprovalYes),
	}

	_, err := f.serviceWith(repo).Gate().ApproveBulk(ctx, []string{"a", "b"}, entities.ApprovalYes, strPtr("ops"))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	var resolved *AlreadyResolvedError
	require.ErrorAs(t, err, &resolved)
	assert.Len(t, resolved.IDs, 1)
	assert.Equal(t, 1, resolved.Approved)

	for _, id := range []string{"a", "b"} {
		det, err := f.service.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, entities.ApprovalNo, det.Approved, "batch rolled back for %s", id)
	}
	assert.Empty(t, f.dispatcher.Calls())
}
