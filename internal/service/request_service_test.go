package service

import (
	"context"
	"testing"
	"time"

	"leavedesk/internal/apierror"
	"leavedesk/internal/dto"
	"leavedesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(f *fixture) RequestService {
	return NewRequestService(f.requests, f.accounts, nil)
}

func TestCreateRequestHappyPath(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)

	resp, err := svc.Create(context.Background(), f.employee, date(2026, 9, 7), date(2026, 9, 11), "beach week")
	require.NoError(t, err)

	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, 5, resp.Days)
	assert.Equal(t, "2026-09-07", resp.StartDate)
	assert.Equal(t, "2026-09-11", resp.EndDate)

	// Creation reserves nothing; the ledger moves only on approval.
	acct, _ := f.accounts.FindByID(context.Background(), f.employee.AccountID)
	assert.Equal(t, 0, acct.UsedDays)
}

func TestCreateRejectsManagers(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)

	_, err := svc.Create(context.Background(), f.manager, date(2026, 9, 7), date(2026, 9, 8), "")
	require.Error(t, err)
	assert.Equal(t, apierror.KindAuthorization, apierror.KindOf(err))
}

func TestCreateEndBeforeStart(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)

	_, err := svc.Create(context.Background(), f.employee, date(2026, 9, 11), date(2026, 9, 7), "")
	require.Error(t, err)
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
}

func TestCreateSingleDayHasDurationOne(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)

	resp, err := svc.Create(context.Background(), f.employee, date(2026, 9, 7), date(2026, 9, 7), "")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Days)
}

func TestCreateExactBalanceBoundary(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)

	// 20 days requested against a 20-day balance is admissible.
	_, err := svc.Create(context.Background(), f.employee, date(2026, 9, 1), date(2026, 9, 20), "")
	require.NoError(t, err)

	// 21 days is not.
	other := f.addEmployee("second@example.com", "Second Employee")
	_, err = svc.Create(context.Background(), other, date(2026, 9, 1), date(2026, 9, 21), "")
	require.Error(t, err)
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
	assert.Contains(t, err.Error(), "insufficient balance")
}

func TestCreateOverlapRejected(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()

	_, err := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "first")
	require.NoError(t, err)

	// Sharing a single endpoint day counts as overlap.
	_, err = svc.Create(ctx, f.employee, date(2026, 9, 11), date(2026, 9, 12), "touching")
	require.Error(t, err)
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))

	// Containment too.
	_, err = svc.Create(ctx, f.employee, date(2026, 9, 8), date(2026, 9, 9), "inside")
	require.Error(t, err)

	// A disjoint range on the same account is fine.
	_, err = svc.Create(ctx, f.employee, date(2026, 9, 14), date(2026, 9, 15), "later")
	require.NoError(t, err)
}

func TestOverlapIsPerAccount(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()
	other := f.addEmployee("second@example.com", "Second Employee")

	_, err := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "")
	require.NoError(t, err)

	// Identical range on a different account does not collide.
	_, err = svc.Create(ctx, other, date(2026, 9, 7), date(2026, 9, 11), "")
	require.NoError(t, err)
}

func TestApproveMovesLedger(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()

	created, err := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "")
	require.NoError(t, err)

	resp, err := svc.Approve(ctx, f.manager, created.ID, "enjoy")
	require.NoError(t, err)
	assert.Equal(t, "approved", resp.Status)
	require.NotNil(t, resp.DecidedBy)
	assert.Equal(t, f.manager.AccountID, *resp.DecidedBy)
	assert.NotEmpty(t, resp.DecidedAt)
	assert.Equal(t, "enjoy", resp.ManagerNote)

	acct, _ := f.accounts.FindByID(ctx, f.employee.AccountID)
	assert.Equal(t, 5, acct.UsedDays)
	assert.Equal(t, 15, acct.RemainingDays())
}

func TestApproveRequiresManager(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()

	created, _ := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "")

	_, err := svc.Approve(ctx, f.employee, created.ID, "")
	require.Error(t, err)
	assert.Equal(t, apierror.KindAuthorization, apierror.KindOf(err))
}

func TestRejectLeavesLedgerUntouched(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()

	created, _ := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "")

	resp, err := svc.Reject(ctx, f.manager, created.ID, "busy sprint")
	require.NoError(t, err)
	assert.Equal(t, "rejected", resp.Status)

	acct, _ := f.accounts.FindByID(ctx, f.employee.AccountID)
	assert.Equal(t, 0, acct.UsedDays)
}

func TestDoubleDecisionConflicts(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()

	created, _ := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "")
	_, err := svc.Approve(ctx, f.manager, created.ID, "")
	require.NoError(t, err)

	// Approve again and flip to rejected: both hit the terminal-state guard.
	_, err = svc.Approve(ctx, f.manager, created.ID, "")
	require.Error(t, err)
	assert.Equal(t, apierror.KindConflict, apierror.KindOf(err))

	_, err = svc.Reject(ctx, f.manager, created.ID, "")
	require.Error(t, err)
	assert.Equal(t, apierror.KindConflict, apierror.KindOf(err))

	// And the ledger moved exactly once.
	acct, _ := f.accounts.FindByID(ctx, f.employee.AccountID)
	assert.Equal(t, 5, acct.UsedDays)
}

func TestRejectedRangeCanBeReused(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()

	created, _ := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "")
	_, err := svc.Reject(ctx, f.manager, created.ID, "")
	require.NoError(t, err)

	// Rejected requests leave the overlap comparison set.
	_, err = svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "retry")
	require.NoError(t, err)
}

func TestUpdatePendingRequest(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()

	created, _ := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "old")

	resp, err := svc.Update(ctx, f.employee, created.ID, date(2026, 9, 8), date(2026, 9, 10), "new")
	require.NoError(t, err)
	assert.Equal(t, "2026-09-08", resp.StartDate)
	assert.Equal(t, "2026-09-10", resp.EndDate)
	assert.Equal(t, "new", resp.Reason)
	assert.Equal(t, 3, resp.Days)
}

func TestUpdateExcludesOwnRangeFromOverlap(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()

	created, _ := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "")

	// The new range intersects the request's own current range, which must
	// not count as a collision.
	_, err := svc.Update(ctx, f.employee, created.ID, date(2026, 9, 9), date(2026, 9, 13), "")
	require.NoError(t, err)
}

func TestUpdateOwnerOnly(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()
	other := f.addEmployee("second@example.com", "Second Employee")

	created, _ := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "")

	_, err := svc.Update(ctx, other, created.ID, date(2026, 9, 8), date(2026, 9, 10), "")
	require.Error(t, err)
	assert.Equal(t, apierror.KindAuthorization, apierror.KindOf(err))
}

func TestUpdateDecidedRequestConflicts(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()

	created, _ := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "")
	_, err := svc.Approve(ctx, f.manager, created.ID, "")
	require.NoError(t, err)

	_, err = svc.Update(ctx, f.employee, created.ID, date(2026, 9, 8), date(2026, 9, 10), "")
	require.Error(t, err)
	assert.Equal(t, apierror.KindConflict, apierror.KindOf(err))
}

func TestEditThenRejectScenario(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()

	created, _ := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "v1")
	_, err := svc.Update(ctx, f.employee, created.ID, date(2026, 9, 14), date(2026, 9, 18), "v2")
	require.NoError(t, err)

	_, err = svc.Reject(ctx, f.manager, created.ID, "coverage gap")
	require.NoError(t, err)

	acct, _ := f.accounts.FindByID(ctx, f.employee.AccountID)
	assert.Equal(t, 0, acct.UsedDays)

	// The freed range is immediately available again.
	_, err = svc.Create(ctx, f.employee, date(2026, 9, 14), date(2026, 9, 18), "v3")
	require.NoError(t, err)
}

func TestDeletePendingOnly(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()

	created, _ := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "")
	require.NoError(t, svc.Delete(ctx, f.employee, created.ID))

	_, err := svc.Get(ctx, f.employee, created.ID)
	require.Error(t, err)
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))

	// A decided request refuses deletion.
	second, _ := svc.Create(ctx, f.employee, date(2026, 9, 14), date(2026, 9, 15), "")
	_, err = svc.Approve(ctx, f.manager, second.ID, "")
	require.NoError(t, err)

	err = svc.Delete(ctx, f.employee, second.ID)
	require.Error(t, err)
	assert.Equal(t, apierror.KindConflict, apierror.KindOf(err))
}

func TestDeleteForeignRequestForbidden(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()
	other := f.addEmployee("second@example.com", "Second Employee")

	created, _ := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "")

	err := svc.Delete(ctx, other, created.ID)
	require.Error(t, err)
	assert.Equal(t, apierror.KindAuthorization, apierror.KindOf(err))

	// Managers may withdraw anyone's pending request.
	require.NoError(t, svc.Delete(ctx, f.manager, created.ID))
}

func TestGetOwnership(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()
	other := f.addEmployee("second@example.com", "Second Employee")

	created, _ := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "")

	_, err := svc.Get(ctx, other, created.ID)
	require.Error(t, err)
	assert.Equal(t, apierror.KindAuthorization, apierror.KindOf(err))

	resp, err := svc.Get(ctx, f.manager, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, resp.ID)
}

func TestListScopesEmployeesToTheirOwnRequests(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()
	other := f.addEmployee("second@example.com", "Second Employee")

	_, err := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, other, date(2026, 10, 5), date(2026, 10, 9), "")
	require.NoError(t, err)

	// Asking for someone else's account id is silently overridden.
	resp, err := svc.List(ctx, f.employee, dto.RequestFilter{AccountID: other.AccountID})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, f.employee.AccountID, resp.Data[0].AccountID)

	// Managers see everything.
	resp, err = svc.List(ctx, f.manager, dto.RequestFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)
}

func TestListStatusAndSearchFilters(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()

	first, _ := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "conference travel")
	_, err := svc.Create(ctx, f.employee, date(2026, 10, 5), date(2026, 10, 9), "family visit")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, f.manager, first.ID, "")
	require.NoError(t, err)

	resp, err := svc.List(ctx, f.manager, dto.RequestFilter{Status: "approved"})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, first.ID, resp.Data[0].ID)

	resp, err = svc.List(ctx, f.manager, dto.RequestFilter{Search: "family"})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "family visit", resp.Data[0].Reason)

	_, err = svc.List(ctx, f.manager, dto.RequestFilter{Status: "bogus"})
	require.Error(t, err)
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
}

func TestListDateBoundsAndPagination(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()

	_, err := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, f.employee, date(2026, 10, 5), date(2026, 10, 9), "")
	require.NoError(t, err)

	resp, err := svc.List(ctx, f.manager, dto.RequestFilter{From: "2026-10-01"})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "2026-10-05", resp.Data[0].StartDate)

	_, err = svc.List(ctx, f.manager, dto.RequestFilter{From: "10/01/2026"})
	require.Error(t, err)
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))

	resp, err = svc.List(ctx, f.manager, dto.RequestFilter{Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 2, resp.Page)
}

// The ledger law: at every quiescent point, used_days equals the sum of the
// durations of currently approved requests.
func TestLedgerMatchesApprovedSum(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()

	a, _ := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 8), "")   // 2 days
	b, _ := svc.Create(ctx, f.employee, date(2026, 9, 14), date(2026, 9, 16), "") // 3 days
	c, _ := svc.Create(ctx, f.employee, date(2026, 9, 21), date(2026, 9, 21), "") // 1 day

	_, err := svc.Approve(ctx, f.manager, a.ID, "")
	require.NoError(t, err)
	_, err = svc.Reject(ctx, f.manager, b.ID, "")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, f.manager, c.ID, "")
	require.NoError(t, err)

	sum := 0
	for _, r := range f.store.requests {
		if r.Status == model.StatusApproved {
			sum += r.Duration()
		}
	}
	acct, _ := f.accounts.FindByID(ctx, f.employee.AccountID)
	assert.Equal(t, sum, acct.UsedDays)
	assert.Equal(t, 3, acct.UsedDays)
}

func TestSequentialRequestsDrainBalance(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()

	// Approve 18 of 20 days across two requests.
	a, _ := svc.Create(ctx, f.employee, date(2026, 7, 1), date(2026, 7, 10), "") // 10
	_, err := svc.Approve(ctx, f.manager, a.ID, "")
	require.NoError(t, err)
	b, _ := svc.Create(ctx, f.employee, date(2026, 8, 1), date(2026, 8, 8), "") // 8
	_, err = svc.Approve(ctx, f.manager, b.ID, "")
	require.NoError(t, err)

	// 3 more days exceed the remaining 2.
	_, err = svc.Create(ctx, f.employee, date(2026, 9, 1), date(2026, 9, 3), "")
	require.Error(t, err)
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))

	// Exactly 2 days still fit.
	_, err = svc.Create(ctx, f.employee, date(2026, 9, 1), date(2026, 9, 2), "")
	require.NoError(t, err)
}

// An owner edit can commit while the approval is still waiting on the account
// row lock. The approval must then charge the duration of the range it
// actually approves, not the one it read before blocking.
func TestApproveAfterConcurrentEditChargesNewDuration(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()

	created, err := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "") // 5 days
	require.NoError(t, err)

	// The edit lands exactly when the approval acquires the lock, i.e. after
	// the approval already read the request once.
	f.accounts.lockHook = func() {
		f.accounts.lockHook = nil
		r := f.store.requests[created.ID]
		r.StartDate, r.EndDate = date(2026, 9, 7), date(2026, 9, 9) // now 3 days
	}

	resp, err := svc.Approve(ctx, f.manager, created.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "2026-09-09", resp.EndDate)
	assert.Equal(t, 3, resp.Days)

	acct, _ := f.accounts.FindByID(ctx, f.employee.AccountID)
	assert.Equal(t, 3, acct.UsedDays)
}

func TestDecisionTimestampIsSet(t *testing.T) {
	f := newFixture()
	svc := newEngine(f)
	ctx := context.Background()

	created, _ := svc.Create(ctx, f.employee, date(2026, 9, 7), date(2026, 9, 11), "")
	before := time.Now().Add(-time.Second)

	resp, err := svc.Approve(ctx, f.manager, created.ID, "")
	require.NoError(t, err)

	decidedAt, err := time.Parse(time.RFC3339, resp.DecidedAt)
	require.NoError(t, err)
	assert.True(t, decidedAt.After(before))
}
