package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leavedesk/internal/apierror"
	"leavedesk/internal/dto"
	"leavedesk/internal/model"
	"leavedesk/internal/repository"
	"leavedesk/internal/worker"

	"gorm.io/gorm"
)

// Principal is the authenticated caller handed in by the auth middleware.
// The engine trusts it completely and only enforces role/ownership rules.
type Principal struct {
	AccountID uint
	Role      string
}

func (p Principal) IsManager() bool { return p.Role == model.RoleManager }

// RequestService is the workflow engine: it decides admissibility of date
// ranges, drives the pending→approved|rejected state machine and keeps the
// used-days ledger consistent with the set of approved requests. Every
// mutation runs inside a single transaction that holds the owner account's
// row lock for the whole check-then-write sequence, so two racing operations
// on the same account serialize instead of both passing their checks.
type RequestService interface {
	Create(ctx context.Context, p Principal, start, end time.Time, reason string) (*dto.VacationResponse, error)
	Update(ctx context.Context, p Principal, id uint, start, end time.Time, reason string) (*dto.VacationResponse, error)
	Approve(ctx context.Context, p Principal, id uint, note string) (*dto.VacationResponse, error)
	Reject(ctx context.Context, p Principal, id uint, note string) (*dto.VacationResponse, error)
	Delete(ctx context.Context, p Principal, id uint) error
	Get(ctx context.Context, p Principal, id uint) (*dto.VacationResponse, error)
	List(ctx context.Context, p Principal, filter dto.RequestFilter) (*dto.VacationListResponse, error)
}

type requestService struct {
	requests   repository.RequestRepository
	accounts   repository.AccountRepository
	dispatcher *worker.Dispatcher
}

func NewRequestService(
	requests repository.RequestRepository,
	accounts repository.AccountRepository,
	dispatcher *worker.Dispatcher,
) RequestService {
	return &requestService{requests: requests, accounts: accounts, dispatcher: dispatcher}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// notFound converts gorm's record-not-found into the engine taxonomy and
// passes every other error through untouched.
func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound(msg)
	}
	return err
}

// ── Create ───────────────────────────────────────────────────────────────────

func (s *requestService) Create(ctx context.Context, p Principal, start, end time.Time, reason string) (*dto.VacationResponse, error) {
	if p.Role != model.RoleEmployee {
		return nil, apierror.Authorization("only employees can create vacation requests")
	}
	if end.Before(start) {
		return nil, apierror.Validation("end_date must not be before start_date")
	}
	days := model.DaysInclusive(start, end)

	var created model.VacationRequest
	txErr := runTx(ctx, s.requests.DB(), func(tx *gorm.DB) error {
		acct, err := s.accounts.FindForUpdateTx(tx, p.AccountID)
		if err != nil {
			return notFound(err, "account not found")
		}
		if err := s.checkBalance(acct, days); err != nil {
			return err
		}
		if err := s.checkOverlap(tx, p.AccountID, start, end, 0); err != nil {
			return err
		}
		created = model.VacationRequest{
			AccountID: p.AccountID,
			StartDate: start,
			EndDate:   end,
			Reason:    reason,
			Status:    model.StatusPending,
		}
		return s.requests.CreateTx(tx, &created)
	})
	if txErr != nil {
		return nil, txErr
	}
	return toVacationResponse(&created, ""), nil
}

// ── Edit (pending only, owner only) ──────────────────────────────────────────

func (s *requestService) Update(ctx context.Context, p Principal, id uint, start, end time.Time, reason string) (*dto.VacationResponse, error) {
	if end.Before(start) {
		return nil, apierror.Validation("end_date must not be before start_date")
	}
	days := model.DaysInclusive(start, end)

	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "request not found")
	}
	if req.AccountID != p.AccountID {
		return nil, apierror.Authorization("you can only edit your own requests")
	}
	if req.Status.Terminal() {
		return nil, apierror.Conflict("only pending requests can be modified")
	}

	txErr := runTx(ctx, s.requests.DB(), func(tx *gorm.DB) error {
		acct, err := s.accounts.FindForUpdateTx(tx, p.AccountID)
		if err != nil {
			return notFound(err, "account not found")
		}
		if err := s.checkBalance(acct, days); err != nil {
			return err
		}
		// The candidate's own id is excluded from the comparison set.
		if err := s.checkOverlap(tx, p.AccountID, start, end, id); err != nil {
			return err
		}
		// Dates and reason are applied together or not at all.
		n, err := s.requests.UpdateRangeTx(tx, id, start, end, reason)
		if err != nil {
			return err
		}
		if n == 0 {
			return apierror.Conflict("only pending requests can be modified")
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	req.StartDate, req.EndDate, req.Reason = start, end, reason
	return toVacationResponse(req, accountName(req)), nil
}

// ── Decisions ────────────────────────────────────────────────────────────────

func (s *requestService) Approve(ctx context.Context, p Principal, id uint, note string) (*dto.VacationResponse, error) {
	return s.decide(ctx, p, id, model.StatusApproved, note)
}

func (s *requestService) Reject(ctx context.Context, p Principal, id uint, note string) (*dto.VacationResponse, error) {
	return s.decide(ctx, p, id, model.StatusRejected, note)
}

// decide drives the state machine. Approval increments the owner's used-days
// ledger in the same transaction as the status flip; rejection touches no
// balance. Balance is NOT re-checked at decision time: the gate ran at
// creation/edit time, and the valid_vacation_days CHECK constraint backstops
// the increment.
func (s *requestService) decide(ctx context.Context, p Principal, id uint, to model.RequestStatus, note string) (*dto.VacationResponse, error) {
	if !p.IsManager() {
		return nil, apierror.Authorization("only managers can decide requests")
	}

	var req *model.VacationRequest
	now := time.Now()
	txErr := runTx(ctx, s.requests.DB(), func(tx *gorm.DB) error {
		var err error
		req, err = s.requests.FindByIDTx(tx, id)
		if err != nil {
			return notFound(err, "request not found")
		}
		if to == model.StatusApproved {
			// Serialize against concurrent creations/edits on the same account.
			if _, err := s.accounts.FindForUpdateTx(tx, req.AccountID); err != nil {
				return notFound(err, "account not found")
			}
			// Reload after acquiring the lock: an edit that committed while we
			// waited on the row may have changed the dates, and the ledger
			// increment must charge the range that actually gets approved.
			req, err = s.requests.FindByIDTx(tx, id)
			if err != nil {
				return notFound(err, "request not found")
			}
		}
		if _, err := req.Status.Transition(to); err != nil {
			return err
		}
		n, err := s.requests.DecideTx(tx, id, to, p.AccountID, now, note)
		if err != nil {
			return err
		}
		if n == 0 {
			return apierror.Conflict("only pending requests can be decided")
		}
		if to == model.StatusApproved {
			if err := s.accounts.AddUsedDaysTx(tx, req.AccountID, req.Duration()); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	req.Status = to
	req.DecidedBy = &p.AccountID
	req.DecidedAt = &now
	req.ManagerNote = note

	s.notifyDecision(ctx, req)

	return toVacationResponse(req, accountName(req)), nil
}

// notifyDecision enqueues the owner's notification email. Best effort: a
// queue failure never rolls back the decision.
func (s *requestService) notifyDecision(ctx context.Context, req *model.VacationRequest) {
	if s.dispatcher == nil {
		return
	}
	owner, err := s.accounts.FindByID(ctx, req.AccountID)
	if err != nil {
		return
	}
	verdict := "approved"
	if req.Status == model.StatusRejected {
		verdict = "rejected"
	}
	body := fmt.Sprintf("Hi %s,\n\nyour vacation request %s..%s has been %s.",
		owner.Name,
		req.StartDate.Format(time.DateOnly),
		req.EndDate.Format(time.DateOnly),
		verdict)
	if req.ManagerNote != "" {
		body += "\n\nNote from your manager: " + req.ManagerNote
	}
	_ = s.dispatcher.EnqueueEmail(ctx, worker.EmailJobPayload{
		ToEmail: owner.Email,
		Subject: "Vacation request " + verdict,
		Body:    body,
	})
}

// ── Delete (pending only; owner or manager) ──────────────────────────────────

func (s *requestService) Delete(ctx context.Context, p Principal, id uint) error {
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "request not found")
	}
	if !p.IsManager() && req.AccountID != p.AccountID {
		return apierror.Authorization("you can only delete your own requests")
	}

	return runTx(ctx, s.requests.DB(), func(tx *gorm.DB) error {
		n, err := s.requests.DeletePendingTx(tx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			// Nothing was ever added to the ledger while pending, so a delete
			// never touches the balance. A decided request stays.
			return apierror.Conflict("only pending requests can be deleted")
		}
		return nil
	})
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *requestService) Get(ctx context.Context, p Principal, id uint) (*dto.VacationResponse, error) {
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "request not found")
	}
	if !p.IsManager() && req.AccountID != p.AccountID {
		return nil, apierror.Authorization("you can only view your own requests")
	}
	return toVacationResponse(req, accountName(req)), nil
}

func (s *requestService) List(ctx context.Context, p Principal, filter dto.RequestFilter) (*dto.VacationListResponse, error) {
	q, err := buildRequestQuery(p, filter)
	if err != nil {
		return nil, err
	}

	requests, total, err := s.requests.List(ctx, q)
	if err != nil {
		return nil, err
	}
	items := make([]dto.VacationResponse, 0, len(requests))
	for i := range requests {
		items = append(items, *toVacationResponse(&requests[i], accountName(&requests[i])))
	}
	return &dto.VacationListResponse{
		Data:  items,
		Total: total,
		Page:  q.Page,
		Limit: q.Limit,
	}, nil
}

// buildRequestQuery translates the wire filter into the repository query and
// applies the caller's visibility scope: employees always see only their own
// requests, whatever account_id they ask for.
func buildRequestQuery(p Principal, filter dto.RequestFilter) (repository.RequestQuery, error) {
	q := repository.RequestQuery{
		Search:    filter.Search,
		AccountID: filter.AccountID,
		Page:      filter.Page,
		Limit:     filter.Limit,
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 200 {
		q.Limit = 50
	}
	if !p.IsManager() {
		q.AccountID = p.AccountID
	}

	if filter.Status != "" {
		switch st := model.RequestStatus(filter.Status); st {
		case model.StatusPending, model.StatusApproved, model.StatusRejected:
			q.Status = st
		default:
			return q, apierror.Validation("unknown status filter: " + filter.Status)
		}
	}

	var err error
	if q.From, err = parseDateBound(filter.From); err != nil {
		return q, err
	}
	if q.To, err = parseDateBound(filter.To); err != nil {
		return q, err
	}
	return q, nil
}

func parseDateBound(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, apierror.Validation("date bounds must be YYYY-MM-DD")
	}
	return &t, nil
}

// ── Eligibility checks (pure reads on the tx snapshot) ───────────────────────

func (s *requestService) checkBalance(acct *model.Account, daysNeeded int) error {
	if daysNeeded > acct.RemainingDays() {
		return apierror.Validation(fmt.Sprintf(
			"insufficient balance: %d days requested, %d remaining", daysNeeded, acct.RemainingDays()))
	}
	return nil
}

func (s *requestService) checkOverlap(tx *gorm.DB, accountID uint, start, end time.Time, excludeID uint) error {
	n, err := s.requests.CountOverlappingTx(tx, accountID, start, end, excludeID)
	if err != nil {
		return err
	}
	if n > 0 {
		return apierror.Validation("requested range overlaps an existing pending or approved request")
	}
	return nil
}

// ── Mapping ──────────────────────────────────────────────────────────────────

func accountName(req *model.VacationRequest) string {
	if req.Account != nil {
		return req.Account.Name
	}
	return ""
}

func toVacationResponse(r *model.VacationRequest, name string) *dto.VacationResponse {
	resp := &dto.VacationResponse{
		ID:          r.ID,
		AccountID:   r.AccountID,
		AccountName: name,
		StartDate:   r.StartDate.Format(time.DateOnly),
		EndDate:     r.EndDate.Format(time.DateOnly),
		Days:        r.Duration(),
		Reason:      r.Reason,
		Status:      string(r.Status),
		DecidedBy:   r.DecidedBy,
		ManagerNote: r.ManagerNote,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
	if r.DecidedAt != nil {
		resp.DecidedAt = r.DecidedAt.Format(time.RFC3339)
	}
	return resp
}
