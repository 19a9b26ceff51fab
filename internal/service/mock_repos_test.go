package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"leavedesk/internal/model"
	"leavedesk/internal/repository"

	"gorm.io/gorm"
)

// In-memory repositories backing the service unit tests. They share one store
// so cross-entity behavior (preloads, recompute) works without a database.
// All Tx methods accept the nil tx that runTx passes in unit-test mode.

type memStore struct {
	accounts      map[uint]*model.Account
	requests      map[uint]*model.VacationRequest
	nextAccountID uint
	nextRequestID uint
}

func newMemStore() *memStore {
	return &memStore{
		accounts:      make(map[uint]*model.Account),
		requests:      make(map[uint]*model.VacationRequest),
		nextAccountID: 1,
		nextRequestID: 1,
	}
}

// ── Account repository ────────────────────────────────────────────────────────

type mockAccountRepo struct {
	store *memStore

	// lockHook, when set, runs at the point where the row lock is granted.
	// Tests use it to interleave work that committed while the caller was
	// waiting on the lock.
	lockHook func()
}

var _ repository.AccountRepository = (*mockAccountRepo)(nil)

func (m *mockAccountRepo) Create(_ context.Context, a *model.Account) error {
	a.ID = m.store.nextAccountID
	m.store.nextAccountID++
	cp := *a
	m.store.accounts[a.ID] = &cp
	return nil
}

func (m *mockAccountRepo) FindByID(_ context.Context, id uint) (*model.Account, error) {
	return m.findAccount(id)
}

func (m *mockAccountRepo) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	for _, a := range m.store.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAccountRepo) FindByCode(_ context.Context, code string) (*model.Account, error) {
	for _, a := range m.store.accounts {
		if a.Code == code {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAccountRepo) List(_ context.Context) ([]model.Account, error) {
	out := make([]model.Account, 0, len(m.store.accounts))
	for _, a := range m.store.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockAccountRepo) Update(_ context.Context, a *model.Account) error {
	if _, ok := m.store.accounts[a.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *a
	m.store.accounts[a.ID] = &cp
	return nil
}

func (m *mockAccountRepo) Delete(_ context.Context, id uint) error {
	delete(m.store.accounts, id)
	for rid, r := range m.store.requests {
		if r.AccountID == id {
			delete(m.store.requests, rid)
		}
	}
	return nil
}

func (m *mockAccountRepo) FindForUpdateTx(_ *gorm.DB, id uint) (*model.Account, error) {
	if m.lockHook != nil {
		m.lockHook()
	}
	return m.findAccount(id)
}

func (m *mockAccountRepo) AddUsedDaysTx(_ *gorm.DB, id uint, delta int) error {
	a, ok := m.store.accounts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	next := a.UsedDays + delta
	if next < 0 || next > a.TotalDays {
		return gorm.ErrCheckConstraintViolated
	}
	a.UsedDays = next
	return nil
}

func (m *mockAccountRepo) RecomputeUsedDays(_ context.Context, id uint) error {
	a, ok := m.store.accounts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	sum := 0
	for _, r := range m.store.requests {
		if r.AccountID == id && r.Status == model.StatusApproved {
			sum += r.Duration()
		}
	}
	a.UsedDays = sum
	return nil
}

func (m *mockAccountRepo) DB() *gorm.DB { return nil }

func (m *mockAccountRepo) findAccount(id uint) (*model.Account, error) {
	a, ok := m.store.accounts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

// ── Request repository ────────────────────────────────────────────────────────

type mockRequestRepo struct{ store *memStore }

var _ repository.RequestRepository = (*mockRequestRepo)(nil)

func (m *mockRequestRepo) FindByID(_ context.Context, id uint) (*model.VacationRequest, error) {
	r, ok := m.store.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	if acct, ok := m.store.accounts[r.AccountID]; ok {
		acp := *acct
		cp.Account = &acp
	}
	return &cp, nil
}

func (m *mockRequestRepo) List(_ context.Context, q repository.RequestQuery) ([]model.VacationRequest, int64, error) {
	matched := make([]model.VacationRequest, 0)
	for _, r := range m.store.requests {
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		if q.AccountID != 0 && r.AccountID != q.AccountID {
			continue
		}
		if q.From != nil && r.StartDate.Before(*q.From) {
			continue
		}
		if q.To != nil && r.EndDate.After(*q.To) {
			continue
		}
		if q.Search != "" {
			needle := strings.ToLower(q.Search)
			name := ""
			if acct, ok := m.store.accounts[r.AccountID]; ok {
				name = strings.ToLower(acct.Name)
			}
			if !strings.Contains(name, needle) && !strings.Contains(strings.ToLower(r.Reason), needle) {
				continue
			}
		}
		cp := *r
		if acct, ok := m.store.accounts[r.AccountID]; ok {
			acp := *acct
			cp.Account = &acp
		}
		matched = append(matched, cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := (q.Page - 1) * q.Limit
	if start >= len(matched) {
		return []model.VacationRequest{}, total, nil
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *mockRequestRepo) CreateTx(_ *gorm.DB, r *model.VacationRequest) error {
	r.ID = m.store.nextRequestID
	m.store.nextRequestID++
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	cp := *r
	m.store.requests[r.ID] = &cp
	return nil
}

func (m *mockRequestRepo) FindByIDTx(_ *gorm.DB, id uint) (*model.VacationRequest, error) {
	r, ok := m.store.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRequestRepo) CountOverlappingTx(_ *gorm.DB, accountID uint, start, end time.Time, excludeID uint) (int64, error) {
	var n int64
	for _, r := range m.store.requests {
		if r.AccountID != accountID || r.ID == excludeID {
			continue
		}
		if r.Status != model.StatusPending && r.Status != model.StatusApproved {
			continue
		}
		if model.Overlaps(r.StartDate, r.EndDate, start, end) {
			n++
		}
	}
	return n, nil
}

func (m *mockRequestRepo) UpdateRangeTx(_ *gorm.DB, id uint, start, end time.Time, reason string) (int64, error) {
	r, ok := m.store.requests[id]
	if !ok || r.Status != model.StatusPending {
		return 0, nil
	}
	r.StartDate, r.EndDate, r.Reason = start, end, reason
	return 1, nil
}

func (m *mockRequestRepo) DecideTx(_ *gorm.DB, id uint, to model.RequestStatus, decidedBy uint, decidedAt time.Time, note string) (int64, error) {
	r, ok := m.store.requests[id]
	if !ok || r.Status != model.StatusPending {
		return 0, nil
	}
	r.Status = to
	r.DecidedBy = &decidedBy
	r.DecidedAt = &decidedAt
	r.ManagerNote = note
	return 1, nil
}

func (m *mockRequestRepo) DeletePendingTx(_ *gorm.DB, id uint) (int64, error) {
	r, ok := m.store.requests[id]
	if !ok || r.Status != model.StatusPending {
		return 0, nil
	}
	delete(m.store.requests, r.ID)
	return 1, nil
}

func (m *mockRequestRepo) CountByStatus(_ context.Context) ([]repository.StatusCount, error) {
	counts := make(map[model.RequestStatus]int64)
	for _, r := range m.store.requests {
		counts[r.Status]++
	}
	out := make([]repository.StatusCount, 0, len(counts))
	for st, n := range counts {
		out = append(out, repository.StatusCount{Status: st, Count: n})
	}
	return out, nil
}

func (m *mockRequestRepo) MeanDecisionLatencyHours(_ context.Context) (*float64, error) {
	var sum float64
	var n int
	for _, r := range m.store.requests {
		if r.DecidedAt != nil {
			sum += r.DecidedAt.Sub(r.CreatedAt).Hours()
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	mean := sum / float64(n)
	return &mean, nil
}

func (m *mockRequestRepo) MonthlyCounts(_ context.Context, since time.Time) ([]repository.MonthCount, error) {
	counts := make(map[string]int64)
	for _, r := range m.store.requests {
		if r.CreatedAt.Before(since) {
			continue
		}
		counts[r.CreatedAt.Format("2006-01")]++
	}
	months := make([]string, 0, len(counts))
	for mo := range counts {
		months = append(months, mo)
	}
	sort.Strings(months)
	out := make([]repository.MonthCount, 0, len(months))
	for _, mo := range months {
		out = append(out, repository.MonthCount{Month: mo, Count: counts[mo]})
	}
	return out, nil
}

func (m *mockRequestRepo) CountByAccount(_ context.Context, limit int) ([]repository.AccountRequestCount, error) {
	counts := make(map[uint]int64)
	for _, r := range m.store.requests {
		counts[r.AccountID]++
	}
	out := make([]repository.AccountRequestCount, 0, len(counts))
	for id, n := range counts {
		name := ""
		if acct, ok := m.store.accounts[id]; ok {
			name = acct.Name
		}
		out = append(out, repository.AccountRequestCount{AccountID: id, Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].AccountID < out[j].AccountID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockRequestRepo) DB() *gorm.DB { return nil }

// ── Test fixture ──────────────────────────────────────────────────────────────

type fixture struct {
	store    *memStore
	accounts *mockAccountRepo
	requests *mockRequestRepo
	manager  Principal
	employee Principal
}

// newFixture seeds one manager and one employee with a 20-day entitlement.
func newFixture() *fixture {
	store := newMemStore()
	f := &fixture{
		store:    store,
		accounts: &mockAccountRepo{store: store},
		requests: &mockRequestRepo{store: store},
	}

	mgr := &model.Account{Email: "boss@example.com", Code: "1000001", Name: "Maria Boss", Role: model.RoleManager, TotalDays: 20}
	emp := &model.Account{Email: "dev@example.com", Code: "1000002", Name: "Devin Sample", Role: model.RoleEmployee, TotalDays: 20}
	_ = f.accounts.Create(context.Background(), mgr)
	_ = f.accounts.Create(context.Background(), emp)

	f.manager = Principal{AccountID: mgr.ID, Role: model.RoleManager}
	f.employee = Principal{AccountID: emp.ID, Role: model.RoleEmployee}
	return f
}

// addEmployee seeds another employee account and returns its principal.
func (f *fixture) addEmployee(email, name string) Principal {
	a := &model.Account{Email: email, Code: "", Name: name, Role: model.RoleEmployee, TotalDays: 20}
	_ = f.accounts.Create(context.Background(), a)
	return Principal{AccountID: a.ID, Role: model.RoleEmployee}
}

// date builds a UTC calendar date, the same shape Postgres hands back for
// type:date columns.
func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
