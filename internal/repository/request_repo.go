package repository

import (
	"context"
	"time"

	"leavedesk/internal/model"

	"gorm.io/gorm"
)

// RequestQuery is the repository-level listing filter. Dates arrive already
// parsed; the handler layer owns the YYYY-MM-DD shape validation.
type RequestQuery struct {
	Status    model.RequestStatus // exact match when non-empty
	Search    string              // case-insensitive substring: requester name OR reason
	AccountID uint                // scope to one account when non-zero
	From      *time.Time          // inclusive lower bound on start_date
	To        *time.Time          // inclusive upper bound on end_date
	Page      int
	Limit     int
}

// StatusCount is one row of the counts-by-status aggregate.
type StatusCount struct {
	Status model.RequestStatus
	Count  int64
}

// MonthCount is one row of the monthly creation histogram.
type MonthCount struct {
	Month string // YYYY-MM
	Count int64
}

// AccountRequestCount is one row of the request-count leaderboard.
type AccountRequestCount struct {
	AccountID uint
	Name      string
	Count     int64
}

// RequestRepository defines the data access contract for vacation requests.
// Status transitions and deletes are conditional writes: they only succeed if
// the stored status still matches the expected precondition, and report the
// affected row count so the engine can turn 0 rows into a ConflictError.
type RequestRepository interface {
	FindByID(ctx context.Context, id uint) (*model.VacationRequest, error)
	List(ctx context.Context, q RequestQuery) ([]model.VacationRequest, int64, error)

	// Used inside transactions, callers must pass the tx instance.
	CreateTx(tx *gorm.DB, r *model.VacationRequest) error
	FindByIDTx(tx *gorm.DB, id uint) (*model.VacationRequest, error)

	// CountOverlappingTx counts pending∪approved requests of the account whose
	// inclusive range intersects [start, end], excluding excludeID (0 = none).
	CountOverlappingTx(tx *gorm.DB, accountID uint, start, end time.Time, excludeID uint) (int64, error)

	// UpdateRangeTx rewrites dates and reason together, only while pending.
	UpdateRangeTx(tx *gorm.DB, id uint, start, end time.Time, reason string) (int64, error)

	// DecideTx moves a pending request to a terminal status and records the
	// decision metadata in the same conditional update.
	DecideTx(tx *gorm.DB, id uint, to model.RequestStatus, decidedBy uint, decidedAt time.Time, note string) (int64, error)

	// DeletePendingTx removes the request only while it is still pending.
	DeletePendingTx(tx *gorm.DB, id uint) (int64, error)

	// Aggregates (read-side, no tx needed)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
	MeanDecisionLatencyHours(ctx context.Context) (*float64, error)
	MonthlyCounts(ctx context.Context, since time.Time) ([]MonthCount, error)
	CountByAccount(ctx context.Context, limit int) ([]AccountRequestCount, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type requestRepo struct{ db *gorm.DB }

func NewRequestRepository(db *gorm.DB) RequestRepository { return &requestRepo{db: db} }

func (r *requestRepo) FindByID(ctx context.Context, id uint) (*model.VacationRequest, error) {
	var req model.VacationRequest
	err := r.db.WithContext(ctx).Preload("Account").First(&req, id).Error
	return &req, err
}

func (r *requestRepo) List(ctx context.Context, q RequestQuery) ([]model.VacationRequest, int64, error) {
	var requests []model.VacationRequest
	var total int64

	dbq := r.db.WithContext(ctx).Model(&model.VacationRequest{}).
		Joins("JOIN accounts ON accounts.id = vacation_requests.account_id")

	if q.Status != "" {
		dbq = dbq.Where("vacation_requests.status = ?", q.Status)
	}
	if q.AccountID != 0 {
		dbq = dbq.Where("vacation_requests.account_id = ?", q.AccountID)
	}
	if q.Search != "" {
		// OR across requester name and reason, not AND
		pattern := "%" + q.Search + "%"
		dbq = dbq.Where("accounts.name ILIKE ? OR vacation_requests.reason ILIKE ?", pattern, pattern)
	}
	if q.From != nil {
		dbq = dbq.Where("vacation_requests.start_date >= ?", *q.From)
	}
	if q.To != nil {
		dbq = dbq.Where("vacation_requests.end_date <= ?", *q.To)
	}

	if err := dbq.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (q.Page - 1) * q.Limit
	err := dbq.Preload("Account").
		Order("vacation_requests.created_at DESC, vacation_requests.id DESC").
		Limit(q.Limit).Offset(offset).
		Find(&requests).Error
	return requests, total, err
}

func (r *requestRepo) CreateTx(tx *gorm.DB, req *model.VacationRequest) error {
	return tx.Create(req).Error
}

func (r *requestRepo) FindByIDTx(tx *gorm.DB, id uint) (*model.VacationRequest, error) {
	var req model.VacationRequest
	err := tx.First(&req, id).Error
	return &req, err
}

func (r *requestRepo) CountOverlappingTx(tx *gorm.DB, accountID uint, start, end time.Time, excludeID uint) (int64, error) {
	var n int64
	q := tx.Model(&model.VacationRequest{}).
		Where("account_id = ?", accountID).
		Where("status IN ?", []model.RequestStatus{model.StatusPending, model.StatusApproved}).
		// inclusive-endpoint interval test: s1 <= e2 AND s2 <= e1
		Where("start_date <= ? AND ? <= end_date", end, start)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&n).Error
	return n, err
}

func (r *requestRepo) UpdateRangeTx(tx *gorm.DB, id uint, start, end time.Time, reason string) (int64, error) {
	res := tx.Model(&model.VacationRequest{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{
			"start_date": start,
			"end_date":   end,
			"reason":     reason,
		})
	return res.RowsAffected, res.Error
}

func (r *requestRepo) DecideTx(tx *gorm.DB, id uint, to model.RequestStatus, decidedBy uint, decidedAt time.Time, note string) (int64, error) {
	res := tx.Model(&model.VacationRequest{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{
			"status":       to,
			"decided_by":   decidedBy,
			"decided_at":   decidedAt,
			"manager_note": note,
		})
	return res.RowsAffected, res.Error
}

func (r *requestRepo) DeletePendingTx(tx *gorm.DB, id uint) (int64, error) {
	res := tx.Where("id = ? AND status = ?", id, model.StatusPending).
		Delete(&model.VacationRequest{})
	return res.RowsAffected, res.Error
}

func (r *requestRepo) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).Model(&model.VacationRequest{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	return rows, err
}

func (r *requestRepo) MeanDecisionLatencyHours(ctx context.Context) (*float64, error) {
	// Only decided requests count; undecided ones are excluded, not zero.
	var mean *float64
	err := r.db.WithContext(ctx).Model(&model.VacationRequest{}).
		Select("AVG(EXTRACT(EPOCH FROM decided_at - created_at) / 3600.0)").
		Where("decided_at IS NOT NULL").
		Scan(&mean).Error
	return mean, err
}

func (r *requestRepo) MonthlyCounts(ctx context.Context, since time.Time) ([]MonthCount, error) {
	var rows []MonthCount
	err := r.db.WithContext(ctx).Model(&model.VacationRequest{}).
		Select("to_char(created_at, 'YYYY-MM') AS month, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("month").
		Order("month ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *requestRepo) CountByAccount(ctx context.Context, limit int) ([]AccountRequestCount, error) {
	var rows []AccountRequestCount
	err := r.db.WithContext(ctx).Model(&model.VacationRequest{}).
		Select("vacation_requests.account_id AS account_id, accounts.name AS name, COUNT(*) AS count").
		Joins("JOIN accounts ON accounts.id = vacation_requests.account_id").
		Group("vacation_requests.account_id, accounts.name").
		Order("count DESC, account_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *requestRepo) DB() *gorm.DB { return r.db }
