package repository

import (
	"context"

	"leavedesk/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountRepository defines the data access contract for accounts.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via mocks.
type AccountRepository interface {
	Create(ctx context.Context, a *model.Account) error
	FindByID(ctx context.Context, id uint) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindByCode(ctx context.Context, code string) (*model.Account, error)
	List(ctx context.Context) ([]model.Account, error)
	Update(ctx context.Context, a *model.Account) error
	// Delete removes the account; requests go with it via the FK cascade.
	Delete(ctx context.Context, id uint) error

	// Used inside transactions, callers must pass the tx instance.

	// FindForUpdateTx locks the account row FOR UPDATE. This is the
	// per-account serialization point for every check-then-write sequence.
	FindForUpdateTx(tx *gorm.DB, id uint) (*model.Account, error)

	// AddUsedDaysTx applies a ledger delta; the valid_vacation_days CHECK
	// constraint rejects any update that would leave used_days outside
	// [0, total_days].
	AddUsedDaysTx(tx *gorm.DB, id uint, delta int) error

	// RecomputeUsedDays rebuilds used_days from the approved requests.
	// Repair/backfill only, never part of normal request processing.
	RecomputeUsedDays(ctx context.Context, id uint) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type accountRepo struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) AccountRepository { return &accountRepo{db: db} }

func (r *accountRepo) Create(ctx context.Context, a *model.Account) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *accountRepo) FindByID(ctx context.Context, id uint) (*model.Account, error) {
	var a model.Account
	err := r.db.WithContext(ctx).First(&a, id).Error
	return &a, err
}

func (r *accountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	var a model.Account
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&a).Error
	return &a, err
}

func (r *accountRepo) FindByCode(ctx context.Context, code string) (*model.Account, error) {
	var a model.Account
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&a).Error
	return &a, err
}

func (r *accountRepo) List(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	err := r.db.WithContext(ctx).Order("id ASC").Find(&accounts).Error
	return accounts, err
}

func (r *accountRepo) Update(ctx context.Context, a *model.Account) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *accountRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Account{}, id).Error
}

func (r *accountRepo) FindForUpdateTx(tx *gorm.DB, id uint) (*model.Account, error) {
	var a model.Account
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&a, id).Error
	return &a, err
}

func (r *accountRepo) AddUsedDaysTx(tx *gorm.DB, id uint, delta int) error {
	return tx.Model(&model.Account{}).Where("id = ?", id).
		Update("used_days", gorm.Expr("used_days + ?", delta)).Error
}

func (r *accountRepo) RecomputeUsedDays(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE accounts SET used_days = COALESCE((
			SELECT SUM(end_date::date - start_date::date + 1)
			FROM vacation_requests
			WHERE account_id = accounts.id AND status = 'approved'
		), 0)
		WHERE id = ?`, id).Error
}

func (r *accountRepo) DB() *gorm.DB { return r.db }
