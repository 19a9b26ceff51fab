package service

import (
	"context"
	"fmt"
	"math/rand"

	"leavedesk/internal/apierror"
	"leavedesk/internal/config"
	"leavedesk/internal/dto"
	"leavedesk/internal/model"
	"leavedesk/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

type AccountService interface {
	Create(ctx context.Context, p Principal, req dto.CreateAccountRequest) (*dto.AccountResponse, error)
	Get(ctx context.Context, p Principal, id uint) (*dto.AccountResponse, error)
	Me(ctx context.Context, p Principal) (*dto.AccountResponse, error)
	List(ctx context.Context, p Principal) ([]dto.AccountResponse, error)
	Update(ctx context.Context, p Principal, id uint, req dto.UpdateAccountRequest) (*dto.AccountResponse, error)
	Delete(ctx context.Context, p Principal, id uint) error
	RecomputeUsedDays(ctx context.Context, p Principal, id uint) (*dto.AccountResponse, error)
}

type accountService struct {
	accounts repository.AccountRepository
	cfg      *config.Config
}

func NewAccountService(accounts repository.AccountRepository, cfg *config.Config) AccountService {
	return &accountService{accounts: accounts, cfg: cfg}
}

func (s *accountService) Create(ctx context.Context, p Principal, req dto.CreateAccountRequest) (*dto.AccountResponse, error) {
	if !p.IsManager() {
		return nil, apierror.Authorization("only managers can create accounts")
	}
	if _, err := s.accounts.FindByEmail(ctx, req.Email); err == nil {
		return nil, apierror.Validation("email already in use")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		return nil, err
	}
	code, err := s.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	total := s.cfg.DefaultVacationDays
	if req.TotalDays > 0 {
		total = req.TotalDays
	}
	acct := &model.Account{
		Email:        req.Email,
		Code:         code,
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         req.Role, // fixed at creation, no promotion path exists
		TotalDays:    total,
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		return nil, err
	}
	return toAccountResponse(acct), nil
}

// generateCode draws random 7-digit codes until one is free. The unique index
// on accounts.code is the backstop for the (tiny) race window.
func (s *accountService) generateCode(ctx context.Context) (string, error) {
	for i := 0; i < 10; i++ {
		code := fmt.Sprintf("%07d", rand.Intn(9000000)+1000000)
		if _, err := s.accounts.FindByCode(ctx, code); err != nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique account code")
}

func (s *accountService) Get(ctx context.Context, p Principal, id uint) (*dto.AccountResponse, error) {
	if !p.IsManager() && p.AccountID != id {
		return nil, apierror.Authorization("you can only view your own account")
	}
	acct, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "account not found")
	}
	return toAccountResponse(acct), nil
}

func (s *accountService) Me(ctx context.Context, p Principal) (*dto.AccountResponse, error) {
	acct, err := s.accounts.FindByID(ctx, p.AccountID)
	if err != nil {
		return nil, notFound(err, "account not found")
	}
	return toAccountResponse(acct), nil
}

func (s *accountService) List(ctx context.Context, p Principal) ([]dto.AccountResponse, error) {
	if !p.IsManager() {
		return nil, apierror.Authorization("only managers can list accounts")
	}
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.AccountResponse, len(accounts))
	for i := range accounts {
		resp[i] = *toAccountResponse(&accounts[i])
	}
	return resp, nil
}

func (s *accountService) Update(ctx context.Context, p Principal, id uint, req dto.UpdateAccountRequest) (*dto.AccountResponse, error) {
	if !p.IsManager() && p.AccountID != id {
		return nil, apierror.Authorization("you can only update your own account")
	}
	acct, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "account not found")
	}

	if req.Name != "" {
		acct.Name = req.Name
	}
	if req.Email != "" && req.Email != acct.Email {
		if _, err := s.accounts.FindByEmail(ctx, req.Email); err == nil {
			return nil, apierror.Validation("email already in use")
		}
		acct.Email = req.Email
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
		if err != nil {
			return nil, err
		}
		acct.PasswordHash = string(hash)
	}
	if req.TotalDays != nil {
		if !p.IsManager() {
			return nil, apierror.Authorization("only managers can change the entitlement")
		}
		if *req.TotalDays < acct.UsedDays {
			return nil, apierror.Validation(fmt.Sprintf(
				"entitlement cannot drop below the %d days already used", acct.UsedDays))
		}
		acct.TotalDays = *req.TotalDays
	}

	if err := s.accounts.Update(ctx, acct); err != nil {
		return nil, err
	}
	return toAccountResponse(acct), nil
}

func (s *accountService) Delete(ctx context.Context, p Principal, id uint) error {
	if !p.IsManager() {
		return apierror.Authorization("only managers can delete accounts")
	}
	if _, err := s.accounts.FindByID(ctx, id); err != nil {
		return notFound(err, "account not found")
	}
	// FK cascade removes the account's requests with it.
	return s.accounts.Delete(ctx, id)
}

// RecomputeUsedDays is the repair tool for pre-existing data: it rebuilds the
// ledger from the approved requests. Normal request processing never calls it.
func (s *accountService) RecomputeUsedDays(ctx context.Context, p Principal, id uint) (*dto.AccountResponse, error) {
	if !p.IsManager() {
		return nil, apierror.Authorization("only managers can recompute balances")
	}
	if _, err := s.accounts.FindByID(ctx, id); err != nil {
		return nil, notFound(err, "account not found")
	}
	if err := s.accounts.RecomputeUsedDays(ctx, id); err != nil {
		return nil, err
	}
	acct, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toAccountResponse(acct), nil
}

func toAccountResponse(a *model.Account) *dto.AccountResponse {
	return &dto.AccountResponse{
		ID:            a.ID,
		Email:         a.Email,
		Code:          a.Code,
		Name:          a.Name,
		Role:          a.Role,
		TotalDays:     a.TotalDays,
		UsedDays:      a.UsedDays,
		RemainingDays: a.RemainingDays(),
		Utilization:   a.Utilization(),
	}
}
