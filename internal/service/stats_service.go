package service

import (
	"context"
	"time"

	"leavedesk/internal/apierror"
	"leavedesk/internal/dto"
	"leavedesk/internal/model"
	"leavedesk/internal/repository"
)

type StatsService interface {
	Overview(ctx context.Context, p Principal) (*dto.OverviewResponse, error)
	Monthly(ctx context.Context, p Principal) ([]dto.MonthlyCount, error)
	Utilization(ctx context.Context, p Principal) ([]dto.UtilizationEntry, error)
	Leaderboard(ctx context.Context, p Principal, limit int) ([]dto.LeaderboardEntry, error)
}

type statsService struct {
	requests repository.RequestRepository
	accounts repository.AccountRepository
	now      func() time.Time
}

func NewStatsService(requests repository.RequestRepository, accounts repository.AccountRepository) StatsService {
	return &statsService{requests: requests, accounts: accounts, now: time.Now}
}

func (s *statsService) Overview(ctx context.Context, p Principal) (*dto.OverviewResponse, error) {
	if !p.IsManager() {
		return nil, apierror.Authorization("statistics are restricted to managers")
	}

	rows, err := s.requests.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	// Every status is present in the response, zero or not.
	counts := map[string]int64{
		string(model.StatusPending):  0,
		string(model.StatusApproved): 0,
		string(model.StatusRejected): 0,
	}
	for _, row := range rows {
		counts[string(row.Status)] = row.Count
	}

	mean, err := s.requests.MeanDecisionLatencyHours(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.OverviewResponse{
		CountsByStatus:    counts,
		MeanDecisionHours: mean,
	}, nil
}

// Monthly returns the trailing 12 calendar months (current month included),
// zero-filled so the dashboard never has to guess at missing buckets.
func (s *statsService) Monthly(ctx context.Context, p Principal) ([]dto.MonthlyCount, error) {
	if !p.IsManager() {
		return nil, apierror.Authorization("statistics are restricted to managers")
	}

	now := s.now().UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)

	rows, err := s.requests.MonthlyCounts(ctx, first)
	if err != nil {
		return nil, err
	}
	byMonth := make(map[string]int64, len(rows))
	for _, row := range rows {
		byMonth[row.Month] = row.Count
	}

	out := make([]dto.MonthlyCount, 0, 12)
	for i := 0; i < 12; i++ {
		month := first.AddDate(0, i, 0).Format("2006-01")
		out = append(out, dto.MonthlyCount{Month: month, Count: byMonth[month]})
	}
	return out, nil
}

func (s *statsService) Utilization(ctx context.Context, p Principal) ([]dto.UtilizationEntry, error) {
	if !p.IsManager() {
		return nil, apierror.Authorization("statistics are restricted to managers")
	}

	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UtilizationEntry, len(accounts))
	for i, a := range accounts {
		out[i] = dto.UtilizationEntry{
			AccountID:   a.ID,
			Name:        a.Name,
			TotalDays:   a.TotalDays,
			UsedDays:    a.UsedDays,
			Utilization: a.Utilization(),
		}
	}
	return out, nil
}

func (s *statsService) Leaderboard(ctx context.Context, p Principal, limit int) ([]dto.LeaderboardEntry, error) {
	if !p.IsManager() {
		return nil, apierror.Authorization("statistics are restricted to managers")
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	rows, err := s.requests.CountByAccount(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LeaderboardEntry, len(rows))
	for i, row := range rows {
		out[i] = dto.LeaderboardEntry{
			AccountID:    row.AccountID,
			Name:         row.Name,
			RequestCount: row.Count,
		}
	}
	return out, nil
}
