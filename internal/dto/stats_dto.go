package dto

// OverviewResponse aggregates the request collection for the manager
// dashboard. MeanDecisionHours is computed only over decided requests; it is
// null when nothing has been decided yet.
type OverviewResponse struct {
	CountsByStatus    map[string]int64 `json:"counts_by_status"`
	MeanDecisionHours *float64         `json:"mean_decision_hours"`
}

// MonthlyCount is one bucket of the trailing-12-month creation histogram.
type MonthlyCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int64  `json:"count"`
}

type UtilizationEntry struct {
	AccountID   uint    `json:"account_id"`
	Name        string  `json:"name"`
	TotalDays   int     `json:"total_days"`
	UsedDays    int     `json:"used_days"`
	Utilization float64 `json:"utilization"`
}

// LeaderboardEntry ranks accounts by total request count; ties are broken by
// ascending account id so the ordering is deterministic.
type LeaderboardEntry struct {
	AccountID    uint   `json:"account_id"`
	Name         string `json:"name"`
	RequestCount int64  `json:"request_count"`
}
