package dto

// Dates travel as YYYY-MM-DD strings; the handler layer owns shape validation
// and parsing, the engine only sees parsed dates.

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateVacationRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date"   validate:"required,datetime=2006-01-02"`
	Reason    string `json:"reason"     validate:"omitempty,max=1000"`
}

type UpdateVacationRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date"   validate:"required,datetime=2006-01-02"`
	Reason    string `json:"reason"     validate:"omitempty,max=1000"`
}

// DecisionRequest carries the optional manager note on approve/reject.
type DecisionRequest struct {
	Note string `json:"note" validate:"omitempty,max=1000"`
}

// RequestFilter captures the query-string filters for listings and exports.
type RequestFilter struct {
	Status    string `form:"status"`
	Search    string `form:"search"`
	AccountID uint   `form:"account_id"`
	From      string `form:"from"` // YYYY-MM-DD, inclusive lower bound on start_date
	To        string `form:"to"`   // YYYY-MM-DD, inclusive upper bound on end_date
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type VacationResponse struct {
	ID          uint   `json:"id"`
	AccountID   uint   `json:"account_id"`
	AccountName string `json:"account_name,omitempty"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Days        int    `json:"days"`
	Reason      string `json:"reason,omitempty"`
	Status      string `json:"status"`
	DecidedBy   *uint  `json:"decided_by,omitempty"`
	DecidedAt   string `json:"decided_at,omitempty"`
	ManagerNote string `json:"manager_note,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type VacationListResponse struct {
	Data  []VacationResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
