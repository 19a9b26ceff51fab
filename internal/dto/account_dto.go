package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateAccountRequest struct {
	Email    string `json:"email"    validate:"required,email,max=150"`
	Name     string `json:"name"     validate:"required,min=2,max=100"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role"     validate:"required,oneof=manager employee"`
	// TotalDays overrides the default entitlement when > 0.
	TotalDays int `json:"total_days" validate:"omitempty,min=0,max=365"`
}

// UpdateAccountRequest deliberately has no role or code field: both are fixed
// at creation. TotalDays is honored only for manager callers.
type UpdateAccountRequest struct {
	Name      string `json:"name"       validate:"omitempty,min=2,max=100"`
	Email     string `json:"email"      validate:"omitempty,email,max=150"`
	Password  string `json:"password"   validate:"omitempty,min=8"`
	TotalDays *int   `json:"total_days" validate:"omitempty,min=0,max=365"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type AccountResponse struct {
	ID            uint    `json:"id"`
	Email         string  `json:"email"`
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	Role          string  `json:"role"`
	TotalDays     int     `json:"total_days"`
	UsedDays      int     `json:"used_days"`
	RemainingDays int     `json:"remaining_days"`
	Utilization   float64 `json:"utilization"`
}
