package model

import (
	"time"
)

// Roles are fixed at account creation; there is no promotion/demotion path.
const (
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

// Account stores a person with a role and a vacation balance.
// used_days is a derived-but-stored counter: it always equals the sum of
// durations of the account's currently approved requests. The CHECK
// constraint is a last-line defense; the engine's balance check is the gate.
type Account struct {
	ID           uint    `gorm:"primaryKey"`
	Email        string  `gorm:"uniqueIndex;not null"`
	Code         string  `gorm:"type:varchar(7);uniqueIndex;not null"`
	Name         string  `gorm:"index;not null"`
	PasswordHash string  `gorm:"not null"`
	Role         string  `gorm:"type:varchar(20);not null"`
	TotalDays    int     `gorm:"not null;default:20"`
	UsedDays     int     `gorm:"not null;default:0;check:valid_vacation_days,used_days >= 0 AND used_days <= total_days"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Requests []VacationRequest `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
}

func (Account) TableName() string { return "accounts" }

// RemainingDays is the balance still available for new requests.
func (a *Account) RemainingDays() int { return a.TotalDays - a.UsedDays }

// Utilization is used/total; 0 when the entitlement itself is 0.
func (a *Account) Utilization() float64 {
	if a.TotalDays == 0 {
		return 0
	}
	return float64(a.UsedDays) / float64(a.TotalDays)
}
