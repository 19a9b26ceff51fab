package model

import (
	"time"

	"leavedesk/internal/apierror"
)

// RequestStatus is the explicit lifecycle state of a vacation request.
// pending is the only non-terminal state; approved and rejected are final.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// CanTransitionTo is the single transition guard for the state machine.
// Valid transitions: pending→approved, pending→rejected. Nothing else.
func (s RequestStatus) CanTransitionTo(to RequestStatus) bool {
	return s == StatusPending && (to == StatusApproved || to == StatusRejected)
}

// Terminal reports whether no further transition exists from s.
func (s RequestStatus) Terminal() bool { return s != StatusPending }

// Transition validates the move and returns the error the engine reports when
// a decision or mutation hits a request that already left pending.
func (s RequestStatus) Transition(to RequestStatus) (RequestStatus, error) {
	if !s.CanTransitionTo(to) {
		return s, apierror.Conflict("only pending requests can be modified or decided")
	}
	return to, nil
}

// VacationRequest is a date-range ask for time off, owned by one account.
// Dates are inclusive calendar dates with no time component. Decision
// metadata is set exactly once, on the transition out of pending.
type VacationRequest struct {
	ID        uint          `gorm:"primaryKey"`
	AccountID uint          `gorm:"index;not null"`
	StartDate time.Time     `gorm:"type:date;not null"`
	EndDate   time.Time     `gorm:"type:date;not null"`
	Reason    string        `gorm:"type:varchar(1000)"`
	Status    RequestStatus `gorm:"type:varchar(20);not null;default:'pending';index"`

	DecidedBy   *uint
	DecidedAt   *time.Time
	ManagerNote string `gorm:"type:varchar(1000)"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Account *Account `gorm:"foreignKey:AccountID"`
}

func (VacationRequest) TableName() string { return "vacation_requests" }

// Duration is the number of vacation days consumed: inclusive on both ends,
// so a single-day request (start == end) has duration 1.
func (r *VacationRequest) Duration() int {
	return DaysInclusive(r.StartDate, r.EndDate)
}

// DaysInclusive counts whole calendar days in [start, end], both inclusive.
func DaysInclusive(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}

// Overlaps applies the inclusive-endpoint interval test: [s1,e1] and [s2,e2]
// overlap iff s1 <= e2 AND s2 <= e1. Covers containment, partial overlap and
// exact match alike.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return !s1.After(e2) && !s2.After(e1)
}
