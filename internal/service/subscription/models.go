package subscription

import "time"

type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// Subscription is the authoritative record of a user's access to a plan.
// A user has at most one active subscription at any time; the invariant is
// enforced by the reconciler, not a database constraint.
type Subscription struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	PlanID            int64     `json:"plan_id"`
	PaymentID         int64     `json:"payment_id"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	WebsitesCreated   int32     `json:"websites_created_count"`
	WebsitesRemaining int32     `json:"websites_remaining_count"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Current reports whether the subscription grants access at the given instant.
func (s *Subscription) Current(now time.Time) bool {
	return s.Status == StatusActive && !s.EndDate.Before(now)
}
