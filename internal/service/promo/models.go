package promo

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/sitewave/sitewave/internal/service/plan"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountAmount     DiscountType = "amount"
)

// Audience exists in the data model but is not consulted by eligibility checks.
// See DESIGN.md.
type Audience string

const (
	AudienceFirstTime Audience = "first_time"
	AudienceAll       Audience = "All"
	AudienceRenew     Audience = "renew"
)

// Code is a promotional discount code with a validity window and a bounded
// number of uses across all users.
type Code struct {
	ID             int64           `json:"id"`
	Code           string          `json:"code"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	DiscountType   DiscountType    `json:"discount_type"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	IsActive       bool            `json:"is_active"`
	MaxUsers       int32           `json:"max_users"`
	AvailableUsers int32           `json:"available_users"`
	Audience       Audience        `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// UsableAt reports whether the code can be redeemed at the given instant:
// active, inside its window and with remaining uses.
func (c *Code) UsableAt(now time.Time) bool {
	return c.IsActive &&
		!now.Before(c.StartDate) &&
		!now.After(c.EndDate) &&
		c.AvailableUsers > 0
}

// WithinWindow reports whether the code is active and inside its validity
// window, ignoring remaining availability.
func (c *Code) WithinWindow(now time.Time) bool {
	return c.IsActive && !now.Before(c.StartDate) && !now.After(c.EndDate)
}

// DiscountOn computes the discount the code grants on amount.
func (c *Code) DiscountOn(amount decimal.Decimal) decimal.Decimal {
	if c.DiscountType == DiscountPercentage {
		return amount.Mul(c.DiscountValue).Div(decimal.NewFromInt(100))
	}
	return c.DiscountValue
}

// PlanLink binds a code to a plan; the code has no effect on a cadence unless
// the corresponding flag is set.
type PlanLink struct {
	ID                    int64     `json:"id"`
	CodeID                int64     `json:"code_id"`
	PlanID                int64     `json:"plan_id"`
	AppliesToMonthly      bool      `json:"applies_to_monthly"`
	AppliesToQuarterly    bool      `json:"applies_to_quarterly"`
	AppliesToSemiAnnually bool      `json:"applies_to_semi_annually"`
	AppliesToYearly       bool      `json:"applies_to_yearly"`
	CreatedAt             time.Time `json:"created_at"`
}

func (l *PlanLink) AppliesTo(c plan.Cadence) bool {
	switch c {
	case plan.CadenceMonthly:
		return l.AppliesToMonthly
	case plan.CadenceQuarterly:
		return l.AppliesToQuarterly
	case plan.CadenceSemiAnnually:
		return l.AppliesToSemiAnnually
	case plan.CadenceAnnually:
		return l.AppliesToYearly
	}
	return false
}

// Usage records that a user consumed a code. At most one row exists per
// (user, code) pair; the row is the single source of truth for "already used".
type Usage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CodeID    int64     `json:"code_id"`
	CreatedAt time.Time `json:"created_at"`
}
