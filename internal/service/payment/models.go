package payment

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sitewave/sitewave/internal/service/plan"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Event topics published on the application bus after a decision commits.
const (
	TopicApproved = "payment.approved"
	TopicRejected = "payment.rejected"
)

// Payment is a payment request submitted by a user. Amount is the discounted
// amount actually charged, after any promo code was applied at creation time.
type Payment struct {
	ID              int64           `json:"id"`
	PublicID        uuid.UUID       `json:"public_id"`
	UserID          int64           `json:"user_id"`
	PlanID          int64           `json:"plan_id"`
	PaymentMethodID int64           `json:"payment_method_id"`
	Amount          decimal.Decimal `json:"amount"`
	Status          Status          `json:"status"`
	RejectedReason  sql.NullString  `json:"rejected_reason"`
	Code            sql.NullString  `json:"code"`
	PaymentDate     time.Time       `json:"payment_date"`
	Cadence         plan.Cadence    `json:"subscription_type"`
	Photo           string          `json:"photo"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Detail is the joined read model for payment listings.
type Detail struct {
	Payment
	PlanName   string `json:"plan_name"`
	MethodName string `json:"payment_method_name"`
	UserEmail  string `json:"user_email,omitempty"`
}

// History splits payments the way the dashboard renders them: pending
// requests awaiting an admin decision vs decided ones.
type History struct {
	Pending []*Detail `json:"pending"`
	Decided []*Detail `json:"history"`
}
