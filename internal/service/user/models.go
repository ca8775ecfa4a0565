package user

import (
	"database/sql"
	"time"
)

// User account. PlanID is a denormalized cache of the plan behind the user's
// current active subscription; the Subscription table stays authoritative and
// reconciliation never branches on PlanID without cross-checking it.
type User struct {
	ID             int64          `json:"id"`
	Name           sql.NullString `json:"name"`
	Email          string         `json:"email"`
	PasswordHash   sql.NullString `json:"-"`
	PhoneNumber    sql.NullString `json:"phonenumber"`
	GoogleID       sql.NullString `json:"google_id"`
	IsVerified     bool           `json:"is_verified"`
	IsAdmin        bool           `json:"is_admin"`
	PlanID         sql.NullInt64  `json:"plan_id"`
	FirstTimeBuyer bool           `json:"first_time_buyer"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// VerificationCode is a single-use emailed code. The same record backs both
// email verification and password reset; a user holds at most one at a time.
type VerificationCode struct {
	UserID    int64
	Code      string
	ExpiresAt time.Time
}
