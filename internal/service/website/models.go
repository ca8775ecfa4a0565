package website

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusDemo          Status = "demo"
	StatusApproved      Status = "approved"
	StatusPendingReview Status = "pending_admin_review"
	StatusRejected      Status = "rejected"
)

// Website is a site instantiated from a template. EndDate mirrors the owning
// subscription's end date at creation time and is not kept in sync afterwards.
type Website struct {
	ID             int64          `json:"id"`
	PublicID       uuid.UUID      `json:"public_id"`
	UserID         int64          `json:"user_id"`
	TemplateID     int64          `json:"template_id"`
	ActivityID     int64          `json:"activity_id"`
	DemoLink       string         `json:"demo_link"`
	ProjectPath    string         `json:"project_path"`
	Status         Status         `json:"status"`
	RejectedReason sql.NullString `json:"rejected_reason"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        time.Time      `json:"end_date"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// QuotaState reports the owning subscription's counters after a mutation.
type QuotaState struct {
	WebsitesCreated   int32 `json:"websites_created_count"`
	WebsitesRemaining int32 `json:"websites_remaining_count"`
}
