package catalog

import (
	"database/sql"
	"time"
)

// PaymentMethod is an admin-managed way of paying (bank transfer, wallet, …).
type PaymentMethod struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	IsActive    bool      `json:"is_active"`
	Description string    `json:"description"`
	LogoURL     string    `json:"logo_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Activity is a business category a template belongs to.
type Activity struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Template is a website template users instantiate websites from.
type Template struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	FilePath   string         `json:"template_file_path"`
	Photo      string         `json:"photo"`
	OverPhoto  sql.NullString `json:"overphoto"`
	IsActive   bool           `json:"is_active"`
	IsNew      bool           `json:"is_new"`
	ActivityID int64          `json:"activity_id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
