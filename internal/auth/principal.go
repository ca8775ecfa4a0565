package auth

import "github.com/pkg/errors"

// Role of an authenticated principal.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

var (
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("insufficient permissions")
)

// Principal is the already-validated identity produced by the auth layer.
type Principal struct {
	ID   int64
	Role Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) IsZero() bool {
	return p.ID == 0 && p.Role == ""
}
