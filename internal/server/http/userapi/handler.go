package userapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/sitewave/sitewave/internal/server/http/common"
	"github.com/sitewave/sitewave/internal/service/user"
)

// Handler exposes admin user management. Every route is behind the admin
// guard; there is no self-service surface here.
type Handler struct {
	users  *user.Service
	logger *zerolog.Logger
}

func New(users *user.Service, logger *zerolog.Logger) *Handler {
	log := logger.With().Str("channel", "user_api").Logger()

	return &Handler{
		users:  users,
		logger: &log,
	}
}

type UserRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phonenumber"`
}

type UserResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phonenumber"`
	IsVerified     bool   `json:"is_verified"`
	PlanID         *int64 `json:"plan_id"`
	FirstTimeBuyer bool   `json:"first_time_buyer"`
}

// ListUsers returns every account.
// GET /api/v1/admin/users
func (h *Handler) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()

	users, err := h.users.ListUsers(ctx)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, lo.Map(users, func(u *user.User, _ int) *UserResponse {
		return userToResponse(u)
	}))
}

// GetUser returns a single account.
// GET /api/v1/admin/users/:userId
func (h *Handler) GetUser(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid user id")
	}

	u, err := h.users.GetUser(ctx, id)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, userToResponse(u))
}

// CreateUser adds an account directly, skipping email verification.
// POST /api/v1/admin/users
func (h *Handler) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req UserRequest
	if err := c.Bind(&req); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return common.ValidationErrorResponse(c, "email and password are required")
	}

	created, err := h.users.Create(ctx, user.CreateProps{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusCreated, userToResponse(created))
}

// UpdateUser patches an account; omitted fields keep their value.
// PUT /api/v1/admin/users/:userId
func (h *Handler) UpdateUser(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid user id")
	}

	var req UserRequest
	if err := c.Bind(&req); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}

	updated, err := h.users.Update(ctx, id, user.UpdateProps{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, userToResponse(updated))
}

// DeleteUser removes an account.
// DELETE /api/v1/admin/users/:userId
func (h *Handler) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid user id")
	}

	if err := h.users.Delete(ctx, id); err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}

func userToResponse(u *user.User) *UserResponse {
	resp := &UserResponse{
		ID:             u.ID,
		Name:           u.Name.String,
		Email:          u.Email,
		PhoneNumber:    u.PhoneNumber.String,
		IsVerified:     u.IsVerified,
		FirstTimeBuyer: u.FirstTimeBuyer,
	}
	if u.PlanID.Valid {
		resp.PlanID = &u.PlanID.Int64
	}
	return resp
}
