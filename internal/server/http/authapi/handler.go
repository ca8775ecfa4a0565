package authapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/sitewave/sitewave/internal/auth"
	"github.com/sitewave/sitewave/internal/server/http/common"
	"github.com/sitewave/sitewave/internal/server/http/middleware"
	"github.com/sitewave/sitewave/internal/service/user"
)

type Handler struct {
	users  *user.Service
	tokens *auth.TokenManager
	logger *zerolog.Logger
}

func New(users *user.Service, tokens *auth.TokenManager, logger *zerolog.Logger) *Handler {
	log := logger.With().Str("channel", "auth_api").Logger()

	return &Handler{
		users:  users,
		tokens: tokens,
		logger: &log,
	}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyEmailRequest struct {
	UserID int64  `json:"user_id"`
	Code   string `json:"code"`
}

type SendResetCodeRequest struct {
	Email string `json:"email"`
}

type VerifyResetCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type RegisterResponse struct {
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
}

type SessionResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

type UserResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	FirstTimeBuyer bool   `json:"first_time_buyer"`
}

// PostRegister creates an unverified account and emails a verification code.
// No session is opened until the email is verified.
// POST /api/v1/auth/register
func (h *Handler) PostRegister(c echo.Context) error {
	ctx := c.Request().Context()

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return common.ValidationErrorResponse(c, "email and password are required")
	}

	u, err := h.users.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusCreated, &RegisterResponse{
		UserID:  u.ID,
		Message: "verification code sent, please verify your email",
	})
}

// PostVerifyEmail confirms the emailed code and opens a session.
// POST /api/v1/auth/verify-email
func (h *Handler) PostVerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()

	var req VerifyEmailRequest
	if err := c.Bind(&req); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}
	if req.UserID == 0 || req.Code == "" {
		return common.ValidationErrorResponse(c, "user_id and code are required")
	}

	u, err := h.users.VerifyEmail(ctx, req.UserID, req.Code)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return h.session(c, http.StatusOK, u)
}

// PostSendResetCode emails a password reset code.
// POST /api/v1/auth/reset-code
func (h *Handler) PostSendResetCode(c echo.Context) error {
	ctx := c.Request().Context()

	var req SendResetCodeRequest
	if err := c.Bind(&req); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}

	if err := h.users.SendResetCode(ctx, req.Email); err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "reset code sent"})
}

// PostVerifyResetCode checks a reset code without consuming it.
// POST /api/v1/auth/verify-reset-code
func (h *Handler) PostVerifyResetCode(c echo.Context) error {
	ctx := c.Request().Context()

	var req VerifyResetCodeRequest
	if err := c.Bind(&req); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}

	if err := h.users.VerifyResetCode(ctx, req.Email, req.Code); err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "reset code verified"})
}

// PostResetPassword sets a new password and opens a session.
// POST /api/v1/auth/reset-password
func (h *Handler) PostResetPassword(c echo.Context) error {
	ctx := c.Request().Context()

	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}
	if req.NewPassword == "" {
		return common.ValidationErrorResponse(c, "new_password is required")
	}

	u, err := h.users.ResetPassword(ctx, req.Email, req.Code, req.NewPassword)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return h.session(c, http.StatusOK, u)
}

// PostLogin authenticates by email and password.
// POST /api/v1/auth/login
func (h *Handler) PostLogin(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}

	u, err := h.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return h.session(c, http.StatusOK, u)
}

// GetMe returns the authenticated user.
// GET /api/v1/auth/me
func (h *Handler) GetMe(c echo.Context) error {
	ctx := c.Request().Context()

	p := middleware.ResolvePrincipal(c)

	u, err := h.users.GetUser(ctx, p.ID)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, userToResponse(u))
}

func (h *Handler) session(c echo.Context, status int, u *user.User) error {
	role := auth.RoleUser
	if u.IsAdmin {
		role = auth.RoleAdmin
	}

	token, err := h.tokens.Issue(auth.Principal{ID: u.ID, Role: role})
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", u.ID).Msg("unable to issue token")
		return common.InternalErrorResponse(c, "unable to issue token")
	}

	return c.JSON(status, &SessionResponse{
		Token: token,
		User:  userToResponse(u),
	})
}

func userToResponse(u *user.User) *UserResponse {
	return &UserResponse{
		ID:             u.ID,
		Name:           u.Name.String,
		Email:          u.Email,
		FirstTimeBuyer: u.FirstTimeBuyer,
	}
}
