package paymentapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sitewave/sitewave/internal/server/http/common"
	"github.com/sitewave/sitewave/internal/server/http/middleware"
	"github.com/sitewave/sitewave/internal/service/payment"
	"github.com/sitewave/sitewave/internal/service/plan"
)

type Handler struct {
	payments *payment.Service
	logger   *zerolog.Logger
}

func New(payments *payment.Service, logger *zerolog.Logger) *Handler {
	log := logger.With().Str("channel", "payment_api").Logger()

	return &Handler{
		payments: payments,
		logger:   &log,
	}
}

type CreateRequest struct {
	PlanID          int64           `json:"plan_id"`
	PaymentMethodID int64           `json:"payment_method_id"`
	Amount          decimal.Decimal `json:"amount"`
	Code            string          `json:"code"`
	Cadence         plan.Cadence    `json:"subscription_type"`
	Photo           string          `json:"photo"`
}

type CreateResponse struct {
	Payment  *payment.Payment `json:"payment"`
	Discount decimal.Decimal  `json:"discount"`
}

type DecideRequest struct {
	Decision payment.Status `json:"decision"`
	Reason   string         `json:"reason"`
}

// CreatePayment records a pending payment request for the authenticated user.
// POST /api/v1/payments
func (h *Handler) CreatePayment(c echo.Context) error {
	ctx := c.Request().Context()
	p := middleware.ResolvePrincipal(c)

	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}

	result, err := h.payments.Create(ctx, p.ID, payment.CreateProps{
		PlanID:          req.PlanID,
		PaymentMethodID: req.PaymentMethodID,
		Amount:          req.Amount,
		Code:            req.Code,
		Cadence:         req.Cadence,
		Photo:           req.Photo,
	})
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusCreated, &CreateResponse{
		Payment:  result.Payment,
		Discount: result.Discount,
	})
}

// GetPayment returns one of the authenticated user's payments.
// GET /api/v1/payments/:paymentId
func (h *Handler) GetPayment(c echo.Context) error {
	ctx := c.Request().Context()
	p := middleware.ResolvePrincipal(c)

	id, err := strconv.ParseInt(c.Param("paymentId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid payment id")
	}

	detail, err := h.payments.GetUserPayment(ctx, p.ID, id)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, detail)
}

// ListPayments returns the authenticated user's payment history split into
// pending and decided.
// GET /api/v1/payments
func (h *Handler) ListPayments(c echo.Context) error {
	ctx := c.Request().Context()
	p := middleware.ResolvePrincipal(c)

	history, err := h.payments.ListUserPayments(ctx, p.ID)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, history)
}

// ListAllPayments returns every payment across users. Admin only.
// GET /api/v1/admin/payments
func (h *Handler) ListAllPayments(c echo.Context) error {
	ctx := c.Request().Context()

	history, err := h.payments.ListAllPayments(ctx)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, history)
}

// GetPaymentAdmin returns any user's payment with its joins. Admin only.
// GET /api/v1/admin/payments/:paymentId
func (h *Handler) GetPaymentAdmin(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("paymentId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid payment id")
	}

	detail, err := h.payments.GetPaymentDetail(ctx, id)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, detail)
}

// DecidePayment approves or rejects a pending payment. Admin only. Approval
// runs the subscription reconciliation atomically; on any failure the payment
// stays pending.
// POST /api/v1/admin/payments/:paymentId/decision
func (h *Handler) DecidePayment(c echo.Context) error {
	ctx := c.Request().Context()
	p := middleware.ResolvePrincipal(c)

	id, err := strconv.ParseInt(c.Param("paymentId"), 10, 64)
	if err != nil {
		return common.ValidationErrorResponse(c, "invalid payment id")
	}

	var req DecideRequest
	if err := c.Bind(&req); err != nil {
		return common.ValidationErrorResponse(c, "invalid request body")
	}

	decided, err := h.payments.Decide(ctx, p, id, req.Decision, req.Reason)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, decided)
}
