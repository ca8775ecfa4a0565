// Package common holds shared response envelopes and the mapping from
// service-layer sentinel errors to HTTP statuses.
package common

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sitewave/sitewave/internal/auth"
	"github.com/sitewave/sitewave/internal/service/catalog"
	"github.com/sitewave/sitewave/internal/service/payment"
	"github.com/sitewave/sitewave/internal/service/plan"
	"github.com/sitewave/sitewave/internal/service/promo"
	"github.com/sitewave/sitewave/internal/service/subscription"
	"github.com/sitewave/sitewave/internal/service/user"
	"github.com/sitewave/sitewave/internal/service/website"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

func ValidationErrorResponse(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, &ErrorResponse{Message: message, Status: "validation_error"})
}

func NotFoundResponse(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, &ErrorResponse{Message: message, Status: "not_found"})
}

func InternalErrorResponse(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, &ErrorResponse{Message: message, Status: "internal_error"})
}

// statusOf maps known sentinel errors to HTTP statuses. Unknown errors are
// treated as internal.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, auth.ErrForbidden), errors.Is(err, user.ErrNotVerified):
		return http.StatusForbidden, "forbidden"

	// ErrNotOwner reads as 404: a foreign website is indistinguishable from
	// a missing one.
	case errors.Is(err, plan.ErrNotFound),
		errors.Is(err, promo.ErrNotFound),
		errors.Is(err, payment.ErrNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, website.ErrNotFound),
		errors.Is(err, website.ErrNotOwner),
		errors.Is(err, catalog.ErrMethodNotFound),
		errors.Is(err, catalog.ErrActivityNotFound),
		errors.Is(err, catalog.ErrTemplateNotFound):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, payment.ErrAlreadyDecided),
		errors.Is(err, plan.ErrNameTaken),
		errors.Is(err, promo.ErrCodeTaken),
		errors.Is(err, catalog.ErrNameTaken),
		errors.Is(err, user.ErrEmailTaken):
		return http.StatusConflict, "conflict"

	case errors.Is(err, plan.ErrInvalidCadence),
		errors.Is(err, plan.ErrNoPrices),
		errors.Is(err, promo.ErrInvalidPromo),
		errors.Is(err, promo.ErrAlreadyUsed),
		errors.Is(err, promo.ErrCadenceNotEligible),
		errors.Is(err, payment.ErrInvalidAmount),
		errors.Is(err, payment.ErrBadDecision),
		errors.Is(err, user.ErrInvalidCode),
		errors.Is(err, user.ErrCodeExpired),
		errors.Is(err, subscription.ErrNoActiveSubscription),
		errors.Is(err, website.ErrQuotaExceeded),
		errors.Is(err, website.ErrBadStatus):
		return http.StatusBadRequest, "bad_request"
	}

	return http.StatusInternalServerError, "internal_error"
}

// ErrorResponseFromErr writes err as a JSON error using the sentinel mapping.
// Internal errors are masked with a generic message.
func ErrorResponseFromErr(c echo.Context, err error) error {
	status, kind := statusOf(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}

	return c.JSON(status, &ErrorResponse{Message: message, Status: kind})
}
