package subscriptionapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/sitewave/sitewave/internal/server/http/common"
	"github.com/sitewave/sitewave/internal/server/http/middleware"
	"github.com/sitewave/sitewave/internal/service/subscription"
)

type Handler struct {
	subscriptions *subscription.Service
	logger        *zerolog.Logger
}

func New(subscriptions *subscription.Service, logger *zerolog.Logger) *Handler {
	log := logger.With().Str("channel", "subscription_api").Logger()

	return &Handler{
		subscriptions: subscriptions,
		logger:        &log,
	}
}

// GetCurrentSubscription returns the authenticated user's active subscription.
// GET /api/v1/subscription
func (h *Handler) GetCurrentSubscription(c echo.Context) error {
	ctx := c.Request().Context()
	p := middleware.ResolvePrincipal(c)

	sub, err := h.subscriptions.GetCurrentSubscription(ctx, p.ID)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, sub)
}

// ListSubscriptions returns the authenticated user's subscription history.
// GET /api/v1/subscription/history
func (h *Handler) ListSubscriptions(c echo.Context) error {
	ctx := c.Request().Context()
	p := middleware.ResolvePrincipal(c)

	subs, err := h.subscriptions.ListUserSubscriptions(ctx, p.ID)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, subs)
}

// ListAllSubscriptions returns every subscription across users. Admin only.
// GET /api/v1/admin/subscriptions
func (h *Handler) ListAllSubscriptions(c echo.Context) error {
	ctx := c.Request().Context()

	subs, err := h.subscriptions.ListAllSubscriptions(ctx)
	if err != nil {
		return common.ErrorResponseFromErr(c, err)
	}

	return c.JSON(http.StatusOK, subs)
}
