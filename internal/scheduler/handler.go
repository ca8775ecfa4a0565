package scheduler

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sitewave/sitewave/internal/service/subscription"
)

// Handler holds the periodic jobs.
type Handler struct {
	subscriptions *subscription.Service
}

func NewHandler(subscriptions *subscription.Service) *Handler {
	return &Handler{subscriptions: subscriptions}
}

// ExpireOverdueSubscriptions marks active subscriptions past their end date
// as expired.
func (h *Handler) ExpireOverdueSubscriptions(ctx context.Context) error {
	if _, err := h.subscriptions.ExpireOverdue(ctx); err != nil {
		return errors.Wrap(err, "unable to expire overdue subscriptions")
	}

	return nil
}
