package subscription

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sitewave/sitewave/internal/service/payment"
	"github.com/sitewave/sitewave/internal/service/plan"
	"github.com/sitewave/sitewave/internal/service/promo"
	"github.com/sitewave/sitewave/internal/service/user"
)

// Approve applies an approved payment to the user's subscription state and
// marks the payment approved, all in one transaction. Three cases:
//
//   - first subscription: user has no plan pointer; a fresh subscription is
//     created and the pointer set
//   - renewal: the payment's plan matches the pointer; the existing active
//     subscription is extended from its current end date, quota untouched
//   - plan switch: the pointer names another plan; every active subscription
//     is expired and a fresh one created
//
// Any failure rolls the whole transaction back and the payment stays pending.
func (s *Service) Approve(ctx context.Context, paymentID int64) (*payment.Payment, error) {
	var approved *payment.Payment

	err := s.store.InTx(ctx, func(tx Store) error {
		p, err := tx.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Status != payment.StatusPending {
			return payment.ErrAlreadyDecided
		}

		pl, err := tx.GetPlan(ctx, p.PlanID)
		if err != nil {
			return err
		}

		u, err := tx.GetUserForUpdate(ctx, p.UserID)
		if err != nil {
			return err
		}

		if p.Code.Valid {
			if err := s.confirmPromo(ctx, tx, u.ID, p.Code.String); err != nil {
				return err
			}
		}

		months, err := p.Cadence.Months()
		if err != nil {
			return err
		}

		if err := s.reconcile(ctx, tx, u, pl, p, months); err != nil {
			return err
		}

		approved, err = tx.MarkPaymentApproved(ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("payment_id", approved.ID).
		Int64("user_id", approved.UserID).
		Msg("payment reconciled and approved")

	return approved, nil
}

func (s *Service) reconcile(ctx context.Context, tx Store, u *user.User, pl *plan.Plan, p *payment.Payment, months int) error {
	switch {
	case !u.PlanID.Valid:
		// First subscription.
		return s.openSubscription(ctx, tx, u.ID, pl, p.ID, months)

	case u.PlanID.Int64 == pl.ID:
		// Renewal of the same plan: extend from the existing end date so
		// remaining time is preserved. Quota counters are untouched.
		sub, err := tx.FindActivePlanSubscriptionForUpdate(ctx, u.ID, pl.ID)
		if errors.Is(err, ErrNoActiveSubscription) {
			// The plan pointer promised an active subscription; its absence
			// is a data-consistency fault.
			return ErrNoActiveSubscription
		}
		if err != nil {
			return err
		}

		return tx.ExtendSubscription(ctx, sub.ID, sub.EndDate.AddDate(0, months, 0))

	default:
		// Plan switch: expire everything active, then start fresh.
		if err := tx.ExpireUserSubscriptions(ctx, u.ID); err != nil {
			return err
		}

		return s.openSubscription(ctx, tx, u.ID, pl, p.ID, months)
	}
}

func (s *Service) openSubscription(ctx context.Context, tx Store, userID int64, pl *plan.Plan, paymentID int64, months int) error {
	start := s.now()

	_, err := tx.CreateSubscription(ctx, &Subscription{
		UserID:            userID,
		PlanID:            pl.ID,
		PaymentID:         paymentID,
		StartDate:         start,
		EndDate:           start.AddDate(0, months, 0),
		WebsitesCreated:   0,
		WebsitesRemaining: pl.Limit(),
		Status:            StatusActive,
	})
	if err != nil {
		return errors.Wrap(err, "unable to create subscription")
	}

	return tx.SetUserPlan(ctx, userID, pl.ID)
}

// confirmPromo is the confirmation phase of the two-phase promo consumption:
// re-validate the code, burn one availability slot and make sure a usage row
// exists. A code that is no longer valid at approval time is skipped without
// failing the approval; the discount was already locked into the payment's
// stored amount.
func (s *Service) confirmPromo(ctx context.Context, tx Store, userID int64, code string) error {
	promoCode, err := tx.FindCodeForUpdate(ctx, code)
	if errors.Is(err, promo.ErrNotFound) {
		// Missing code at approval time is not fatal.
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "unable to load promo code")
	}

	if !promoCode.UsableAt(s.now()) {
		s.logger.Warn().
			Str("code", code).
			Int64("user_id", userID).
			Msg("promo code no longer valid at approval, skipping confirmation")
		return nil
	}

	if err := tx.DecrementCodeAvailability(ctx, promoCode.ID); err != nil {
		return errors.Wrap(err, "unable to decrement promo availability")
	}

	// The reservation at payment creation usually inserted the usage row
	// already; insert only if absent.
	exists, err := tx.PromoUsageExists(ctx, userID, promoCode.ID)
	if err != nil {
		return errors.Wrap(err, "unable to check promo usage")
	}
	if !exists {
		if err := tx.InsertPromoUsage(ctx, userID, promoCode.ID); err != nil {
			return errors.Wrap(err, "unable to record promo usage")
		}
	}

	return nil
}
