package subscription

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/sitewave/sitewave/internal/service/payment"
	"github.com/sitewave/sitewave/internal/service/plan"
	"github.com/sitewave/sitewave/internal/service/promo"
	"github.com/sitewave/sitewave/internal/service/user"
)

var ErrNoActiveSubscription = errors.New("no active subscription found")

// Store is the storage port consumed by the reconciler. All ForUpdate
// variants must take a row-level lock so concurrent approvals of the same
// user serialize; InTx wraps the closure in a single transactional scope.
type Store interface {
	InTx(ctx context.Context, fn func(Store) error) error

	GetPaymentForUpdate(ctx context.Context, id int64) (*payment.Payment, error)
	MarkPaymentApproved(ctx context.Context, id int64) (*payment.Payment, error)
	GetPlan(ctx context.Context, id int64) (*plan.Plan, error)
	GetUserForUpdate(ctx context.Context, id int64) (*user.User, error)
	SetUserPlan(ctx context.Context, userID, planID int64) error

	FindActivePlanSubscriptionForUpdate(ctx context.Context, userID, planID int64) (*Subscription, error)
	ExtendSubscription(ctx context.Context, id int64, endDate time.Time) error
	ExpireUserSubscriptions(ctx context.Context, userID int64) error
	CreateSubscription(ctx context.Context, sub *Subscription) (*Subscription, error)

	FindCodeForUpdate(ctx context.Context, code string) (*promo.Code, error)
	DecrementCodeAvailability(ctx context.Context, codeID int64) error
	PromoUsageExists(ctx context.Context, userID, codeID int64) (bool, error)
	InsertPromoUsage(ctx context.Context, userID, codeID int64) error

	GetActiveSubscription(ctx context.Context, userID int64, now time.Time) (*Subscription, error)
	ListUserSubscriptions(ctx context.Context, userID int64) ([]*Subscription, error)
	ListAllSubscriptions(ctx context.Context) ([]*Subscription, error)
	ExpireOverdueSubscriptions(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	store  Store
	logger *zerolog.Logger
	now    func() time.Time
}

func New(store Store, logger *zerolog.Logger) *Service {
	log := logger.With().Str("channel", "subscription_service").Logger()
	return &Service{
		store:  store,
		logger: &log,
		now:    time.Now,
	}
}

// WithClock overrides the time source. Used in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetCurrentSubscription returns the user's active, unexpired subscription.
func (s *Service) GetCurrentSubscription(ctx context.Context, userID int64) (*Subscription, error) {
	sub, err := s.store.GetActiveSubscription(ctx, userID, s.now())
	if errors.Is(err, ErrNoActiveSubscription) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to get active subscription")
	}

	return sub, nil
}

func (s *Service) ListUserSubscriptions(ctx context.Context, userID int64) ([]*Subscription, error) {
	return s.store.ListUserSubscriptions(ctx, userID)
}

func (s *Service) ListAllSubscriptions(ctx context.Context) ([]*Subscription, error) {
	return s.store.ListAllSubscriptions(ctx)
}

// ExpireOverdue marks active subscriptions whose end date has passed as
// expired. Invoked periodically by the scheduler.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.store.ExpireOverdueSubscriptions(ctx, s.now())
	if err != nil {
		return 0, errors.Wrap(err, "unable to expire overdue subscriptions")
	}

	if n > 0 {
		s.logger.Info().Int64("count", n).Msg("expired overdue subscriptions")
	}

	return n, nil
}
