package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"github.com/sitewave/sitewave/internal/service/subscription"
)

const subscriptionColumns = `id, user_id, plan_id, payment_id, start_date, end_date,
                             websites_created_count, websites_remaining_count, status, created_at, updated_at`

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, error) {
	query := `INSERT INTO subscriptions
	          (user_id, plan_id, payment_id, start_date, end_date, websites_created_count, websites_remaining_count, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	          RETURNING ` + subscriptionColumns

	created, err := scanSubscription(s.q.QueryRow(ctx, query,
		sub.UserID, sub.PlanID, sub.PaymentID, sub.StartDate, sub.EndDate,
		sub.WebsitesCreated, sub.WebsitesRemaining, sub.Status,
	))
	if err != nil {
		return nil, errors.Wrap(err, "unable to create subscription")
	}

	return created, nil
}

func (s *Store) FindActivePlanSubscriptionForUpdate(ctx context.Context, userID, planID int64) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
	          WHERE user_id = $1 AND plan_id = $2 AND status = $3
	          ORDER BY created_at DESC LIMIT 1
	          FOR UPDATE`

	sub, err := scanSubscription(s.q.QueryRow(ctx, query, userID, planID, subscription.StatusActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, subscription.ErrNoActiveSubscription
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to lock active subscription")
	}

	return sub, nil
}

func (s *Store) ExtendSubscription(ctx context.Context, id int64, endDate time.Time) error {
	_, err := s.q.Exec(ctx,
		`UPDATE subscriptions SET end_date = $2, updated_at = NOW() WHERE id = $1`,
		id, endDate,
	)
	if err != nil {
		return errors.Wrap(err, "unable to extend subscription")
	}

	return nil
}

func (s *Store) ExpireUserSubscriptions(ctx context.Context, userID int64) error {
	_, err := s.q.Exec(ctx,
		`UPDATE subscriptions SET status = $2, updated_at = NOW() WHERE user_id = $1 AND status = $3`,
		userID, subscription.StatusExpired, subscription.StatusActive,
	)
	if err != nil {
		return errors.Wrap(err, "unable to expire user subscriptions")
	}

	return nil
}

func (s *Store) GetActiveSubscription(ctx context.Context, userID int64, now time.Time) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
	          WHERE user_id = $1 AND status = $2 AND end_date >= $3
	          ORDER BY created_at DESC LIMIT 1`

	sub, err := scanSubscription(s.q.QueryRow(ctx, query, userID, subscription.StatusActive, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, subscription.ErrNoActiveSubscription
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to get active subscription")
	}

	return sub, nil
}

func (s *Store) ListUserSubscriptions(ctx context.Context, userID int64) ([]*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := s.q.Query(ctx, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list user subscriptions")
	}
	defer rows.Close()

	return collectSubscriptions(rows)
}

func (s *Store) ListAllSubscriptions(ctx context.Context) ([]*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions ORDER BY created_at DESC`

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list subscriptions")
	}
	defer rows.Close()

	return collectSubscriptions(rows)
}

func (s *Store) ExpireOverdueSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.q.Exec(ctx,
		`UPDATE subscriptions SET status = $1, updated_at = NOW() WHERE status = $2 AND end_date < $3`,
		subscription.StatusExpired, subscription.StatusActive, now,
	)
	if err != nil {
		return 0, errors.Wrap(err, "unable to expire overdue subscriptions")
	}

	return tag.RowsAffected(), nil
}

func (s *Store) CurrentSubscriptionForUpdate(ctx context.Context, userID int64, now time.Time) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
	          WHERE user_id = $1 AND status = $2 AND end_date >= $3
	          ORDER BY created_at DESC LIMIT 1
	          FOR UPDATE`

	sub, err := scanSubscription(s.q.QueryRow(ctx, query, userID, subscription.StatusActive, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, subscription.ErrNoActiveSubscription
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to lock current subscription")
	}

	return sub, nil
}

// LatestSubscriptionForUpdate returns the user's most recent subscription
// regardless of status. Quota restoration on website deletion targets this row.
func (s *Store) LatestSubscriptionForUpdate(ctx context.Context, userID int64) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
	          WHERE user_id = $1
	          ORDER BY created_at DESC LIMIT 1
	          FOR UPDATE`

	sub, err := scanSubscription(s.q.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, subscription.ErrNoActiveSubscription
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to lock latest subscription")
	}

	return sub, nil
}

func (s *Store) SetSubscriptionQuota(ctx context.Context, subID int64, created, remaining int32) error {
	_, err := s.q.Exec(ctx,
		`UPDATE subscriptions SET websites_created_count = $2, websites_remaining_count = $3, updated_at = NOW() WHERE id = $1`,
		subID, created, remaining,
	)
	if err != nil {
		return errors.Wrap(err, "unable to set subscription quota")
	}

	return nil
}

func collectSubscriptions(rows pgx.Rows) ([]*subscription.Subscription, error) {
	var subs []*subscription.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan subscription")
		}
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.PlanID, &sub.PaymentID, &sub.StartDate, &sub.EndDate,
		&sub.WebsitesCreated, &sub.WebsitesRemaining, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
