package pg

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"github.com/sitewave/sitewave/internal/service/payment"
)

const paymentColumns = `id, public_id, user_id, plan_id, payment_method_id, amount, status,
                        rejected_reason, code, payment_date, subscription_type, photo, created_at, updated_at`

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) (*payment.Payment, error) {
	query := `INSERT INTO payments
	          (public_id, user_id, plan_id, payment_method_id, amount, status, code, payment_date, subscription_type, photo, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	          RETURNING ` + paymentColumns

	created, err := scanPayment(s.q.QueryRow(ctx, query,
		p.PublicID, p.UserID, p.PlanID, p.PaymentMethodID, p.Amount, p.Status,
		p.Code, p.PaymentDate, p.Cadence, p.Photo,
	))
	if err != nil {
		return nil, errors.Wrap(err, "unable to create payment")
	}

	return created, nil
}

func (s *Store) GetPayment(ctx context.Context, id int64) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	p, err := scanPayment(s.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to get payment")
	}

	return p, nil
}

func (s *Store) GetPaymentForUpdate(ctx context.Context, id int64) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`

	p, err := scanPayment(s.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to lock payment")
	}

	return p, nil
}

const paymentDetailQuery = `
	SELECT p.id, p.public_id, p.user_id, p.plan_id, p.payment_method_id, p.amount, p.status,
	       p.rejected_reason, p.code, p.payment_date, p.subscription_type, p.photo, p.created_at, p.updated_at,
	       pl.name, pm.name, u.email
	FROM payments p
	JOIN plans pl ON pl.id = p.plan_id
	JOIN payment_methods pm ON pm.id = p.payment_method_id
	JOIN users u ON u.id = p.user_id`

func (s *Store) GetUserPayment(ctx context.Context, userID, id int64) (*payment.Detail, error) {
	query := paymentDetailQuery + ` WHERE p.id = $1 AND p.user_id = $2`

	d, err := scanPaymentDetail(s.q.QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to get user payment")
	}

	return d, nil
}

func (s *Store) GetPaymentDetail(ctx context.Context, id int64) (*payment.Detail, error) {
	query := paymentDetailQuery + ` WHERE p.id = $1`

	d, err := scanPaymentDetail(s.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to get payment detail")
	}

	return d, nil
}

func (s *Store) ListUserPayments(ctx context.Context, userID int64) ([]*payment.Detail, error) {
	query := paymentDetailQuery + ` WHERE p.user_id = $1 ORDER BY p.created_at DESC`

	rows, err := s.q.Query(ctx, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list user payments")
	}
	defer rows.Close()

	return collectPaymentDetails(rows)
}

func (s *Store) ListAllPayments(ctx context.Context) ([]*payment.Detail, error) {
	query := paymentDetailQuery + ` ORDER BY p.created_at DESC`

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list payments")
	}
	defer rows.Close()

	return collectPaymentDetails(rows)
}

func (s *Store) MarkPaymentRejected(ctx context.Context, id int64, reason string) (*payment.Payment, error) {
	query := `UPDATE payments SET status = $2, rejected_reason = $3, updated_at = NOW()
	          WHERE id = $1 AND status = $4
	          RETURNING ` + paymentColumns

	p, err := scanPayment(s.q.QueryRow(ctx, query, id, payment.StatusRejected, reason, payment.StatusPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrAlreadyDecided
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to mark payment rejected")
	}

	return p, nil
}

func (s *Store) MarkPaymentApproved(ctx context.Context, id int64) (*payment.Payment, error) {
	query := `UPDATE payments SET status = $2, updated_at = NOW()
	          WHERE id = $1 AND status = $3
	          RETURNING ` + paymentColumns

	p, err := scanPayment(s.q.QueryRow(ctx, query, id, payment.StatusApproved, payment.StatusPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrAlreadyDecided
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to mark payment approved")
	}

	return p, nil
}

func collectPaymentDetails(rows pgx.Rows) ([]*payment.Detail, error) {
	var details []*payment.Detail
	for rows.Next() {
		d, err := scanPaymentDetail(rows)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan payment")
		}
		details = append(details, d)
	}

	return details, rows.Err()
}

func scanPayment(row pgx.Row) (*payment.Payment, error) {
	var p payment.Payment
	err := row.Scan(
		&p.ID, &p.PublicID, &p.UserID, &p.PlanID, &p.PaymentMethodID, &p.Amount, &p.Status,
		&p.RejectedReason, &p.Code, &p.PaymentDate, &p.Cadence, &p.Photo, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPaymentDetail(row pgx.Row) (*payment.Detail, error) {
	var d payment.Detail
	err := row.Scan(
		&d.ID, &d.PublicID, &d.UserID, &d.PlanID, &d.PaymentMethodID, &d.Amount, &d.Status,
		&d.RejectedReason, &d.Code, &d.PaymentDate, &d.Cadence, &d.Photo, &d.CreatedAt, &d.UpdatedAt,
		&d.PlanName, &d.MethodName, &d.UserEmail,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
