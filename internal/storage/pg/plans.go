package pg

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"github.com/sitewave/sitewave/internal/service/plan"
)

const planColumns = `id, name, price_monthly, price_quarterly, price_semi_annually, price_annually,
                     website_limit, created_at, updated_at`

func (s *Store) GetPlan(ctx context.Context, id int64) (*plan.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`

	p, err := scanPlan(s.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, plan.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to get plan")
	}

	return p, nil
}

func (s *Store) ListPlans(ctx context.Context) ([]*plan.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans ORDER BY id ASC`

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list plans")
	}
	defer rows.Close()

	var plans []*plan.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan plan")
		}
		plans = append(plans, p)
	}

	return plans, rows.Err()
}

func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) (*plan.Plan, error) {
	query := `INSERT INTO plans
	          (name, price_monthly, price_quarterly, price_semi_annually, price_annually, website_limit, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	          RETURNING ` + planColumns

	created, err := scanPlan(s.q.QueryRow(ctx, query,
		p.Name, p.PriceMonthly, p.PriceQuarterly, p.PriceSemiAnnually, p.PriceAnnually, p.WebsiteLimit,
	))
	if isUniqueViolation(err) {
		return nil, plan.ErrNameTaken
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to create plan")
	}

	return created, nil
}

func (s *Store) UpdatePlan(ctx context.Context, p *plan.Plan) (*plan.Plan, error) {
	query := `UPDATE plans SET
	          name = $2, price_monthly = $3, price_quarterly = $4, price_semi_annually = $5,
	          price_annually = $6, website_limit = $7, updated_at = NOW()
	          WHERE id = $1
	          RETURNING ` + planColumns

	updated, err := scanPlan(s.q.QueryRow(ctx, query,
		p.ID, p.Name, p.PriceMonthly, p.PriceQuarterly, p.PriceSemiAnnually, p.PriceAnnually, p.WebsiteLimit,
	))
	if isUniqueViolation(err) {
		return nil, plan.ErrNameTaken
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, plan.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to update plan")
	}

	return updated, nil
}

func (s *Store) DeletePlan(ctx context.Context, id int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "unable to delete plan")
	}
	if tag.RowsAffected() == 0 {
		return plan.ErrNotFound
	}

	return nil
}

func scanPlan(row pgx.Row) (*plan.Plan, error) {
	var p plan.Plan
	err := row.Scan(
		&p.ID, &p.Name, &p.PriceMonthly, &p.PriceQuarterly, &p.PriceSemiAnnually, &p.PriceAnnually,
		&p.WebsiteLimit, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
