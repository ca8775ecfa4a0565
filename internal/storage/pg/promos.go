package pg

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"github.com/sitewave/sitewave/internal/service/promo"
)

const promoColumns = `id, code, start_date, end_date, discount_type, discount_value,
                      is_active, max_users, available_users, status, created_at, updated_at`

const planLinkColumns = `id, code_id, plan_id, applies_to_monthly, applies_to_quarterly,
                         applies_to_semi_annually, applies_to_yearly, created_at`

func (s *Store) FindCodeByText(ctx context.Context, code string) (*promo.Code, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes WHERE code = $1`

	c, err := scanPromoCode(s.q.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, promo.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to find promo code")
	}

	return c, nil
}

func (s *Store) FindCodeForUpdate(ctx context.Context, code string) (*promo.Code, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes WHERE code = $1 FOR UPDATE`

	c, err := scanPromoCode(s.q.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, promo.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to lock promo code")
	}

	return c, nil
}

func (s *Store) GetCode(ctx context.Context, id int64) (*promo.Code, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes WHERE id = $1`

	c, err := scanPromoCode(s.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, promo.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to get promo code")
	}

	return c, nil
}

func (s *Store) ListCodes(ctx context.Context) ([]*promo.Code, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes ORDER BY created_at DESC`

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list promo codes")
	}
	defer rows.Close()

	var codes []*promo.Code
	for rows.Next() {
		c, err := scanPromoCode(rows)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan promo code")
		}
		codes = append(codes, c)
	}

	return codes, rows.Err()
}

func (s *Store) CreateCode(ctx context.Context, c *promo.Code, links []*promo.PlanLink) (*promo.Code, error) {
	var created *promo.Code

	err := s.inTx(ctx, func(tx *Store) error {
		query := `INSERT INTO promo_codes
		          (code, start_date, end_date, discount_type, discount_value, is_active, max_users, available_users, status, created_at, updated_at)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		          RETURNING ` + promoColumns

		var err error
		created, err = scanPromoCode(tx.q.QueryRow(ctx, query,
			c.Code, c.StartDate, c.EndDate, c.DiscountType, c.DiscountValue,
			c.IsActive, c.MaxUsers, c.AvailableUsers, c.Audience,
		))
		if isUniqueViolation(err) {
			return promo.ErrCodeTaken
		}
		if err != nil {
			return errors.Wrap(err, "unable to create promo code")
		}

		return tx.insertPlanLinks(ctx, created.ID, links)
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *Store) UpdateCode(ctx context.Context, c *promo.Code, links []*promo.PlanLink) (*promo.Code, error) {
	var updated *promo.Code

	err := s.inTx(ctx, func(tx *Store) error {
		query := `UPDATE promo_codes SET
		          code = $2, start_date = $3, end_date = $4, discount_type = $5, discount_value = $6,
		          is_active = $7, max_users = $8, available_users = $9, status = $10, updated_at = NOW()
		          WHERE id = $1
		          RETURNING ` + promoColumns

		var err error
		updated, err = scanPromoCode(tx.q.QueryRow(ctx, query,
			c.ID, c.Code, c.StartDate, c.EndDate, c.DiscountType, c.DiscountValue,
			c.IsActive, c.MaxUsers, c.AvailableUsers, c.Audience,
		))
		if isUniqueViolation(err) {
			return promo.ErrCodeTaken
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return promo.ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "unable to update promo code")
		}

		if _, err := tx.q.Exec(ctx, `DELETE FROM promocode_plans WHERE code_id = $1`, c.ID); err != nil {
			return errors.Wrap(err, "unable to clear promo plan links")
		}

		return tx.insertPlanLinks(ctx, c.ID, links)
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *Store) DeleteCode(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *Store) error {
		if _, err := tx.q.Exec(ctx, `DELETE FROM promocode_plans WHERE code_id = $1`, id); err != nil {
			return errors.Wrap(err, "unable to delete promo plan links")
		}

		tag, err := tx.q.Exec(ctx, `DELETE FROM promo_codes WHERE id = $1`, id)
		if err != nil {
			return errors.Wrap(err, "unable to delete promo code")
		}
		if tag.RowsAffected() == 0 {
			return promo.ErrNotFound
		}

		return nil
	})
}

func (s *Store) insertPlanLinks(ctx context.Context, codeID int64, links []*promo.PlanLink) error {
	for _, link := range links {
		_, err := s.q.Exec(ctx, `INSERT INTO promocode_plans
		          (code_id, plan_id, applies_to_monthly, applies_to_quarterly, applies_to_semi_annually, applies_to_yearly, created_at)
		          VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
			codeID, link.PlanID, link.AppliesToMonthly, link.AppliesToQuarterly, link.AppliesToSemiAnnually, link.AppliesToYearly,
		)
		if err != nil {
			return errors.Wrap(err, "unable to insert promo plan link")
		}
	}

	return nil
}

func (s *Store) FindPlanLink(ctx context.Context, codeID, planID int64) (*promo.PlanLink, error) {
	query := `SELECT ` + planLinkColumns + ` FROM promocode_plans WHERE code_id = $1 AND plan_id = $2`

	link, err := scanPlanLink(s.q.QueryRow(ctx, query, codeID, planID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, promo.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to find promo plan link")
	}

	return link, nil
}

func (s *Store) ListPlanLinks(ctx context.Context, codeID int64) ([]*promo.PlanLink, error) {
	query := `SELECT ` + planLinkColumns + ` FROM promocode_plans WHERE code_id = $1`

	rows, err := s.q.Query(ctx, query, codeID)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list promo plan links")
	}
	defer rows.Close()

	var links []*promo.PlanLink
	for rows.Next() {
		link, err := scanPlanLink(rows)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan promo plan link")
		}
		links = append(links, link)
	}

	return links, rows.Err()
}

func (s *Store) UsageExists(ctx context.Context, userID, codeID int64) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM promocode_users WHERE user_id = $1 AND code_id = $2)`,
		userID, codeID,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "unable to check promo usage")
	}

	return exists, nil
}

// PromoUsageExists is the tx-scoped variant used by the reconciler.
func (s *Store) PromoUsageExists(ctx context.Context, userID, codeID int64) (bool, error) {
	return s.UsageExists(ctx, userID, codeID)
}

func (s *Store) InsertUsage(ctx context.Context, userID, codeID int64) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO promocode_users (user_id, code_id, created_at, updated_at) VALUES ($1, $2, NOW(), NOW())`,
		userID, codeID,
	)
	if isUniqueViolation(err) {
		return promo.ErrAlreadyUsed
	}
	if err != nil {
		return errors.Wrap(err, "unable to insert promo usage")
	}

	return nil
}

func (s *Store) InsertPromoUsage(ctx context.Context, userID, codeID int64) error {
	return s.InsertUsage(ctx, userID, codeID)
}

func (s *Store) ListUsages(ctx context.Context, codeID int64) ([]*promo.Usage, error) {
	query := `SELECT id, user_id, code_id, created_at FROM promocode_users WHERE code_id = $1 ORDER BY created_at DESC`

	rows, err := s.q.Query(ctx, query, codeID)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list promo usages")
	}
	defer rows.Close()

	var usages []*promo.Usage
	for rows.Next() {
		var u promo.Usage
		if err := rows.Scan(&u.ID, &u.UserID, &u.CodeID, &u.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "unable to scan promo usage")
		}
		usages = append(usages, &u)
	}

	return usages, rows.Err()
}

func (s *Store) DecrementCodeAvailability(ctx context.Context, codeID int64) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE promo_codes SET available_users = available_users - 1, updated_at = NOW()
		 WHERE id = $1 AND available_users > 0`,
		codeID,
	)
	if err != nil {
		return errors.Wrap(err, "unable to decrement promo availability")
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrInvalidPromo
	}

	return nil
}

func scanPromoCode(row pgx.Row) (*promo.Code, error) {
	var c promo.Code
	err := row.Scan(
		&c.ID, &c.Code, &c.StartDate, &c.EndDate, &c.DiscountType, &c.DiscountValue,
		&c.IsActive, &c.MaxUsers, &c.AvailableUsers, &c.Audience, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanPlanLink(row pgx.Row) (*promo.PlanLink, error) {
	var l promo.PlanLink
	err := row.Scan(
		&l.ID, &l.CodeID, &l.PlanID, &l.AppliesToMonthly, &l.AppliesToQuarterly,
		&l.AppliesToSemiAnnually, &l.AppliesToYearly, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
