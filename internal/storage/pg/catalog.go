package pg

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"github.com/sitewave/sitewave/internal/service/catalog"
)

func (s *Store) GetPaymentMethod(ctx context.Context, id int64) (*catalog.PaymentMethod, error) {
	query := `SELECT id, name, is_active, description, logo_url, created_at, updated_at
	          FROM payment_methods WHERE id = $1`

	var m catalog.PaymentMethod
	err := s.q.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.Name, &m.IsActive, &m.Description, &m.LogoURL, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrMethodNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to get payment method")
	}

	return &m, nil
}

func (s *Store) ListPaymentMethods(ctx context.Context) ([]*catalog.PaymentMethod, error) {
	query := `SELECT id, name, is_active, description, logo_url, created_at, updated_at
	          FROM payment_methods ORDER BY id ASC`

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list payment methods")
	}
	defer rows.Close()

	var methods []*catalog.PaymentMethod
	for rows.Next() {
		var m catalog.PaymentMethod
		err := rows.Scan(&m.ID, &m.Name, &m.IsActive, &m.Description, &m.LogoURL, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan payment method")
		}
		methods = append(methods, &m)
	}

	return methods, rows.Err()
}

func (s *Store) CreatePaymentMethod(ctx context.Context, m *catalog.PaymentMethod) (*catalog.PaymentMethod, error) {
	query := `INSERT INTO payment_methods (name, is_active, description, logo_url, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, NOW(), NOW())
	          RETURNING id, name, is_active, description, logo_url, created_at, updated_at`

	var created catalog.PaymentMethod
	err := s.q.QueryRow(ctx, query, m.Name, m.IsActive, m.Description, m.LogoURL).Scan(
		&created.ID, &created.Name, &created.IsActive, &created.Description, &created.LogoURL,
		&created.CreatedAt, &created.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return nil, catalog.ErrNameTaken
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to create payment method")
	}

	return &created, nil
}

func (s *Store) UpdatePaymentMethod(ctx context.Context, m *catalog.PaymentMethod) (*catalog.PaymentMethod, error) {
	query := `UPDATE payment_methods
	          SET name = $2, is_active = $3, description = $4, logo_url = $5, updated_at = NOW()
	          WHERE id = $1
	          RETURNING id, name, is_active, description, logo_url, created_at, updated_at`

	var updated catalog.PaymentMethod
	err := s.q.QueryRow(ctx, query, m.ID, m.Name, m.IsActive, m.Description, m.LogoURL).Scan(
		&updated.ID, &updated.Name, &updated.IsActive, &updated.Description, &updated.LogoURL,
		&updated.CreatedAt, &updated.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return nil, catalog.ErrNameTaken
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrMethodNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to update payment method")
	}

	return &updated, nil
}

func (s *Store) DeletePaymentMethod(ctx context.Context, id int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM payment_methods WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "unable to delete payment method")
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrMethodNotFound
	}

	return nil
}

func (s *Store) GetActivity(ctx context.Context, id int64) (*catalog.Activity, error) {
	query := `SELECT id, name, is_active, created_at, updated_at FROM activities WHERE id = $1`

	var a catalog.Activity
	err := s.q.QueryRow(ctx, query, id).Scan(&a.ID, &a.Name, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrActivityNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to get activity")
	}

	return &a, nil
}

func (s *Store) ListActivities(ctx context.Context) ([]*catalog.Activity, error) {
	query := `SELECT id, name, is_active, created_at, updated_at FROM activities ORDER BY name ASC`

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list activities")
	}
	defer rows.Close()

	var activities []*catalog.Activity
	for rows.Next() {
		var a catalog.Activity
		if err := rows.Scan(&a.ID, &a.Name, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "unable to scan activity")
		}
		activities = append(activities, &a)
	}

	return activities, rows.Err()
}

func (s *Store) CreateActivity(ctx context.Context, a *catalog.Activity) (*catalog.Activity, error) {
	query := `INSERT INTO activities (name, is_active, created_at, updated_at)
	          VALUES ($1, $2, NOW(), NOW())
	          RETURNING id, name, is_active, created_at, updated_at`

	var created catalog.Activity
	err := s.q.QueryRow(ctx, query, a.Name, a.IsActive).Scan(
		&created.ID, &created.Name, &created.IsActive, &created.CreatedAt, &created.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return nil, catalog.ErrNameTaken
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to create activity")
	}

	return &created, nil
}

func (s *Store) UpdateActivity(ctx context.Context, a *catalog.Activity) (*catalog.Activity, error) {
	query := `UPDATE activities SET name = $2, is_active = $3, updated_at = NOW()
	          WHERE id = $1
	          RETURNING id, name, is_active, created_at, updated_at`

	var updated catalog.Activity
	err := s.q.QueryRow(ctx, query, a.ID, a.Name, a.IsActive).Scan(
		&updated.ID, &updated.Name, &updated.IsActive, &updated.CreatedAt, &updated.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return nil, catalog.ErrNameTaken
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrActivityNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to update activity")
	}

	return &updated, nil
}

func (s *Store) DeleteActivity(ctx context.Context, id int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "unable to delete activity")
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrActivityNotFound
	}

	return nil
}

const templateColumns = `id, name, template_file_path, photo, overphoto, is_active, is_new,
                         activity_id, created_at, updated_at`

func (s *Store) GetTemplate(ctx context.Context, id int64) (*catalog.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE id = $1`

	t, err := scanTemplate(s.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrTemplateNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to get template")
	}

	return t, nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]*catalog.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates ORDER BY created_at DESC`

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list templates")
	}
	defer rows.Close()

	var templates []*catalog.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan template")
		}
		templates = append(templates, t)
	}

	return templates, rows.Err()
}

func (s *Store) CreateTemplate(ctx context.Context, t *catalog.Template) (*catalog.Template, error) {
	query := `INSERT INTO templates
	          (name, template_file_path, photo, overphoto, is_active, is_new, activity_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	          RETURNING ` + templateColumns

	created, err := scanTemplate(s.q.QueryRow(ctx, query,
		t.Name, t.FilePath, t.Photo, t.OverPhoto, t.IsActive, t.IsNew, t.ActivityID,
	))
	if isUniqueViolation(err) {
		return nil, catalog.ErrNameTaken
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to create template")
	}

	return created, nil
}

func (s *Store) UpdateTemplate(ctx context.Context, t *catalog.Template) (*catalog.Template, error) {
	query := `UPDATE templates
	          SET name = $2, template_file_path = $3, photo = $4, overphoto = $5,
	              is_active = $6, is_new = $7, activity_id = $8, updated_at = NOW()
	          WHERE id = $1
	          RETURNING ` + templateColumns

	updated, err := scanTemplate(s.q.QueryRow(ctx, query,
		t.ID, t.Name, t.FilePath, t.Photo, t.OverPhoto, t.IsActive, t.IsNew, t.ActivityID,
	))
	if isUniqueViolation(err) {
		return nil, catalog.ErrNameTaken
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrTemplateNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to update template")
	}

	return updated, nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "unable to delete template")
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrTemplateNotFound
	}

	return nil
}

func scanTemplate(row pgx.Row) (*catalog.Template, error) {
	var t catalog.Template
	err := row.Scan(
		&t.ID, &t.Name, &t.FilePath, &t.Photo, &t.OverPhoto, &t.IsActive, &t.IsNew,
		&t.ActivityID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
