package pg

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"github.com/sitewave/sitewave/internal/service/website"
)

const websiteColumns = `id, public_id, user_id, template_id, activity_id, demo_link, project_path,
                        status, rejected_reason, start_date, end_date, created_at, updated_at`

func (s *Store) CreateWebsite(ctx context.Context, w *website.Website) (*website.Website, error) {
	query := `INSERT INTO websites
	          (public_id, user_id, template_id, activity_id, demo_link, project_path, status, start_date, end_date, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	          RETURNING ` + websiteColumns

	created, err := scanWebsite(s.q.QueryRow(ctx, query,
		w.PublicID, w.UserID, w.TemplateID, w.ActivityID, w.DemoLink, w.ProjectPath,
		w.Status, w.StartDate, w.EndDate,
	))
	if err != nil {
		return nil, errors.Wrap(err, "unable to create website")
	}

	return created, nil
}

func (s *Store) GetWebsite(ctx context.Context, id int64) (*website.Website, error) {
	query := `SELECT ` + websiteColumns + ` FROM websites WHERE id = $1`

	w, err := scanWebsite(s.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, website.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to get website")
	}

	return w, nil
}

func (s *Store) ListUserWebsites(ctx context.Context, userID int64) ([]*website.Website, error) {
	query := `SELECT ` + websiteColumns + ` FROM websites WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := s.q.Query(ctx, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list user websites")
	}
	defer rows.Close()

	return collectWebsites(rows)
}

func (s *Store) ListAllWebsites(ctx context.Context) ([]*website.Website, error) {
	query := `SELECT ` + websiteColumns + ` FROM websites ORDER BY created_at DESC`

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list websites")
	}
	defer rows.Close()

	return collectWebsites(rows)
}

func (s *Store) UpdateWebsite(ctx context.Context, w *website.Website) (*website.Website, error) {
	query := `UPDATE websites SET
	          demo_link = $2, project_path = $3, status = $4, rejected_reason = $5, updated_at = NOW()
	          WHERE id = $1
	          RETURNING ` + websiteColumns

	updated, err := scanWebsite(s.q.QueryRow(ctx, query,
		w.ID, w.DemoLink, w.ProjectPath, w.Status, w.RejectedReason,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, website.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to update website")
	}

	return updated, nil
}

func (s *Store) DeleteWebsite(ctx context.Context, id int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM websites WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "unable to delete website")
	}
	if tag.RowsAffected() == 0 {
		return website.ErrNotFound
	}

	return nil
}

func collectWebsites(rows pgx.Rows) ([]*website.Website, error) {
	var sites []*website.Website
	for rows.Next() {
		w, err := scanWebsite(rows)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan website")
		}
		sites = append(sites, w)
	}

	return sites, rows.Err()
}

func scanWebsite(row pgx.Row) (*website.Website, error) {
	var w website.Website
	err := row.Scan(
		&w.ID, &w.PublicID, &w.UserID, &w.TemplateID, &w.ActivityID, &w.DemoLink, &w.ProjectPath,
		&w.Status, &w.RejectedReason, &w.StartDate, &w.EndDate, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
