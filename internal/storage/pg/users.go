package pg

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"github.com/sitewave/sitewave/internal/service/user"
)

const userColumns = `id, name, email, password, phonenumber, google_id, is_verified,
                     is_admin, plan_id, first_time_buyer, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u *user.User) (*user.User, error) {
	query := `INSERT INTO users (name, email, password, phonenumber, google_id, is_verified, first_time_buyer, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, false, true, NOW(), NOW())
	          RETURNING ` + userColumns

	created, err := scanUser(s.q.QueryRow(ctx, query,
		u.Name, u.Email, u.PasswordHash, u.PhoneNumber, u.GoogleID,
	))
	if isUniqueViolation(err) {
		return nil, user.ErrEmailTaken
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to create user")
	}

	return created, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to get user")
	}

	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(s.q.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to get user by email")
	}

	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id ASC`

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list users")
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan user")
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) (*user.User, error) {
	query := `UPDATE users
	          SET name = $2, email = $3, password = $4, phonenumber = $5, is_verified = $6, updated_at = NOW()
	          WHERE id = $1
	          RETURNING ` + userColumns

	updated, err := scanUser(s.q.QueryRow(ctx, query,
		u.ID, u.Name, u.Email, u.PasswordHash, u.PhoneNumber, u.IsVerified,
	))
	if isUniqueViolation(err) {
		return nil, user.ErrEmailTaken
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to update user")
	}

	return updated, nil
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "unable to delete user")
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}

	return nil
}

func (s *Store) UpsertVerificationCode(ctx context.Context, code *user.VerificationCode) error {
	query := `INSERT INTO email_verifications (user_id, verification_code, expires_at, created_at, updated_at)
	          VALUES ($1, $2, $3, NOW(), NOW())
	          ON CONFLICT (user_id) DO UPDATE
	          SET verification_code = excluded.verification_code,
	              expires_at = excluded.expires_at,
	              updated_at = NOW()`

	_, err := s.q.Exec(ctx, query, code.UserID, code.Code, code.ExpiresAt)
	if err != nil {
		return errors.Wrap(err, "unable to store verification code")
	}

	return nil
}

func (s *Store) GetVerificationCode(ctx context.Context, userID int64) (*user.VerificationCode, error) {
	query := `SELECT user_id, verification_code, expires_at FROM email_verifications WHERE user_id = $1`

	var code user.VerificationCode
	err := s.q.QueryRow(ctx, query, userID).Scan(&code.UserID, &code.Code, &code.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to get verification code")
	}

	return &code, nil
}

func (s *Store) DeleteVerificationCode(ctx context.Context, userID int64) error {
	_, err := s.q.Exec(ctx, `DELETE FROM email_verifications WHERE user_id = $1`, userID)
	if err != nil {
		return errors.Wrap(err, "unable to delete verification code")
	}

	return nil
}

func (s *Store) GetUserForUpdate(ctx context.Context, id int64) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	u, err := scanUser(s.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to lock user")
	}

	return u, nil
}

func (s *Store) SetUserPlan(ctx context.Context, userID, planID int64) error {
	_, err := s.q.Exec(ctx, `UPDATE users SET plan_id = $2, updated_at = NOW() WHERE id = $1`, userID, planID)
	if err != nil {
		return errors.Wrap(err, "unable to set user plan")
	}

	return nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.PhoneNumber, &u.GoogleID, &u.IsVerified,
		&u.IsAdmin, &u.PlanID, &u.FirstTimeBuyer, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
