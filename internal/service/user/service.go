package user

import (
	"context"
	"crypto/rand"
	"database/sql"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotVerified        = errors.New("email is not verified")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrCodeExpired        = errors.New("verification code expired")
)

const (
	verificationTTL = 15 * time.Minute
	resetTTL        = 2 * time.Hour
)

// Store is the storage port consumed by the user service.
type Store interface {
	CreateUser(ctx context.Context, u *User) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateUser(ctx context.Context, u *User) (*User, error)
	DeleteUser(ctx context.Context, id int64) error

	UpsertVerificationCode(ctx context.Context, code *VerificationCode) error
	GetVerificationCode(ctx context.Context, userID int64) (*VerificationCode, error)
	DeleteVerificationCode(ctx context.Context, userID int64) error
}

// Notifier delivers verification and reset codes. Delivery failures are
// logged, never propagated into the flow that triggered them.
type Notifier interface {
	SendVerificationCode(ctx context.Context, to, code string) error
	SendPasswordResetCode(ctx context.Context, to, code string) error
}

type Service struct {
	store    Store
	notifier Notifier
	logger   *zerolog.Logger
	now      func() time.Time
}

func New(store Store, logger *zerolog.Logger) *Service {
	log := logger.With().Str("channel", "user_service").Logger()
	return &Service{
		store:  store,
		logger: &log,
		now:    time.Now,
	}
}

// SetNotifier wires the outbound mail service. Separate from New because the
// mail service itself resolves recipients through this one.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// WithClock overrides the time source. Used in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.store.ListUsers(ctx)
}

// Register creates an unverified account and emails a verification code.
// Registering again with an email that exists but was never verified resends
// a fresh code instead of failing.
func (s *Service) Register(ctx context.Context, name, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "unable to check existing account")
	}
	if existing != nil {
		if existing.IsVerified {
			return nil, ErrEmailTaken
		}

		if err := s.issueCode(ctx, existing, verificationTTL, s.sendVerification); err != nil {
			return nil, err
		}

		s.logger.Info().Int64("user_id", existing.ID).Msg("verification code resent")
		return existing, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "unable to hash password")
	}

	created, err := s.store.CreateUser(ctx, &User{
		Name:         sql.NullString{String: name, Valid: name != ""},
		Email:        email,
		PasswordHash: sql.NullString{String: string(hash), Valid: true},
	})
	if err != nil {
		return nil, err
	}

	if err := s.issueCode(ctx, created, verificationTTL, s.sendVerification); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", created.ID).Msg("user registered")

	return created, nil
}

// VerifyEmail confirms ownership of the registered address and burns the
// code. Returns the now-verified user so the caller can open a session.
func (s *Service) VerifyEmail(ctx context.Context, userID int64, code string) (*User, error) {
	record, err := s.store.GetVerificationCode(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCode
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to get verification code")
	}

	if record.Code != code {
		return nil, ErrInvalidCode
	}
	if record.ExpiresAt.Before(s.now()) {
		return nil, ErrCodeExpired
	}

	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	u.IsVerified = true
	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return nil, errors.Wrap(err, "unable to mark user verified")
	}

	if err := s.store.DeleteVerificationCode(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "unable to burn verification code")
	}

	s.logger.Info().Int64("user_id", userID).Msg("email verified")

	return updated, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to get user by email")
	}

	// OAuth-only accounts carry no password.
	if !u.PasswordHash.Valid {
		return nil, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash.String), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	if !u.IsVerified {
		return nil, ErrNotVerified
	}

	return u, nil
}

// SendResetCode emails a password-reset code to a verified account.
func (s *Service) SendResetCode(ctx context.Context, email string) error {
	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if !u.IsVerified {
		return ErrNotVerified
	}

	if err := s.issueCode(ctx, u, resetTTL, s.sendReset); err != nil {
		return err
	}

	s.logger.Info().Int64("user_id", u.ID).Msg("password reset code sent")

	return nil
}

// VerifyResetCode checks a reset code without consuming it, so the client can
// gate the new-password form.
func (s *Service) VerifyResetCode(ctx context.Context, email, code string) error {
	_, err := s.checkResetCode(ctx, email, code)
	return err
}

// ResetPassword sets a new password and burns the reset code.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) (*User, error) {
	if newPassword == "" {
		return nil, errors.New("new password is required")
	}

	u, err := s.checkResetCode(ctx, email, code)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "unable to hash password")
	}

	u.PasswordHash = sql.NullString{String: string(hash), Valid: true}
	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return nil, errors.Wrap(err, "unable to update password")
	}

	if err := s.store.DeleteVerificationCode(ctx, u.ID); err != nil {
		return nil, errors.Wrap(err, "unable to burn reset code")
	}

	s.logger.Info().Int64("user_id", u.ID).Msg("password reset")

	return updated, nil
}

func (s *Service) checkResetCode(ctx context.Context, email, code string) (*User, error) {
	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}

	record, err := s.store.GetVerificationCode(ctx, u.ID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCode
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to get reset code")
	}

	if record.Code != code {
		return nil, ErrInvalidCode
	}
	if record.ExpiresAt.Before(s.now()) {
		return nil, ErrCodeExpired
	}

	return u, nil
}

// ===== Admin management =====

// CreateProps are the admin-supplied fields of a managed account.
type CreateProps struct {
	Name        string
	Email       string
	Password    string
	PhoneNumber string
}

// UpdateProps are the mutable account fields; empty values are left as-is.
type UpdateProps struct {
	Name        string
	Email       string
	Password    string
	PhoneNumber string
}

// Create adds an account directly, without the verification flow. Admin only;
// the transport layer guards the caller.
func (s *Service) Create(ctx context.Context, props CreateProps) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(props.Email))
	if email == "" || props.Password == "" {
		return nil, errors.New("email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(props.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "unable to hash password")
	}

	created, err := s.store.CreateUser(ctx, &User{
		Name:         sql.NullString{String: props.Name, Valid: props.Name != ""},
		Email:        email,
		PasswordHash: sql.NullString{String: string(hash), Valid: true},
		PhoneNumber:  sql.NullString{String: props.PhoneNumber, Valid: props.PhoneNumber != ""},
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", created.ID).Msg("user created by admin")

	return created, nil
}

// Update patches an account; only the supplied fields change.
func (s *Service) Update(ctx context.Context, id int64, props UpdateProps) (*User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if props.Name != "" {
		u.Name = sql.NullString{String: props.Name, Valid: true}
	}
	if props.Email != "" {
		u.Email = strings.ToLower(strings.TrimSpace(props.Email))
	}
	if props.PhoneNumber != "" {
		u.PhoneNumber = sql.NullString{String: props.PhoneNumber, Valid: true}
	}
	if props.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(props.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.Wrap(err, "unable to hash password")
		}
		u.PasswordHash = sql.NullString{String: string(hash), Valid: true}
	}

	return s.store.UpdateUser(ctx, u)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.store.GetUser(ctx, id); err != nil {
		return err
	}

	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Int64("user_id", id).Msg("user deleted")

	return nil
}

// ===== Codes =====

func (s *Service) issueCode(ctx context.Context, u *User, ttl time.Duration, send func(context.Context, string, string) error) error {
	code, err := newCode()
	if err != nil {
		return errors.Wrap(err, "unable to generate code")
	}

	err = s.store.UpsertVerificationCode(ctx, &VerificationCode{
		UserID:    u.ID,
		Code:      code,
		ExpiresAt: s.now().Add(ttl),
	})
	if err != nil {
		return errors.Wrap(err, "unable to store code")
	}

	if s.notifier == nil {
		return nil
	}
	if err := send(ctx, u.Email, code); err != nil {
		s.logger.Error().Err(err).Str("to", u.Email).Msg("unable to deliver code")
	}

	return nil
}

func (s *Service) sendVerification(ctx context.Context, to, code string) error {
	return s.notifier.SendVerificationCode(ctx, to, code)
}

func (s *Service) sendReset(ctx context.Context, to, code string) error {
	return s.notifier.SendPasswordResetCode(ctx, to, code)
}

// newCode returns a six-digit numeric code.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
