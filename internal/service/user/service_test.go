package user

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeStore struct {
	byEmail map[string]*User
	codes   map[int64]*VerificationCode
	nextID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byEmail: map[string]*User{},
		codes:   map[int64]*VerificationCode{},
		nextID:  1,
	}
}

func (f *fakeStore) CreateUser(_ context.Context, u *User) (*User, error) {
	if _, exists := f.byEmail[u.Email]; exists {
		return nil, ErrEmailTaken
	}
	stored := *u
	stored.ID = f.nextID
	stored.FirstTimeBuyer = true
	f.nextID++
	f.byEmail[stored.Email] = &stored
	return &stored, nil
}

func (f *fakeStore) GetUser(_ context.Context, id int64) (*User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) ListUsers(context.Context) ([]*User, error) {
	var users []*User
	for _, u := range f.byEmail {
		users = append(users, u)
	}
	return users, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, u *User) (*User, error) {
	for email, existing := range f.byEmail {
		if existing.ID == u.ID {
			if email != u.Email {
				if _, taken := f.byEmail[u.Email]; taken {
					return nil, ErrEmailTaken
				}
				delete(f.byEmail, email)
			}
			stored := *u
			f.byEmail[u.Email] = &stored
			return &stored, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) DeleteUser(_ context.Context, id int64) error {
	for email, u := range f.byEmail {
		if u.ID == id {
			delete(f.byEmail, email)
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) UpsertVerificationCode(_ context.Context, code *VerificationCode) error {
	stored := *code
	f.codes[code.UserID] = &stored
	return nil
}

func (f *fakeStore) GetVerificationCode(_ context.Context, userID int64) (*VerificationCode, error) {
	code, ok := f.codes[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return code, nil
}

func (f *fakeStore) DeleteVerificationCode(_ context.Context, userID int64) error {
	delete(f.codes, userID)
	return nil
}

type fakeNotifier struct {
	verifications map[string]string
	resets        map[string]string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{verifications: map[string]string{}, resets: map[string]string{}}
}

func (f *fakeNotifier) SendVerificationCode(_ context.Context, to, code string) error {
	f.verifications[to] = code
	return nil
}

func (f *fakeNotifier) SendPasswordResetCode(_ context.Context, to, code string) error {
	f.resets[to] = code
	return nil
}

var testNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func setupService() (*Service, *fakeStore, *fakeNotifier) {
	logger := zerolog.Nop()
	store := newFakeStore()
	notifier := newFakeNotifier()

	service := New(store, &logger).WithClock(func() time.Time { return testNow })
	service.SetNotifier(notifier)

	return service, store, notifier
}

func registerVerified(t *testing.T, service *Service, store *fakeStore, email, password string) *User {
	t.Helper()
	ctx := context.Background()

	u, err := service.Register(ctx, "Dana", email, password)
	require.NoError(t, err)

	verified, err := service.VerifyEmail(ctx, u.ID, store.codes[u.ID].Code)
	require.NoError(t, err)

	return verified
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	service, store, notifier := setupService()

	u, err := service.Register(ctx, "Dana", "Dana@Example.COM ", "s3cret")
	require.NoError(t, err)

	assert.Equal(t, "dana@example.com", u.Email, "email is normalized")
	assert.False(t, u.IsVerified, "account starts unverified")
	assert.True(t, u.FirstTimeBuyer)
	require.True(t, u.PasswordHash.Valid)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash.String), []byte("s3cret")))

	t.Run("verification code is issued and delivered", func(t *testing.T) {
		code, ok := store.codes[u.ID]
		require.True(t, ok)
		assert.Len(t, code.Code, 6)
		assert.Equal(t, testNow.Add(15*time.Minute), code.ExpiresAt)
		assert.Equal(t, code.Code, notifier.verifications["dana@example.com"])
	})

	t.Run("unverified duplicate resends a code", func(t *testing.T) {
		again, err := service.Register(ctx, "Dana", "dana@example.com", "other")
		require.NoError(t, err)

		assert.Equal(t, u.ID, again.ID, "no second account")
		assert.Equal(t, store.codes[u.ID].Code, notifier.verifications["dana@example.com"])
	})

	t.Run("verified duplicate conflicts", func(t *testing.T) {
		store.byEmail["dana@example.com"].IsVerified = true
		defer func() { store.byEmail["dana@example.com"].IsVerified = false }()

		_, err := service.Register(ctx, "Dana", "dana@example.com", "other")
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("missing credentials", func(t *testing.T) {
		_, err := service.Register(ctx, "X", "", "pw")
		assert.Error(t, err)

		_, err = service.Register(ctx, "X", "x@example.com", "")
		assert.Error(t, err)
	})
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()
	service, store, _ := setupService()

	u, err := service.Register(ctx, "Dana", "dana@example.com", "s3cret")
	require.NoError(t, err)

	t.Run("wrong code", func(t *testing.T) {
		_, err := service.VerifyEmail(ctx, u.ID, "000000")
		assert.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("no record", func(t *testing.T) {
		_, err := service.VerifyEmail(ctx, u.ID+1, "123456")
		assert.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("expired code", func(t *testing.T) {
		store.codes[u.ID].ExpiresAt = testNow.Add(-time.Minute)
		_, err := service.VerifyEmail(ctx, u.ID, store.codes[u.ID].Code)
		assert.ErrorIs(t, err, ErrCodeExpired)
		store.codes[u.ID].ExpiresAt = testNow.Add(15 * time.Minute)
	})

	t.Run("valid code verifies and burns", func(t *testing.T) {
		verified, err := service.VerifyEmail(ctx, u.ID, store.codes[u.ID].Code)
		require.NoError(t, err)

		assert.True(t, verified.IsVerified)
		_, hasCode := store.codes[u.ID]
		assert.False(t, hasCode, "code is single-use")
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	service, store, _ := setupService()

	registerVerified(t, service, store, "dana@example.com", "s3cret")

	t.Run("valid credentials", func(t *testing.T) {
		u, err := service.Authenticate(ctx, "DANA@example.com", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "dana@example.com", u.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := service.Authenticate(ctx, "dana@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := service.Authenticate(ctx, "nobody@example.com", "s3cret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unverified account", func(t *testing.T) {
		_, err := service.Register(ctx, "New", "new@example.com", "pw1234")
		require.NoError(t, err)

		_, err = service.Authenticate(ctx, "new@example.com", "pw1234")
		assert.ErrorIs(t, err, ErrNotVerified)
	})

	t.Run("oauth-only account has no password", func(t *testing.T) {
		store.byEmail["google@example.com"] = &User{
			ID:         99,
			Email:      "google@example.com",
			GoogleID:   sql.NullString{String: "g-123", Valid: true},
			IsVerified: true,
		}

		_, err := service.Authenticate(ctx, "google@example.com", "anything")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	service, store, notifier := setupService()

	u := registerVerified(t, service, store, "dana@example.com", "s3cret")

	t.Run("reset code requires a verified account", func(t *testing.T) {
		_, err := service.Register(ctx, "New", "new@example.com", "pw1234")
		require.NoError(t, err)

		err = service.SendResetCode(ctx, "new@example.com")
		assert.ErrorIs(t, err, ErrNotVerified)
	})

	t.Run("unknown email", func(t *testing.T) {
		err := service.SendResetCode(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	require.NoError(t, service.SendResetCode(ctx, "dana@example.com"))
	code := store.codes[u.ID]
	require.NotNil(t, code)
	assert.Equal(t, testNow.Add(2*time.Hour), code.ExpiresAt)
	assert.Equal(t, code.Code, notifier.resets["dana@example.com"])

	t.Run("verify leaves the code usable", func(t *testing.T) {
		require.NoError(t, service.VerifyResetCode(ctx, "dana@example.com", code.Code))
		_, stillThere := store.codes[u.ID]
		assert.True(t, stillThere)
	})

	t.Run("verify rejects a wrong code", func(t *testing.T) {
		err := service.VerifyResetCode(ctx, "dana@example.com", "000000")
		assert.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("reset requires the code", func(t *testing.T) {
		_, err := service.ResetPassword(ctx, "dana@example.com", "000000", "newpass")
		assert.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("reset sets the new password and burns the code", func(t *testing.T) {
		updated, err := service.ResetPassword(ctx, "dana@example.com", code.Code, "newpass")
		require.NoError(t, err)

		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash.String), []byte("newpass")))
		_, stillThere := store.codes[u.ID]
		assert.False(t, stillThere)

		_, err = service.Authenticate(ctx, "dana@example.com", "newpass")
		assert.NoError(t, err)
		_, err = service.Authenticate(ctx, "dana@example.com", "s3cret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAdminManagement(t *testing.T) {
	ctx := context.Background()
	service, store, notifier := setupService()

	t.Run("create skips the verification flow", func(t *testing.T) {
		u, err := service.Create(ctx, CreateProps{
			Name:        "Sam",
			Email:       "Sam@Example.com",
			Password:    "pw1234",
			PhoneNumber: "+20100000000",
		})
		require.NoError(t, err)

		assert.Equal(t, "sam@example.com", u.Email)
		assert.Equal(t, "+20100000000", u.PhoneNumber.String)
		assert.Empty(t, notifier.verifications, "no verification email")
		_, hasCode := store.codes[u.ID]
		assert.False(t, hasCode)
	})

	t.Run("create requires credentials", func(t *testing.T) {
		_, err := service.Create(ctx, CreateProps{Email: "x@example.com"})
		assert.Error(t, err)
	})

	t.Run("list returns every account", func(t *testing.T) {
		users, err := service.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})

	t.Run("update patches only supplied fields", func(t *testing.T) {
		u := store.byEmail["sam@example.com"]
		oldHash := u.PasswordHash.String

		updated, err := service.Update(ctx, u.ID, UpdateProps{Name: "Samira", Password: "changed"})
		require.NoError(t, err)

		assert.Equal(t, "Samira", updated.Name.String)
		assert.Equal(t, "sam@example.com", updated.Email, "email untouched")
		assert.NotEqual(t, oldHash, updated.PasswordHash.String)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash.String), []byte("changed")))
	})

	t.Run("update of a missing user", func(t *testing.T) {
		_, err := service.Update(ctx, 404, UpdateProps{Name: "X"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete removes the account", func(t *testing.T) {
		u := store.byEmail["sam@example.com"]

		require.NoError(t, service.Delete(ctx, u.ID))
		assert.Empty(t, store.byEmail)

		assert.ErrorIs(t, service.Delete(ctx, u.ID), ErrNotFound)
	})
}
