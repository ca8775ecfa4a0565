package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// TokenManager issues and verifies the opaque signed credentials used by the
// HTTP layer. Tokens carry the principal's id and role plus an expiry.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type tokenClaims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock overrides the time source. Used in tests.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

func (m *TokenManager) Issue(p Principal) (string, error) {
	issuedAt := m.now()

	claims := tokenClaims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   formatSubject(p.ID),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "unable to sign token")
	}

	return signed, nil
}

func (m *TokenManager) Parse(raw string) (Principal, error) {
	var claims tokenClaims

	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))

	if err != nil || !token.Valid {
		return Principal{}, ErrUnauthorized
	}

	id, err := parseSubject(claims.Subject)
	if err != nil {
		return Principal{}, ErrUnauthorized
	}

	if claims.Role != RoleUser && claims.Role != RoleAdmin {
		return Principal{}, ErrUnauthorized
	}

	return Principal{ID: id, Role: claims.Role}, nil
}
