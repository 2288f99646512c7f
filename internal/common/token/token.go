package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	commonerrors "github.com/akentev/account-service/internal/common/errors"
)

// Service issues and verifies HS256 session tokens carrying a subject
// and a fixed lifetime. The secret and TTL are set once at startup.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// NewServiceWithClock is used by tests that need to control issuance time.
func NewServiceWithClock(secret string, ttl time.Duration, now func() time.Time) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    now,
	}
}

func (s *Service) Issue(subject string) (string, error) {
	issuedAt := s.now()
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": issuedAt.Add(s.ttl).Unix(),
		"iat": issuedAt.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify returns the embedded subject. Malformed tokens, bad signatures
// and expired tokens all surface as the same invalid-token error so the
// caller cannot tell which check failed.
func (s *Service) Verify(tokenString string) (string, error) {
	parsed, err := jwt.Parse(
		tokenString,
		func(token *jwt.Token) (any, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return s.secret, nil
		},
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return "", commonerrors.ErrInvalidToken
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", commonerrors.ErrInvalidToken
	}

	sub, _ := mapClaims["sub"].(string)
	if sub == "" {
		return "", commonerrors.ErrInvalidToken
	}

	return sub, nil
}
