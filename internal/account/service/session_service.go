package service

import (
	"context"
	"errors"

	"github.com/akentev/account-service/internal/account/repository"
	"github.com/akentev/account-service/internal/common/crypto"
	"github.com/akentev/account-service/internal/common/logger"
	"github.com/akentev/account-service/internal/common/token"
	"github.com/akentev/account-service/internal/observability/metrics"
)

type SessionService struct {
	store  repository.Store
	hasher crypto.PasswordHasher
	tokens *token.Service
	log    *logger.Logger
}

func NewSessionService(
	store repository.Store,
	hasher crypto.PasswordHasher,
	tokens *token.Service,
	log *logger.Logger,
) *SessionService {
	return &SessionService{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		log:    log,
	}
}

// Authenticate checks email and password and issues a session token
// bound to the user's id. An unknown email and a wrong password produce
// the same error.
func (s *SessionService) Authenticate(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"action": "login_unknown_email",
			}).Warn("login failed: unknown email")
			metrics.LoginFailuresTotal.Inc()
			return "", ErrInvalidCredentials
		}
		s.log.WithFields(ctx, logger.Fields{
			"action": "login_fetch_failed",
		}).Errorf("login failed: %v", err)
		return "", ErrStoreFailure.WithCause(err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(user.ID),
			"action":  "login_invalid_password",
		}).Warn("login failed: invalid password")
		metrics.LoginFailuresTotal.Inc()
		return "", ErrInvalidCredentials
	}

	sessionToken, err := s.tokens.Issue(string(user.ID))
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(user.ID),
			"action":  "login_token_issue_failed",
		}).Errorf("login failed: token issue error: %v", err)
		return "", err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(user.ID),
		"action":  "login_success",
	}).Info("login success")

	metrics.LoginsTotal.Inc()
	metrics.SessionTokensIssued.Inc()

	return sessionToken, nil
}
