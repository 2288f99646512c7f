package service

import (
	"context"
	"errors"

	"github.com/akentev/account-service/internal/account/domain"
	"github.com/akentev/account-service/internal/account/repository"
	"github.com/akentev/account-service/internal/common/clock"
	"github.com/akentev/account-service/internal/common/crypto"
	"github.com/akentev/account-service/internal/common/logger"
	"github.com/akentev/account-service/internal/common/token"
	"github.com/akentev/account-service/internal/observability/metrics"
)

type UserService struct {
	store  repository.Store
	hasher crypto.PasswordHasher
	idGen  crypto.IDGenerator
	tokens *token.Service
	clock  clock.Clock
	log    *logger.Logger
}

func NewUserService(
	store repository.Store,
	hasher crypto.PasswordHasher,
	idGen crypto.IDGenerator,
	tokens *token.Service,
	clk clock.Clock,
	log *logger.Logger,
) *UserService {
	return &UserService{
		store:  store,
		hasher: hasher,
		idGen:  idGen,
		tokens: tokens,
		clock:  clk,
		log:    log,
	}
}

type CreateInput struct {
	Name     string
	Email    string
	Password string
	IsAdmin  bool
}

// Patch carries the fields a PATCH request may change. Nil means the
// field was absent from the request body; unknown body keys are dropped
// at decode time.
type Patch struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	IsAdmin  *bool   `json:"isAdmin"`
}

func (s *UserService) Create(ctx context.Context, input CreateInput) (domain.Profile, error) {
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"action": "create_hash_failed",
		}).Errorf("create user failed: password hash error: %v", err)
		return domain.Profile{}, err
	}

	id, err := s.idGen.NewID()
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"action": "create_id_generation_failed",
		}).Errorf("create user failed: id generation error: %v", err)
		return domain.Profile{}, err
	}

	now := s.clock.Now()
	user := domain.User{
		ID:           domain.ID(id),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		IsAdmin:      input.IsAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Append(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailAlreadyRegistered) {
			s.log.WithFields(ctx, logger.Fields{
				"action": "create_email_taken",
			}).Warn("create user failed: email already registered")
			return domain.Profile{}, ErrEmailTaken
		}
		s.log.WithFields(ctx, logger.Fields{
			"action": "create_append_failed",
		}).Errorf("create user failed: %v", err)
		return domain.Profile{}, ErrStoreFailure.WithCause(err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": id,
		"action":  "create_success",
	}).Info("user created")

	metrics.UsersCreatedTotal.Inc()

	return user.Profile(), nil
}

func (s *UserService) List(ctx context.Context) ([]domain.Profile, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"action": "list_failed",
		}).Errorf("list users failed: %v", err)
		return nil, ErrStoreFailure.WithCause(err)
	}

	profiles := make([]domain.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}
	return profiles, nil
}

// RetrieveSelf resolves the caller from a raw bearer token. It runs its
// own token verification rather than trusting upstream middleware.
func (s *UserService) RetrieveSelf(ctx context.Context, rawToken string) (domain.Profile, error) {
	subject, err := s.tokens.Verify(rawToken)
	if err != nil {
		metrics.TokenVerificationsFailed.Inc()
		return domain.Profile{}, err
	}
	metrics.TokenVerificationsTotal.Inc()

	user, err := s.store.FindByID(ctx, domain.ID(subject))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domain.Profile{}, ErrUserNotFound
		}
		return domain.Profile{}, ErrStoreFailure.WithCause(err)
	}

	return user.Profile(), nil
}

// Update applies a partial update to the caller's own record. A target
// id that is not the caller's reports not-found, for admins too; cross
// user edits are deliberately rejected rather than half supported.
// Granting isAdmin requires the caller to already be an admin, and a
// rejected patch leaves the record untouched.
func (s *UserService) Update(ctx context.Context, targetID domain.ID, caller domain.User, patch Patch) (domain.Profile, error) {
	if targetID == "" || caller.ID != targetID {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(caller.ID),
			"action":  "update_target_mismatch",
		}).Warn("update failed: target is not the caller")
		return domain.Profile{}, ErrUserNotFound
	}

	if patch.IsAdmin != nil && !caller.IsAdmin {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(caller.ID),
			"action":  "update_admin_field_denied",
		}).Warn("update failed: non-admin tried to change isAdmin")
		return domain.Profile{}, ErrAdminRequired
	}

	updated := caller
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.Email != nil {
		updated.Email = *patch.Email
	}
	if patch.Password != nil {
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			s.log.WithFields(ctx, logger.Fields{
				"user_id": string(caller.ID),
				"action":  "update_hash_failed",
			}).Errorf("update failed: password hash error: %v", err)
			return domain.Profile{}, err
		}
		updated.PasswordHash = hash
	}
	if patch.IsAdmin != nil {
		updated.IsAdmin = *patch.IsAdmin
	}
	updated.UpdatedAt = s.clock.Now()

	if err := s.store.Update(ctx, updated); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailAlreadyRegistered):
			return domain.Profile{}, ErrEmailTaken
		case errors.Is(err, repository.ErrUserNotFound):
			return domain.Profile{}, ErrUserNotFound
		}
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(caller.ID),
			"action":  "update_store_failed",
		}).Errorf("update failed: %v", err)
		return domain.Profile{}, ErrStoreFailure.WithCause(err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(caller.ID),
		"action":  "update_success",
	}).Info("user updated")

	return updated.Profile(), nil
}

// Delete removes the target record. Self-delete is always allowed;
// deleting another user requires the caller to be an admin.
func (s *UserService) Delete(ctx context.Context, targetID domain.ID, callerID domain.ID) error {
	if targetID != callerID {
		caller, err := s.store.FindByID(ctx, callerID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return ErrStoreFailure.WithCause(err)
		}
		if !caller.IsAdmin {
			s.log.WithFields(ctx, logger.Fields{
				"user_id":   string(callerID),
				"target_id": string(targetID),
				"action":    "delete_cross_user_denied",
			}).Warn("delete failed: non-admin targeting another user")
			return ErrAdminRequired
		}
	}

	if err := s.store.Remove(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		s.log.WithFields(ctx, logger.Fields{
			"target_id": string(targetID),
			"action":    "delete_store_failed",
		}).Errorf("delete failed: %v", err)
		return ErrStoreFailure.WithCause(err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id":   string(callerID),
		"target_id": string(targetID),
		"action":    "delete_success",
	}).Info("user deleted")

	metrics.UsersDeletedTotal.Inc()

	return nil
}
