package service_test

import (
	"context"
	"time"

	"github.com/akentev/account-service/internal/account/domain"
	"github.com/akentev/account-service/internal/account/repository"
	"github.com/akentev/account-service/internal/account/service"
	"github.com/akentev/account-service/internal/common/clock"
	"github.com/akentev/account-service/internal/common/logger"
	"github.com/akentev/account-service/internal/common/token"
)

const testSecret = "test-secret-key-at-least-32-bytes!!"

type mockStore struct {
	appendFunc      func(ctx context.Context, user domain.User) error
	findByIDFunc    func(ctx context.Context, id domain.ID) (domain.User, error)
	findByEmailFunc func(ctx context.Context, email string) (domain.User, error)
	listFunc        func(ctx context.Context) ([]domain.User, error)
	updateFunc      func(ctx context.Context, user domain.User) error
	removeFunc      func(ctx context.Context, id domain.ID) error
}

func (m *mockStore) Append(ctx context.Context, user domain.User) error {
	if m.appendFunc != nil {
		return m.appendFunc(ctx, user)
	}
	return nil
}

func (m *mockStore) FindByID(ctx context.Context, id domain.ID) (domain.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return domain.User{}, repository.ErrUserNotFound
}

func (m *mockStore) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return domain.User{}, repository.ErrUserNotFound
}

func (m *mockStore) List(ctx context.Context) ([]domain.User, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockStore) Update(ctx context.Context, user domain.User) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, user)
	}
	return nil
}

func (m *mockStore) Remove(ctx context.Context, id domain.ID) error {
	if m.removeFunc != nil {
		return m.removeFunc(ctx, id)
	}
	return nil
}

type mockHasher struct {
	hashFunc    func(password string) (string, error)
	compareFunc func(hash string, password string) error
}

func (m *mockHasher) Hash(password string) (string, error) {
	if m.hashFunc != nil {
		return m.hashFunc(password)
	}
	return "hashed:" + password, nil
}

func (m *mockHasher) Compare(hash string, password string) error {
	if m.compareFunc != nil {
		return m.compareFunc(hash, password)
	}
	return nil
}

type mockIDGenerator struct {
	newIDFunc func() (string, error)
}

func (m *mockIDGenerator) NewID() (string, error) {
	if m.newIDFunc != nil {
		return m.newIDFunc()
	}
	return "generated-id", nil
}

func setupUserService(t interface{ Helper() }) (*service.UserService, *mockStore, *mockHasher, *mockIDGenerator, *clock.MockClock, *token.Service) {
	t.Helper()

	store := &mockStore{}
	hasher := &mockHasher{}
	idGen := &mockIDGenerator{}
	clk := clock.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	tokens := token.NewService(testSecret, 24*time.Hour)
	log, _ := logger.New("", "test", "error")

	svc := service.NewUserService(store, hasher, idGen, tokens, clk, log)
	return svc, store, hasher, idGen, clk, tokens
}

func setupSessionService(t interface{ Helper() }) (*service.SessionService, *mockStore, *mockHasher, *token.Service) {
	t.Helper()

	store := &mockStore{}
	hasher := &mockHasher{}
	tokens := token.NewService(testSecret, 24*time.Hour)
	log, _ := logger.New("", "test", "error")

	svc := service.NewSessionService(store, hasher, tokens, log)
	return svc, store, hasher, tokens
}
