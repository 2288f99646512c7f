package repository

import (
	"context"
	"sync"

	"github.com/akentev/account-service/internal/account/domain"
)

// MemoryStore keeps users in insertion order behind a single lock, so
// concurrent creates racing on the same email cannot both win.
type MemoryStore struct {
	mu    sync.RWMutex
	users []domain.User
	byID  map[domain.ID]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[domain.ID]int),
	}
}

func (s *MemoryStore) Append(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return ErrEmailAlreadyRegistered
		}
	}

	s.byID[user.ID] = len(s.users)
	s.users = append(s.users, user)
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id domain.ID) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return s.users[idx], nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, ErrUserNotFound
}

func (s *MemoryStore) List(ctx context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.User, len(s.users))
	copy(out, s.users)
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[user.ID]
	if !ok {
		return ErrUserNotFound
	}

	for i, u := range s.users {
		if i != idx && u.Email == user.Email {
			return ErrEmailAlreadyRegistered
		}
	}

	s.users[idx] = user
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, id domain.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}

	s.users = append(s.users[:idx], s.users[idx+1:]...)
	delete(s.byID, id)
	for i := idx; i < len(s.users); i++ {
		s.byID[s.users[i].ID] = i
	}
	return nil
}
