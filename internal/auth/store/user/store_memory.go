package user

import (
	"context"
	"strings"
	"sync"

	"creditdesk/internal/auth"
	id "creditdesk/pkg/domain"
	dErrors "creditdesk/pkg/domain-errors"
)

// InMemoryStore keeps users in process for tests and dev.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.UserID]auth.User
	byEmail map[string]id.UserID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.UserID]auth.User),
		byEmail: make(map[string]id.UserID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, exists := s.byEmail[email]; exists {
		return dErrors.New(dErrors.CodeConflict, "email already registered")
	}
	s.byID[u.ID] = *u
	s.byEmail[email] = u.ID
	return nil
}

func (s *InMemoryStore) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	u := s.byID[userID]
	return &u, nil
}

func (s *InMemoryStore) GetByID(_ context.Context, userID id.UserID) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[userID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return &u, nil
}
