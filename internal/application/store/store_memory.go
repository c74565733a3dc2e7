package store

import (
	"context"
	"sort"
	"sync"

	"creditdesk/internal/application"
	id "creditdesk/pkg/domain"
	dErrors "creditdesk/pkg/domain-errors"
)

// InMemoryStore keeps applications in process for tests and dev.
type InMemoryStore struct {
	mu     sync.RWMutex
	apps   map[id.ApplicationID]application.CreditApplication
	nextID int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		apps:   make(map[id.ApplicationID]application.CreditApplication),
		nextID: 1,
	}
}

func (s *InMemoryStore) Create(_ context.Context, app *application.CreditApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app.ID = id.ApplicationID(s.nextID)
	s.nextID++
	s.apps[app.ID] = *app
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, applicationID id.ApplicationID) (*application.CreditApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[applicationID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "credit application not found")
	}
	return &app, nil
}

func (s *InMemoryStore) GetByUserID(_ context.Context, userID id.UserID) ([]application.CreditApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(a application.CreditApplication) bool { return a.UserID == userID }), nil
}

func (s *InMemoryStore) GetAll(_ context.Context, statusFilter *id.ApplicationStatus) ([]application.CreditApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(a application.CreditApplication) bool {
		return statusFilter == nil || a.Status == *statusFilter
	}), nil
}

func (s *InMemoryStore) Update(_ context.Context, app *application.CreditApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[app.ID]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "credit application not found")
	}
	s.apps[app.ID] = *app
	return nil
}

// collect returns matching applications newest first. Callers hold the lock.
func (s *InMemoryStore) collect(keep func(application.CreditApplication) bool) []application.CreditApplication {
	out := make([]application.CreditApplication, 0, len(s.apps))
	for _, app := range s.apps {
		if keep(app) {
			out = append(out, app)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
