package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"creditdesk/internal/audit"
	id "creditdesk/pkg/domain"
)

// InMemoryStore keeps the audit trail in process. Test and dev use only; the
// append-only invariant is enforced by the API surface (no update/delete).
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
	nextID  int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1}
}

func (s *InMemoryStore) Append(_ context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.nextID
	s.nextID++
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filtered(func(audit.Entry) bool { return true }), nil
}

func (s *InMemoryStore) ListByApplication(_ context.Context, applicationID id.ApplicationID) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filtered(func(e audit.Entry) bool { return e.ApplicationID == applicationID }), nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filtered(func(e audit.Entry) bool { return e.UserID == userID }), nil
}

func (s *InMemoryStore) ListByAction(_ context.Context, action string) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filtered(func(e audit.Entry) bool { return e.Action == action }), nil
}

func (s *InMemoryStore) ListByDateRange(_ context.Context, start, end time.Time) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filtered(func(e audit.Entry) bool {
		return !e.Timestamp.Before(start) && !e.Timestamp.After(end)
	}), nil
}

func (s *InMemoryStore) ListPaginated(_ context.Context, page, pageSize int, filter *audit.Filter) ([]audit.Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := s.filtered(func(e audit.Entry) bool { return matches(e, filter) })

	total := len(matched)
	offset := (page - 1) * pageSize
	if offset >= total {
		return []audit.Entry{}, total, nil
	}
	limit := offset + pageSize
	if limit > total {
		limit = total
	}
	return matched[offset:limit], total, nil
}

// filtered returns matching entries newest first. Callers hold the lock.
func (s *InMemoryStore) filtered(keep func(audit.Entry) bool) []audit.Entry {
	out := make([]audit.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func matches(e audit.Entry, f *audit.Filter) bool {
	if f.IsZero() {
		return true
	}
	if f.ApplicationID != nil && e.ApplicationID != *f.ApplicationID {
		return false
	}
	if f.UserID != nil && e.UserID != *f.UserID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.StartDate != nil && e.Timestamp.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.Timestamp.After(*f.EndDate) {
		return false
	}
	return true
}
