package memory

import (
	"context"
	"sort"
	"sync"

	audit "engage/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	seen   map[string]struct{}
	events map[string][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		seen:   make(map[string]struct{}),
		events: make(map[string][]audit.Event),
	}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[string]struct{})
	s.events = make(map[string][]audit.Event)
}

// Append stores event once per ID.
func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[event.ID]; dup {
		return nil
	}
	s.seen[event.ID] = struct{}{}
	s.events[event.OrganizationID] = append(s.events[event.OrganizationID], event)
	return nil
}

// ListByOrganization returns up to limit events, most recent first.
func (s *InMemoryStore) ListByOrganization(_ context.Context, organizationID string, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]audit.Event{}, s.events[organizationID]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListAll returns all audit events across organizations in insertion order
// per organization.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []audit.Event
	for _, orgEvents := range s.events {
		all = append(all, orgEvents...)
	}
	return all, nil
}
