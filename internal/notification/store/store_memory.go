// Package store keeps per-user notification inboxes.
package store

import (
	"context"
	"sync"

	"engage/internal/notification/models"
)

// DefaultInboxSize is how many notifications an inbox keeps.
const DefaultInboxSize = 100

type InMemoryStore struct {
	mu      sync.RWMutex
	inboxes map[string][]models.Notification
	size    int
}

func NewInMemoryStore(size int) *InMemoryStore {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &InMemoryStore{inboxes: make(map[string][]models.Notification), size: size}
}

// Deliver prepends n to the recipient's inbox, dropping the oldest entries
// beyond the inbox size.
func (s *InMemoryStore) Deliver(_ context.Context, n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := inboxKey(n.OrganizationID, n.RecipientID)
	inbox := append([]models.Notification{n}, s.inboxes[key]...)
	if len(inbox) > s.size {
		inbox = inbox[:s.size]
	}
	s.inboxes[key] = inbox
	return nil
}

// Recent returns up to limit notifications, newest first.
func (s *InMemoryStore) Recent(_ context.Context, organizationID, userID string, limit int) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inbox := s.inboxes[inboxKey(organizationID, userID)]
	if limit <= 0 || limit > len(inbox) {
		limit = len(inbox)
	}
	return append([]models.Notification{}, inbox[:limit]...), nil
}

func inboxKey(organizationID, userID string) string {
	return "notifications:" + organizationID + ":" + userID
}
