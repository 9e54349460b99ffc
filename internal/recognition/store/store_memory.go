// Package store keeps recognitions and point balances in memory.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"engage/internal/recognition/models"
	"engage/pkg/platform/sentinel"
)

// ErrInsufficientBalance is returned when a debit would take a balance below
// zero.
var ErrInsufficientBalance = errors.New("insufficient balance")

// DefaultAllowance is the balance every user starts with.
const DefaultAllowance = 500

type InMemoryStore struct {
	mu           sync.RWMutex
	recognitions map[string]models.Recognition
	balances     map[string]int
	allowance    int
}

type Option func(*InMemoryStore)

// WithAllowance sets the starting balance of users seen for the first time.
func WithAllowance(points int) Option {
	return func(s *InMemoryStore) {
		s.allowance = points
	}
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		recognitions: make(map[string]models.Recognition),
		balances:     make(map[string]int),
		allowance:    DefaultAllowance,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Save(_ context.Context, rec models.Recognition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recognitions[rec.ID] = rec
	return nil
}

// FindByID returns the recognition if it belongs to organizationID.
func (s *InMemoryStore) FindByID(_ context.Context, organizationID, id string) (*models.Recognition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recognitions[id]
	if !ok || rec.OrganizationID != organizationID {
		return nil, fmt.Errorf("recognition %s: %w", id, sentinel.ErrNotFound)
	}
	return &rec, nil
}

// Review records the outcome of a pending recognition. Only one review can
// win: a recognition that is no longer pending yields sentinel.ErrInvalidState.
func (s *InMemoryStore) Review(_ context.Context, organizationID, id string, review models.Review) (*models.Recognition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recognitions[id]
	if !ok || rec.OrganizationID != organizationID {
		return nil, fmt.Errorf("recognition %s: %w", id, sentinel.ErrNotFound)
	}
	if !rec.IsPending() {
		return nil, fmt.Errorf("recognition %s is %s: %w", id, rec.Status, sentinel.ErrInvalidState)
	}
	reviewedAt := review.ReviewedAt
	rec.Status = review.Status
	rec.ReviewedBy = review.ReviewedBy
	rec.ReviewedAt = &reviewedAt
	rec.RejectReason = review.RejectReason
	s.recognitions[id] = rec
	return &rec, nil
}

// ListByOrganization returns one page of recognitions, newest first, and the
// total count.
func (s *InMemoryStore) ListByOrganization(_ context.Context, organizationID string, offset, limit int) ([]models.Recognition, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]models.Recognition, 0)
	for _, rec := range s.recognitions {
		if rec.OrganizationID == organizationID {
			all = append(all, rec)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := len(all)
	if offset >= total {
		return []models.Recognition{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

// Balance returns the user's current points.
func (s *InMemoryStore) Balance(_ context.Context, organizationID, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balanceLocked(organizationID, userID), nil
}

// Adjust moves a user's balance by delta atomically.
func (s *InMemoryStore) Adjust(_ context.Context, organizationID, userID string, delta int) (models.BalanceChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.balanceLocked(organizationID, userID)
	after := before + delta
	if after < 0 {
		return models.BalanceChange{}, ErrInsufficientBalance
	}
	s.balances[balanceKey(organizationID, userID)] = after
	return models.BalanceChange{Before: before, After: after}, nil
}

func (s *InMemoryStore) balanceLocked(organizationID, userID string) int {
	if b, ok := s.balances[balanceKey(organizationID, userID)]; ok {
		return b
	}
	return s.allowance
}

func balanceKey(organizationID, userID string) string {
	return organizationID + "/" + userID
}
