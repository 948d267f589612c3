// Package claimstore provides the non-Postgres implementations of
// repo.ClaimStore: an in-process store for single-instance deployments and
// tests, and a Redis store for fleets that share admission state.
package claimstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/sitedrop/backend/internal/domain"
	"github.com/pkordes/sitedrop/backend/internal/repo"
)

// Memory keeps claims in process memory with one mutex per slot key, so
// reservations on different keys run in parallel.
type Memory struct {
	mu    sync.Mutex // guards slots, never held while a key is locked
	slots map[string]*slotClaims
}

type slotClaims struct {
	mu     sync.Mutex
	claims map[uuid.UUID]struct{}
}

var _ repo.ClaimStore = (*Memory)(nil)

// NewMemory returns an empty in-process claim store.
func NewMemory() *Memory {
	return &Memory{slots: map[string]*slotClaims{}}
}

func (m *Memory) slot(key domain.SlotKey) *slotClaims {
	k := domain.NewSlotKey(key.SupplierID, key.Day, key.Label).String()

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[k]
	if !ok {
		s = &slotClaims{claims: map[uuid.UUID]struct{}{}}
		m.slots[k] = s
	}
	return s
}

func (m *Memory) Acquire(ctx context.Context, key domain.SlotKey, capacity int, claimID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s := m.slot(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.claims[claimID]; held {
		return len(s.claims), nil
	}
	if len(s.claims) >= capacity {
		return 0, domain.ErrSlotFull
	}
	s.claims[claimID] = struct{}{}
	return len(s.claims), nil
}

func (m *Memory) Release(ctx context.Context, key domain.SlotKey, claimID uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := m.slot(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.claims[claimID]; !held {
		return false, nil
	}
	delete(s.claims, claimID)
	return true, nil
}

func (m *Memory) Counts(ctx context.Context, supplierID uuid.UUID, day time.Time, labels []string) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(labels))
	for _, label := range labels {
		s := m.slot(domain.NewSlotKey(supplierID, day, label))
		s.mu.Lock()
		counts[label] = len(s.claims)
		s.mu.Unlock()
	}
	return counts, nil
}
