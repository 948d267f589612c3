package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/sitedrop/backend/internal/domain"
	"github.com/pkordes/sitedrop/backend/internal/repo"
)

// AvailabilityService reports remaining capacity per slot. It reads booked
// counts from the same ClaimStore that admission writes, so the numbers it
// shows never include capacity the store does not actually hold.
type AvailabilityService struct {
	slots  repo.SlotRepo
	claims repo.ClaimStore
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(slots repo.SlotRepo, claims repo.ClaimStore) *AvailabilityService {
	return &AvailabilityService{slots: slots, claims: claims}
}

// ForDay returns one entry per configured label of supplierID on day, in
// configured order. A supplier with no slots yields an empty list.
func (s *AvailabilityService) ForDay(ctx context.Context, supplierID uuid.UUID, day time.Time) ([]domain.SlotAvailability, error) {
	ctx, span := tracer.Start(ctx, "AvailabilityService.ForDay")
	defer span.End()

	slots, err := s.slots.List(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("service.AvailabilityService.ForDay: %w", err)
	}
	if len(slots) == 0 {
		return []domain.SlotAvailability{}, nil
	}

	labels := make([]string, len(slots))
	for i, slot := range slots {
		labels[i] = slot.Label
	}

	counts, err := s.claims.Counts(ctx, supplierID, domain.NormalizeDay(day), labels)
	if err != nil {
		return nil, fmt.Errorf("service.AvailabilityService.ForDay: %w", err)
	}

	out := make([]domain.SlotAvailability, len(slots))
	for i, slot := range slots {
		out[i] = domain.NewSlotAvailability(slot, counts[slot.Label])
	}
	return out, nil
}
