package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pkordes/sitedrop/backend/internal/domain"
	"github.com/pkordes/sitedrop/backend/internal/repo"
)

// CatalogService manages the named delivery slots each supplier offers.
type CatalogService struct {
	slots repo.SlotRepo
	log   *zap.Logger
}

// NewCatalogService constructs a CatalogService backed by the provided SlotRepo.
func NewCatalogService(slots repo.SlotRepo, log *zap.Logger) *CatalogService {
	return &CatalogService{slots: slots, log: log}
}

// UpsertSlots creates or updates the given labels for supplierID and returns
// the supplier's full catalog. Labels are trimmed; omitted labels are left
// as they are. Concurrent edits are last-writer-wins.
func (s *CatalogService) UpsertSlots(ctx context.Context, supplierID uuid.UUID, inputs []domain.SlotInput) ([]domain.SlotDefinition, error) {
	if supplierID == uuid.Nil {
		return nil, fmt.Errorf("service.CatalogService.UpsertSlots: %w: supplier id is required", domain.ErrValidation)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("service.CatalogService.UpsertSlots: %w: at least one slot is required", domain.ErrValidation)
	}

	clean := make([]domain.SlotInput, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		in.Label = strings.TrimSpace(in.Label)
		if in.Label == "" {
			return nil, fmt.Errorf("service.CatalogService.UpsertSlots: %w: slot label is required", domain.ErrValidation)
		}
		if seen[in.Label] {
			return nil, fmt.Errorf("service.CatalogService.UpsertSlots: %w: duplicate slot label %q", domain.ErrValidation, in.Label)
		}
		if in.MaxOrdersPerDay < 0 {
			return nil, fmt.Errorf("service.CatalogService.UpsertSlots: %w: %q must not be negative, got %d",
				domain.ErrInvalidCapacity, in.Label, in.MaxOrdersPerDay)
		}
		seen[in.Label] = true
		clean = append(clean, in)
	}

	slots, err := s.slots.Upsert(ctx, supplierID, clean)
	if err != nil {
		return nil, fmt.Errorf("service.CatalogService.UpsertSlots: %w", err)
	}

	s.log.Info("slot catalog updated",
		zap.String("supplier_id", supplierID.String()),
		zap.Int("labels_written", len(clean)),
		zap.Int("labels_total", len(slots)),
	)
	return slots, nil
}

// ListSlots returns every label the supplier has configured, inactive ones
// included, in configured order.
func (s *CatalogService) ListSlots(ctx context.Context, supplierID uuid.UUID) ([]domain.SlotDefinition, error) {
	slots, err := s.slots.List(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("service.CatalogService.ListSlots: %w", err)
	}
	return slots, nil
}
