package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/sitedrop/backend/internal/domain"
	"github.com/pkordes/sitedrop/backend/internal/repo"
)

// maxReportDays bounds a single report request to roughly one year.
const maxReportDays = 366

// ReportService serves read-only supplier reports.
type ReportService struct {
	reports repo.ReportRepo
}

// NewReportService constructs a ReportService.
func NewReportService(reports repo.ReportRepo) *ReportService {
	return &ReportService{reports: reports}
}

// SLASummary counts supplierID's orders scheduled between from and to
// (inclusive) by delivery outcome.
func (s *ReportService) SLASummary(ctx context.Context, supplierID uuid.UUID, from, to time.Time) (domain.SLASummary, error) {
	from, to = domain.NormalizeDay(from), domain.NormalizeDay(to)
	if err := validateRange(supplierID, from, to); err != nil {
		return domain.SLASummary{}, fmt.Errorf("service.ReportService.SLASummary: %w", err)
	}

	sum, err := s.reports.SLASummary(ctx, supplierID, from, to)
	if err != nil {
		return domain.SLASummary{}, fmt.Errorf("service.ReportService.SLASummary: %w", err)
	}
	return sum, nil
}

// Export returns the flat order rows matching f, ordered by day, slot and
// creation time.
func (s *ReportService) Export(ctx context.Context, f domain.ExportFilter) ([]domain.ExportRow, error) {
	f.From, f.To = domain.NormalizeDay(f.From), domain.NormalizeDay(f.To)
	if err := validateRange(f.SupplierID, f.From, f.To); err != nil {
		return nil, fmt.Errorf("service.ReportService.Export: %w", err)
	}
	for _, st := range f.Statuses {
		if !st.Valid() {
			return nil, fmt.Errorf("service.ReportService.Export: %w: unknown status %q", domain.ErrValidation, st)
		}
	}

	rows, err := s.reports.ExportRows(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("service.ReportService.Export: %w", err)
	}
	return rows, nil
}

func validateRange(supplierID uuid.UUID, from, to time.Time) error {
	if supplierID == uuid.Nil {
		return fmt.Errorf("%w: supplier id is required", domain.ErrValidation)
	}
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: from and to are required", domain.ErrValidation)
	}
	if to.Before(from) {
		return fmt.Errorf("%w: to must not be before from", domain.ErrValidation)
	}
	if to.Sub(from) > maxReportDays*24*time.Hour {
		return fmt.Errorf("%w: range must not exceed %d days", domain.ErrValidation, maxReportDays)
	}
	return nil
}
