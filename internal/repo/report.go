package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pkordes/sitedrop/backend/internal/domain"
)

// ReportRepo serves read-only aggregate queries for the record keeper.
// It runs on database/sql so it can be pointed at a reporting replica
// independently of the pgx pool used for admission.
type ReportRepo interface {
	// SLASummary counts a supplier's orders scheduled within [from, to] by
	// delivery outcome.
	SLASummary(ctx context.Context, supplierID uuid.UUID, from, to time.Time) (domain.SLASummary, error)

	// ExportRows returns one flat row per order matching f, ordered by day,
	// slot label and creation time.
	ExportRows(ctx context.Context, f domain.ExportFilter) ([]domain.ExportRow, error)
}

type sqlReportRepo struct {
	db *sql.DB
}

// NewReportRepo constructs a ReportRepo over a database/sql handle opened
// with the lib/pq driver.
func NewReportRepo(db *sql.DB) ReportRepo {
	return &sqlReportRepo{db: db}
}

func (r *sqlReportRepo) SLASummary(ctx context.Context, supplierID uuid.UUID, from, to time.Time) (domain.SLASummary, error) {
	const q = `
		SELECT status, COALESCE(sla_status, ''), COUNT(*)
		FROM orders
		WHERE supplier_id = $1 AND scheduled_day BETWEEN $2 AND $3
		GROUP BY status, sla_status`

	summary := domain.SLASummary{SupplierID: supplierID, From: from, To: to}

	rows, err := r.db.QueryContext(ctx, q, supplierID.String(), from, to)
	if err != nil {
		return domain.SLASummary{}, fmt.Errorf("repo.ReportRepo.SLASummary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status, sla string
			n           int
		)
		if err := rows.Scan(&status, &sla, &n); err != nil {
			return domain.SLASummary{}, fmt.Errorf("repo.ReportRepo.SLASummary: scan: %w", err)
		}

		switch domain.OrderStatus(status) {
		case domain.StatusCancelled:
			summary.Cancelled += n
		case domain.StatusDelivered:
			switch domain.SLAStatus(sla) {
			case domain.SLAOnTime:
				summary.OnTime += n
			case domain.SLALate:
				summary.Late += n
			default:
				summary.NotApplicable += n
			}
		default:
			summary.InProgress += n
		}
	}
	if err := rows.Err(); err != nil {
		return domain.SLASummary{}, fmt.Errorf("repo.ReportRepo.SLASummary: rows: %w", err)
	}
	return summary, nil
}

func (r *sqlReportRepo) ExportRows(ctx context.Context, f domain.ExportFilter) ([]domain.ExportRow, error) {
	const q = `
		SELECT id, customer_id, site_id, scheduled_day, scheduled_slot_label,
		       status, COALESCE(sla_status, ''), created_at, delivered_at
		FROM orders
		WHERE supplier_id = $1
		  AND scheduled_day BETWEEN $2 AND $3
		  AND (cardinality($4::text[]) = 0 OR status = ANY($4::text[]))
		ORDER BY scheduled_day, scheduled_slot_label, created_at`

	statuses := make([]string, len(f.Statuses))
	for i, s := range f.Statuses {
		statuses[i] = string(s)
	}

	rows, err := r.db.QueryContext(ctx, q, f.SupplierID.String(), f.From, f.To, pq.Array(statuses))
	if err != nil {
		return nil, fmt.Errorf("repo.ReportRepo.ExportRows: %w", err)
	}
	defer rows.Close()

	out := []domain.ExportRow{}
	for rows.Next() {
		var (
			row         domain.ExportRow
			day         time.Time
			deliveredAt sql.NullTime
		)
		err := rows.Scan(&row.OrderID, &row.CustomerID, &row.SiteID, &day, &row.SlotLabel,
			&row.Status, &row.SLAStatus, &row.CreatedAt, &deliveredAt)
		if err != nil {
			return nil, fmt.Errorf("repo.ReportRepo.ExportRows: scan: %w", err)
		}
		row.ScheduledDay = day.Format(domain.DayLayout)
		if deliveredAt.Valid {
			t := deliveredAt.Time
			row.DeliveredAt = &t
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ReportRepo.ExportRows: rows: %w", err)
	}
	return out, nil
}
