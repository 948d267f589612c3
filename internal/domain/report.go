package domain

import (
	"time"

	"github.com/google/uuid"
)

// SLASummary aggregates delivery outcomes for one supplier over a date range.
type SLASummary struct {
	SupplierID    uuid.UUID
	From          time.Time
	To            time.Time
	OnTime        int
	Late          int
	NotApplicable int
	// InProgress counts orders not yet delivered or cancelled.
	InProgress int
	Cancelled  int
}

// Classified returns the number of delivered orders with a definite outcome.
func (s SLASummary) Classified() int {
	return s.OnTime + s.Late
}

// OnTimeRate is the share of classified deliveries that were on time, in [0, 1].
// It is zero when nothing has been classified.
func (s SLASummary) OnTimeRate() float64 {
	if s.Classified() == 0 {
		return 0
	}
	return float64(s.OnTime) / float64(s.Classified())
}

// ExportRow is a single row in the order export.
// It is a flat view of one order, suitable for CSV and spreadsheet output.
type ExportRow struct {
	OrderID      string
	CustomerID   string
	SiteID       string
	ScheduledDay string // "2006-01-02" formatted date
	SlotLabel    string
	Status       string
	SLAStatus    string // empty until delivered
	CreatedAt    time.Time
	DeliveredAt  *time.Time
}

// ExportFilter narrows an order export.
// An empty Statuses slice exports every status.
type ExportFilter struct {
	SupplierID uuid.UUID
	From       time.Time
	To         time.Time
	Statuses   []OrderStatus
}
