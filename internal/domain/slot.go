package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DayLayout is the wire and storage format of a delivery day.
const DayLayout = "2006-01-02"

// SlotDefinition is one named delivery window a supplier offers every day.
// The label doubles as the human-readable window ("8–11 AM") and as the
// identity of the slot within the supplier.
type SlotDefinition struct {
	SupplierID uuid.UUID
	Label      string
	// MaxOrdersPerDay is the number of orders the slot absorbs per day.
	// Zero means the slot is closed.
	MaxOrdersPerDay int
	IsActive        bool
	// Position preserves the order in which labels were first configured.
	Position  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SlotInput is one entry of an upsert request from the supplier console.
type SlotInput struct {
	Label           string
	MaxOrdersPerDay int
	IsActive        bool
}

// SlotKey identifies a single booking counter: one label on one day for one
// supplier. Reservations on different keys never contend.
type SlotKey struct {
	SupplierID uuid.UUID
	Day        time.Time
	Label      string
}

// NewSlotKey builds a SlotKey with the day normalized to a calendar date.
func NewSlotKey(supplierID uuid.UUID, day time.Time, label string) SlotKey {
	return SlotKey{SupplierID: supplierID, Day: NormalizeDay(day), Label: label}
}

// String renders the key as "supplier|2006-01-02|label".
func (k SlotKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.SupplierID, k.Day.Format(DayLayout), k.Label)
}

// NormalizeDay strips the clock portion of t, keeping its calendar date.
// The result is midnight UTC so that two days compare equal with ==.
func NormalizeDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
