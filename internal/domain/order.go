package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of a delivery order.
type OrderStatus string

const (
	StatusPlaced     OrderStatus = "PLACED"
	StatusAccepted   OrderStatus = "ACCEPTED"
	StatusDispatched OrderStatus = "DISPATCHED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// transitions lists the permitted successors of each status.
// DELIVERED and CANCELLED are terminal.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPlaced:     {StatusAccepted, StatusCancelled},
	StatusAccepted:   {StatusDispatched, StatusCancelled},
	StatusDispatched: {StatusDelivered},
}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPlaced, StatusAccepted, StatusDispatched, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// HoldsCapacity reports whether an order in status s occupies a slot.
// Every status except CANCELLED does.
func (s OrderStatus) HoldsCapacity() bool {
	return s != StatusCancelled
}

// CanTransition reports whether to is a permitted successor of from.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SLAStatus classifies a delivered order against its booked window.
type SLAStatus string

const (
	SLANotApplicable SLAStatus = "NOT_APPLICABLE"
	SLAOnTime        SLAStatus = "ON_TIME"
	SLALate          SLAStatus = "LATE"
)

// Order is a customer delivery order admitted into a supplier slot.
// ID doubles as the claim id held against the slot's booking counter.
type Order struct {
	ID                 uuid.UUID
	SupplierID         uuid.UUID
	CustomerID         uuid.UUID
	SiteID             uuid.UUID
	ScheduledDay       time.Time
	ScheduledSlotLabel string
	Status             OrderStatus
	SLAStatus          *SLAStatus // nil until DELIVERED
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeliveredAt        *time.Time
}

// SlotKey returns the booking counter key the order occupies.
func (o Order) SlotKey() SlotKey {
	return NewSlotKey(o.SupplierID, o.ScheduledDay, o.ScheduledSlotLabel)
}

// PlaceOrderInput carries a checkout request into the order lifecycle.
type PlaceOrderInput struct {
	SupplierID uuid.UUID
	CustomerID uuid.UUID
	SiteID     uuid.UUID
	Day        time.Time
	SlotLabel  string
}

// Reservation is the claim returned by a successful admission. Releasing it
// is idempotent.
type Reservation struct {
	ClaimID  uuid.UUID
	Key      SlotKey
	Booked   int
	Capacity int
}

// OrderClaim is the slice of an order that determines whether it should hold
// a claim on its slot.
type OrderClaim struct {
	OrderID uuid.UUID
	Label   string
	Status  OrderStatus
}
