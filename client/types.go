package client

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// SlotInput is one entry of a PutSlots call. A nil IsActive means active.
type SlotInput struct {
	Label           string `json:"label"`
	MaxOrdersPerDay int    `json:"max_orders_per_day"`
	IsActive        *bool  `json:"is_active,omitempty"`
}

type PutSlotsRequest struct {
	Slots []SlotInput `json:"slots"`
}

type Slot struct {
	SupplierID      openapi_types.UUID `json:"supplier_id"`
	Label           string             `json:"label"`
	MaxOrdersPerDay int                `json:"max_orders_per_day"`
	IsActive        bool               `json:"is_active"`
	Position        int                `json:"position"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

type SlotList struct {
	Data []Slot `json:"data"`
}

type SlotAvailability struct {
	Label           string `json:"label"`
	MaxOrdersPerDay int    `json:"max_orders_per_day"`
	Booked          int    `json:"booked"`
	Available       int    `json:"available"`
	IsActive        bool   `json:"is_active"`
	Hint            string `json:"hint"`
}

type Availability struct {
	SupplierID openapi_types.UUID `json:"supplier_id"`
	Day        openapi_types.Date `json:"day"`
	Slots      []SlotAvailability `json:"slots"`
}

type CounterDrift struct {
	Label  string `json:"label"`
	Before int    `json:"before"`
	After  int    `json:"after"`
}

type ReconcileResult struct {
	SupplierID openapi_types.UUID `json:"supplier_id"`
	Day        openapi_types.Date `json:"day"`
	Drift      []CounterDrift     `json:"drift"`
}

type PlaceOrderRequest struct {
	CustomerID openapi_types.UUID `json:"customer_id"`
	SiteID     openapi_types.UUID `json:"site_id"`
	Day        openapi_types.Date `json:"day"`
	SlotLabel  string             `json:"slot_label"`
}

type TransitionRequest struct {
	Status string `json:"status"`
}

type Order struct {
	ID           openapi_types.UUID `json:"id"`
	SupplierID   openapi_types.UUID `json:"supplier_id"`
	CustomerID   openapi_types.UUID `json:"customer_id"`
	SiteID       openapi_types.UUID `json:"site_id"`
	ScheduledDay openapi_types.Date `json:"scheduled_day"`
	SlotLabel    string             `json:"slot_label"`
	Status       string             `json:"status"`
	SLAStatus    *string            `json:"sla_status,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	DeliveredAt  *time.Time         `json:"delivered_at,omitempty"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type OrderList struct {
	Data       []Order    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type SLAReport struct {
	SupplierID    openapi_types.UUID `json:"supplier_id"`
	From          openapi_types.Date `json:"from"`
	To            openapi_types.Date `json:"to"`
	OnTime        int                `json:"on_time"`
	Late          int                `json:"late"`
	NotApplicable int                `json:"not_applicable"`
	InProgress    int                `json:"in_progress"`
	Cancelled     int                `json:"cancelled"`
	OnTimeRate    float64            `json:"on_time_rate"`
}
