package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing supplier id, blank slot label).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrInvalidCapacity is returned when a slot is configured with a negative
// maximum order count.
var ErrInvalidCapacity = errors.New("invalid capacity")

// ErrSlotUnknown is returned when a reservation names a label the supplier
// has never configured.
var ErrSlotUnknown = errors.New("slot unknown")

// ErrSlotInactive is returned when a reservation names a label the supplier
// has switched off.
var ErrSlotInactive = errors.New("slot inactive")

// ErrSlotFull is returned when a slot has no remaining capacity for the
// requested day. Capacity zero always yields this error.
var ErrSlotFull = errors.New("slot full")

// ErrInvalidTransition is returned when an order status change is not a
// permitted successor of the current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrUnparseableSlot is returned by the slot window parser when a label does
// not describe a time window. It never escapes the SLA evaluator.
var ErrUnparseableSlot = errors.New("unparseable slot label")
