package handler

import (
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/sitedrop/backend/internal/domain"
)

// SlotAvailability is one label's live capacity.
type SlotAvailability struct {
	Label           string `json:"label"`
	MaxOrdersPerDay int    `json:"max_orders_per_day"`
	Booked          int    `json:"booked"`
	Available       int    `json:"available"`
	IsActive        bool   `json:"is_active"`
	Hint            string `json:"hint"`
}

// AvailabilityResponse is the body of GET /suppliers/{supplierId}/availability/{day}.
type AvailabilityResponse struct {
	SupplierID openapi_types.UUID `json:"supplier_id"`
	Day        openapi_types.Date `json:"day"`
	Slots      []SlotAvailability `json:"slots"`
}

// CounterDrift reports one label corrected by reconciliation.
type CounterDrift struct {
	Label  string `json:"label"`
	Before int    `json:"before"`
	After  int    `json:"after"`
}

// ReconcileResponse is the body of POST .../availability/{day}/reconcile.
type ReconcileResponse struct {
	SupplierID openapi_types.UUID `json:"supplier_id"`
	Day        openapi_types.Date `json:"day"`
	Drift      []CounterDrift     `json:"drift"`
}

// GetAvailability handles GET /suppliers/{supplierId}/availability/{day}.
func (s *Server) GetAvailability(w http.ResponseWriter, r *http.Request) {
	supplierID, err := pathUUID(r, "supplierId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	day, err := pathDate(r, "day")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	list, err := s.availability.ForDay(r.Context(), supplierID, day)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := AvailabilityResponse{
		SupplierID: supplierID,
		Day:        openapi_types.Date{Time: domain.NormalizeDay(day)},
		Slots:      make([]SlotAvailability, len(list)),
	}
	for i, a := range list {
		resp.Slots[i] = SlotAvailability{
			Label:           a.Label,
			MaxOrdersPerDay: a.MaxOrdersPerDay,
			Booked:          a.Booked,
			Available:       a.Available,
			IsActive:        a.IsActive,
			Hint:            string(a.Hint),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ReconcileDay handles POST /suppliers/{supplierId}/availability/{day}/reconcile.
func (s *Server) ReconcileDay(w http.ResponseWriter, r *http.Request) {
	supplierID, err := pathUUID(r, "supplierId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	day, err := pathDate(r, "day")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	drift, err := s.admission.Reconcile(r.Context(), supplierID, day)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := ReconcileResponse{
		SupplierID: supplierID,
		Day:        openapi_types.Date{Time: domain.NormalizeDay(day)},
		Drift:      make([]CounterDrift, len(drift)),
	}
	for i, d := range drift {
		resp.Drift[i] = CounterDrift{Label: d.Label, Before: d.Before, After: d.After}
	}
	writeJSON(w, http.StatusOK, resp)
}
