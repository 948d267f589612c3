package handler

import (
	"net/http"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/sitedrop/backend/internal/domain"
)

// SlotInput is one entry of a PUT /suppliers/{supplierId}/slots body.
// IsActive defaults to true when omitted.
type SlotInput struct {
	Label           string `json:"label"`
	MaxOrdersPerDay *int   `json:"max_orders_per_day"`
	IsActive        *bool  `json:"is_active,omitempty"`
}

// PutSlotsRequest is the body of PUT /suppliers/{supplierId}/slots.
type PutSlotsRequest struct {
	Slots []SlotInput `json:"slots"`
}

// Slot is the wire form of a slot definition.
type Slot struct {
	SupplierID      openapi_types.UUID `json:"supplier_id"`
	Label           string             `json:"label"`
	MaxOrdersPerDay int                `json:"max_orders_per_day"`
	IsActive        bool               `json:"is_active"`
	Position        int                `json:"position"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// SlotList is the body of both slot endpoints' responses.
type SlotList struct {
	Data []Slot `json:"data"`
}

// PutSlots handles PUT /suppliers/{supplierId}/slots.
func (s *Server) PutSlots(w http.ResponseWriter, r *http.Request) {
	supplierID, err := pathUUID(r, "supplierId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req PutSlotsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	inputs := make([]domain.SlotInput, len(req.Slots))
	for i, in := range req.Slots {
		if in.MaxOrdersPerDay == nil {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "max_orders_per_day is required for "+in.Label)
			return
		}
		active := true
		if in.IsActive != nil {
			active = *in.IsActive
		}
		inputs[i] = domain.SlotInput{Label: in.Label, MaxOrdersPerDay: *in.MaxOrdersPerDay, IsActive: active}
	}

	slots, err := s.catalog.UpsertSlots(r.Context(), supplierID, inputs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slotsToResponse(slots))
}

// ListSlots handles GET /suppliers/{supplierId}/slots.
func (s *Server) ListSlots(w http.ResponseWriter, r *http.Request) {
	supplierID, err := pathUUID(r, "supplierId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	slots, err := s.catalog.ListSlots(r.Context(), supplierID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slotsToResponse(slots))
}

func slotsToResponse(slots []domain.SlotDefinition) SlotList {
	out := SlotList{Data: make([]Slot, len(slots))}
	for i, d := range slots {
		out.Data[i] = Slot{
			SupplierID:      d.SupplierID,
			Label:           d.Label,
			MaxOrdersPerDay: d.MaxOrdersPerDay,
			IsActive:        d.IsActive,
			Position:        d.Position,
			CreatedAt:       d.CreatedAt,
			UpdatedAt:       d.UpdatedAt,
		}
	}
	return out
}
