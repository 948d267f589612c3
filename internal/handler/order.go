package handler

import (
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/sitedrop/backend/internal/domain"
)

// PlaceOrderRequest is the body of POST /suppliers/{supplierId}/orders.
type PlaceOrderRequest struct {
	CustomerID openapi_types.UUID `json:"customer_id"`
	SiteID     openapi_types.UUID `json:"site_id"`
	Day        openapi_types.Date `json:"day"`
	SlotLabel  string             `json:"slot_label"`
}

// TransitionRequest is the body of POST /orders/{orderId}/transitions.
type TransitionRequest struct {
	Status string `json:"status"`
}

// Order is the wire form of an order.
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

// Pagination describes the page returned by a list endpoint.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// OrderList is the body of GET /suppliers/{supplierId}/orders.
type OrderList struct {
	Data       []Order    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// PlaceOrder handles POST /suppliers/{supplierId}/orders.
func (s *Server) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	supplierID, err := pathUUID(r, "supplierId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req PlaceOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := s.orders.Place(r.Context(), domain.PlaceOrderInput{
		SupplierID: supplierID,
		CustomerID: req.CustomerID,
		SiteID:     req.SiteID,
		Day:        req.Day.Time,
		SlotLabel:  req.SlotLabel,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderToResponse(order))
}

// ListOrders handles GET /suppliers/{supplierId}/orders?day=&page=&limit=.
// Page defaults to 1 and limit to 50 (max 200).
func (s *Server) ListOrders(w http.ResponseWriter, r *http.Request) {
	supplierID, err := pathUUID(r, "supplierId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	day, err := queryDate(r, "day")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var page, limit *int
	if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &page); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		badRequest(w, err.Error())
		return
	}

	result, err := s.orders.ListForDay(r.Context(), supplierID, day, domain.NewPaginationParams(page, limit))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	data := make([]Order, len(result.Orders))
	for i, o := range result.Orders {
		data[i] = orderToResponse(o)
	}
	writeJSON(w, http.StatusOK, OrderList{
		Data: data,
		Pagination: Pagination{
			Page:  result.Params.Page,
			Limit: result.Params.Limit,
			Total: int(result.Total),
		},
	})
}

// GetOrder handles GET /orders/{orderId}.
func (s *Server) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "orderId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	order, err := s.orders.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderToResponse(order))
}

// TransitionOrder handles POST /orders/{orderId}/transitions.
func (s *Server) TransitionOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "orderId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req TransitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := s.orders.Transition(r.Context(), id, domain.OrderStatus(req.Status))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderToResponse(order))
}

func orderToResponse(o domain.Order) Order {
	resp := Order{
		ID:           o.ID,
		SupplierID:   o.SupplierID,
		CustomerID:   o.CustomerID,
		SiteID:       o.SiteID,
		ScheduledDay: openapi_types.Date{Time: o.ScheduledDay},
		SlotLabel:    o.ScheduledSlotLabel,
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
		DeliveredAt:  o.DeliveredAt,
	}
	if o.SLAStatus != nil {
		sla := string(*o.SLAStatus)
		resp.SLAStatus = &sla
	}
	return resp
}
