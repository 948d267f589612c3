// Package handler implements the HTTP handlers for the delivery-slot API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (slot.go, order.go, etc.) but share the same Server struct so they can
// access its dependencies. NewRouter wires them onto a chi router.
package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pkordes/sitedrop/backend/internal/domain"
)

// CatalogServicer defines the slot catalog operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type CatalogServicer interface {
	UpsertSlots(ctx context.Context, supplierID uuid.UUID, inputs []domain.SlotInput) ([]domain.SlotDefinition, error)
	ListSlots(ctx context.Context, supplierID uuid.UUID) ([]domain.SlotDefinition, error)
}

// AvailabilityServicer reports remaining capacity.
type AvailabilityServicer interface {
	ForDay(ctx context.Context, supplierID uuid.UUID, day time.Time) ([]domain.SlotAvailability, error)
}

// AdmissionServicer repairs a day's booking counters.
type AdmissionServicer interface {
	Reconcile(ctx context.Context, supplierID uuid.UUID, day time.Time) ([]domain.CounterDrift, error)
}

// OrderServicer places orders and moves them through their lifecycle.
type OrderServicer interface {
	Place(ctx context.Context, in domain.PlaceOrderInput) (domain.Order, error)
	Transition(ctx context.Context, id uuid.UUID, target domain.OrderStatus) (domain.Order, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Order, error)
	ListForDay(ctx context.Context, supplierID uuid.UUID, day time.Time, p domain.PaginationParams) (domain.OrderPage, error)
}

// ReportServicer serves the record keeper's reports.
type ReportServicer interface {
	SLASummary(ctx context.Context, supplierID uuid.UUID, from, to time.Time) (domain.SLASummary, error)
	Export(ctx context.Context, f domain.ExportFilter) ([]domain.ExportRow, error)
}

// Services bundles the handler dependencies. Tests may leave unused ones nil.
type Services struct {
	Catalog      CatalogServicer
	Availability AvailabilityServicer
	Admission    AdmissionServicer
	Orders       OrderServicer
	Reports      ReportServicer
}

// Server holds the services every handler method operates on.
type Server struct {
	catalog      CatalogServicer
	availability AvailabilityServicer
	admission    AdmissionServicer
	orders       OrderServicer
	reports      ReportServicer
	log          *zap.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(svc Services, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		catalog:      svc.Catalog,
		availability: svc.Availability,
		admission:    svc.Admission,
		orders:       svc.Orders,
		reports:      svc.Reports,
		log:          log,
	}
}
