package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/sitedrop/backend/internal/domain"
	"github.com/pkordes/sitedrop/backend/internal/handler"
)

// Hand-written test doubles for the handler's servicer interfaces.
// Set only the method fields your test needs.

type mockCatalog struct {
	upsertSlots func(ctx context.Context, supplierID uuid.UUID, inputs []domain.SlotInput) ([]domain.SlotDefinition, error)
	listSlots   func(ctx context.Context, supplierID uuid.UUID) ([]domain.SlotDefinition, error)
}

func (m *mockCatalog) UpsertSlots(ctx context.Context, supplierID uuid.UUID, inputs []domain.SlotInput) ([]domain.SlotDefinition, error) {
	return m.upsertSlots(ctx, supplierID, inputs)
}
func (m *mockCatalog) ListSlots(ctx context.Context, supplierID uuid.UUID) ([]domain.SlotDefinition, error) {
	return m.listSlots(ctx, supplierID)
}

var _ handler.CatalogServicer = (*mockCatalog)(nil)

type mockAvailability struct {
	forDay func(ctx context.Context, supplierID uuid.UUID, day time.Time) ([]domain.SlotAvailability, error)
}

func (m *mockAvailability) ForDay(ctx context.Context, supplierID uuid.UUID, day time.Time) ([]domain.SlotAvailability, error) {
	return m.forDay(ctx, supplierID, day)
}

var _ handler.AvailabilityServicer = (*mockAvailability)(nil)

type mockAdmission struct {
	reconcile func(ctx context.Context, supplierID uuid.UUID, day time.Time) ([]domain.CounterDrift, error)
}

func (m *mockAdmission) Reconcile(ctx context.Context, supplierID uuid.UUID, day time.Time) ([]domain.CounterDrift, error) {
	return m.reconcile(ctx, supplierID, day)
}

var _ handler.AdmissionServicer = (*mockAdmission)(nil)

type mockOrders struct {
	place      func(ctx context.Context, in domain.PlaceOrderInput) (domain.Order, error)
	transition func(ctx context.Context, id uuid.UUID, target domain.OrderStatus) (domain.Order, error)
	get        func(ctx context.Context, id uuid.UUID) (domain.Order, error)
	listForDay func(ctx context.Context, supplierID uuid.UUID, day time.Time, p domain.PaginationParams) (domain.OrderPage, error)
}

func (m *mockOrders) Place(ctx context.Context, in domain.PlaceOrderInput) (domain.Order, error) {
	return m.place(ctx, in)
}
func (m *mockOrders) Transition(ctx context.Context, id uuid.UUID, target domain.OrderStatus) (domain.Order, error) {
	return m.transition(ctx, id, target)
}
func (m *mockOrders) Get(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	return m.get(ctx, id)
}
func (m *mockOrders) ListForDay(ctx context.Context, supplierID uuid.UUID, day time.Time, p domain.PaginationParams) (domain.OrderPage, error) {
	return m.listForDay(ctx, supplierID, day, p)
}

var _ handler.OrderServicer = (*mockOrders)(nil)

type mockReports struct {
	slaSummary func(ctx context.Context, supplierID uuid.UUID, from, to time.Time) (domain.SLASummary, error)
	export     func(ctx context.Context, f domain.ExportFilter) ([]domain.ExportRow, error)
}

func (m *mockReports) SLASummary(ctx context.Context, supplierID uuid.UUID, from, to time.Time) (domain.SLASummary, error) {
	return m.slaSummary(ctx, supplierID, from, to)
}
func (m *mockReports) Export(ctx context.Context, f domain.ExportFilter) ([]domain.ExportRow, error) {
	return m.export(ctx, f)
}

var _ handler.ReportServicer = (*mockReports)(nil)

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server with the given mocks into the chi router
// without role enforcement.
func newHTTPHandler(svc handler.Services) http.Handler {
	return handler.NewRouter(handler.NewServer(svc, nil), nil)
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

var (
	supplierID = uuid.MustParse("6f1f4a4e-1c6a-4b8e-9d55-2f1d0c3c9a01")
	testDay    = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
)

func orderFixture() domain.Order {
	now := time.Date(2025, 3, 9, 15, 0, 0, 0, time.UTC)
	return domain.Order{
		ID:                 uuid.New(),
		SupplierID:         supplierID,
		CustomerID:         uuid.New(),
		SiteID:             uuid.New(),
		ScheduledDay:       testDay,
		ScheduledSlotLabel: "8-11 AM",
		Status:             domain.StatusPlaced,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
