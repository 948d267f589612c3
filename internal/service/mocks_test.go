package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/sitedrop/backend/internal/domain"
	"github.com/pkordes/sitedrop/backend/internal/repo"
	"github.com/pkordes/sitedrop/backend/internal/service"
)

// mockSlotRepo is a hand-written test double for repo.SlotRepo.
// Each method is a function field; set only the ones your test needs.
type mockSlotRepo struct {
	upsert func(ctx context.Context, supplierID uuid.UUID, slots []domain.SlotInput) ([]domain.SlotDefinition, error)
	list   func(ctx context.Context, supplierID uuid.UUID) ([]domain.SlotDefinition, error)
	get    func(ctx context.Context, supplierID uuid.UUID, label string) (domain.SlotDefinition, error)
}

func (m *mockSlotRepo) Upsert(ctx context.Context, supplierID uuid.UUID, slots []domain.SlotInput) ([]domain.SlotDefinition, error) {
	return m.upsert(ctx, supplierID, slots)
}
func (m *mockSlotRepo) List(ctx context.Context, supplierID uuid.UUID) ([]domain.SlotDefinition, error) {
	return m.list(ctx, supplierID)
}
func (m *mockSlotRepo) Get(ctx context.Context, supplierID uuid.UUID, label string) (domain.SlotDefinition, error) {
	return m.get(ctx, supplierID, label)
}

var _ repo.SlotRepo = (*mockSlotRepo)(nil)

// catalogOf returns a slot repo serving a fixed catalog for any supplier.
func catalogOf(defs ...domain.SlotDefinition) *mockSlotRepo {
	return &mockSlotRepo{
		list: func(context.Context, uuid.UUID) ([]domain.SlotDefinition, error) {
			return defs, nil
		},
		get: func(_ context.Context, _ uuid.UUID, label string) (domain.SlotDefinition, error) {
			for _, d := range defs {
				if d.Label == label {
					return d, nil
				}
			}
			return domain.SlotDefinition{}, domain.ErrNotFound
		},
	}
}

func slotDef(supplierID uuid.UUID, label string, capacity int) domain.SlotDefinition {
	return domain.SlotDefinition{
		SupplierID:      supplierID,
		Label:           label,
		MaxOrdersPerDay: capacity,
		IsActive:        true,
	}
}

// memOrderRepo keeps orders in a map. createErr, when set, makes Create fail.
type memOrderRepo struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]domain.Order
	createErr error
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: map[uuid.UUID]domain.Order{}}
}

func (r *memOrderRepo) Create(_ context.Context, o domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return domain.Order{}, r.createErr
	}
	r.orders[o.ID] = o
	return o, nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (r *memOrderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *memOrderRepo) UpdateStatus(_ context.Context, o domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	r.orders[o.ID] = o
	return o, nil
}

func (r *memOrderRepo) ListForDay(_ context.Context, supplierID uuid.UUID, day time.Time, p domain.PaginationParams) ([]domain.Order, int64, error) {
	all := r.forDay(supplierID, day)
	start := min(p.Offset(), len(all))
	end := min(start+p.Limit, len(all))
	return all[start:end], int64(len(all)), nil
}

func (r *memOrderRepo) ClaimStates(_ context.Context, supplierID uuid.UUID, day time.Time) ([]domain.OrderClaim, error) {
	var out []domain.OrderClaim
	for _, o := range r.forDay(supplierID, day) {
		out = append(out, domain.OrderClaim{OrderID: o.ID, Label: o.ScheduledSlotLabel, Status: o.Status})
	}
	return out, nil
}

func (r *memOrderRepo) ListHolding(context.Context) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.Status.HoldsCapacity() {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memOrderRepo) forDay(supplierID uuid.UUID, day time.Time) []domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.SupplierID == supplierID && o.ScheduledDay.Equal(day) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

var _ repo.OrderRepo = (*memOrderRepo)(nil)

// fakeTx runs fn directly. commitErr simulates a failed commit after fn succeeds.
type fakeTx struct {
	commitErr error
	calls     int
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if err := fn(ctx); err != nil {
		return err
	}
	return f.commitErr
}

var _ service.Transactor = (*fakeTx)(nil)

type published struct {
	key   string
	event any
}

// recordingPublisher captures every event. err, when set, is returned from Publish.
type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{key: key, event: v})
	return nil
}

var _ service.EventPublisher = (*recordingPublisher)(nil)

// countingClaims wraps a ClaimStore and counts Release calls that freed a claim.
type countingClaims struct {
	repo.ClaimStore
	mu       sync.Mutex
	released int
	relErr   error
}

func (c *countingClaims) Release(ctx context.Context, key domain.SlotKey, claimID uuid.UUID) (bool, error) {
	if c.relErr != nil {
		return false, c.relErr
	}
	ok, err := c.ClaimStore.Release(ctx, key, claimID)
	if ok {
		c.mu.Lock()
		c.released++
		c.mu.Unlock()
	}
	return ok, err
}

var _ repo.ClaimStore = (*countingClaims)(nil)
