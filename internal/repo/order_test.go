package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/sitedrop/backend/internal/domain"
	"github.com/pkordes/sitedrop/backend/internal/repo"
	"github.com/pkordes/sitedrop/backend/testutil"
)

var testDay = time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

// seedSlots configures two labels for a fresh supplier inside tx.
func seedSlots(t *testing.T, tx pgx.Tx) uuid.UUID {
	t.Helper()
	supplier := uuid.New()
	_, err := repo.NewSlotRepo(tx).Upsert(context.Background(), supplier, []domain.SlotInput{
		{Label: "8–11 AM", MaxOrdersPerDay: 2, IsActive: true},
		{Label: "2–5 PM", MaxOrdersPerDay: 2, IsActive: true},
	})
	require.NoError(t, err)
	return supplier
}

func orderFixture(supplier uuid.UUID, label string) domain.Order {
	return domain.Order{
		ID:                 uuid.New(),
		SupplierID:         supplier,
		CustomerID:         uuid.New(),
		SiteID:             uuid.New(),
		ScheduledDay:       testDay,
		ScheduledSlotLabel: label,
		Status:             domain.StatusPlaced,
		CreatedAt:          time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestOrderRepo_CreateAndGet(t *testing.T) {
	tx := testutil.NewTx(t)
	supplier := seedSlots(t, tx)
	r := repo.NewOrderRepo(tx)
	ctx := context.Background()

	input := orderFixture(supplier, "8–11 AM")
	created, err := r.Create(ctx, input)
	require.NoError(t, err)

	assert.Equal(t, input.ID, created.ID)
	assert.Equal(t, domain.StatusPlaced, created.Status)
	assert.True(t, created.ScheduledDay.Equal(testDay))
	assert.Nil(t, created.SLAStatus)
	assert.Nil(t, created.DeliveredAt)

	got, err := r.GetByID(ctx, input.ID)
	require.NoError(t, err)
	assert.Equal(t, created.CustomerID, got.CustomerID)
}

func TestOrderRepo_GetByID_NotFound(t *testing.T) {
	r := repo.NewOrderRepo(testutil.NewTx(t))

	_, err := r.GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepo_UpdateStatus_Delivered(t *testing.T) {
	tx := testutil.NewTx(t)
	supplier := seedSlots(t, tx)
	r := repo.NewOrderRepo(tx)
	ctx := context.Background()

	o, err := r.Create(ctx, orderFixture(supplier, "8–11 AM"))
	require.NoError(t, err)

	locked, err := r.GetForUpdate(ctx, o.ID)
	require.NoError(t, err)

	delivered := time.Date(2025, 6, 3, 10, 30, 0, 0, time.UTC)
	sla := domain.SLAOnTime
	locked.Status = domain.StatusDelivered
	locked.DeliveredAt = &delivered
	locked.SLAStatus = &sla
	locked.UpdatedAt = delivered

	got, err := r.UpdateStatus(ctx, locked)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, got.Status)
	require.NotNil(t, got.SLAStatus)
	assert.Equal(t, domain.SLAOnTime, *got.SLAStatus)
	require.NotNil(t, got.DeliveredAt)
	assert.True(t, got.DeliveredAt.Equal(delivered))
}

func TestOrderRepo_ListForDay_AndClaimStates(t *testing.T) {
	tx := testutil.NewTx(t)
	supplier := seedSlots(t, tx)
	r := repo.NewOrderRepo(tx)
	ctx := context.Background()

	late := orderFixture(supplier, "2–5 PM")
	early := orderFixture(supplier, "8–11 AM")
	cancelled := orderFixture(supplier, "8–11 AM")
	cancelled.Status = domain.StatusCancelled
	for _, o := range []domain.Order{late, early, cancelled} {
		_, err := r.Create(ctx, o)
		require.NoError(t, err)
	}

	orders, total, err := r.ListForDay(ctx, supplier, testDay, domain.NewPaginationParams(nil, nil))
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, orders, 3)
	// Ordered by slot position: morning orders first.
	assert.Equal(t, "8–11 AM", orders[0].ScheduledSlotLabel)
	assert.Equal(t, "2–5 PM", orders[2].ScheduledSlotLabel)

	claims, err := r.ClaimStates(ctx, supplier, testDay)
	require.NoError(t, err)
	require.Len(t, claims, 3)
	byID := map[uuid.UUID]domain.OrderClaim{}
	for _, c := range claims {
		byID[c.OrderID] = c
	}
	assert.Equal(t, "2–5 PM", byID[late.ID].Label)
	assert.Equal(t, domain.StatusPlaced, byID[early.ID].Status)
	assert.Equal(t, domain.StatusCancelled, byID[cancelled.ID].Status)
}

func TestOrderRepo_ListHolding(t *testing.T) {
	tx := testutil.NewTx(t)
	supplier := seedSlots(t, tx)
	r := repo.NewOrderRepo(tx)
	ctx := context.Background()

	live := orderFixture(supplier, "8–11 AM")
	nextDay := orderFixture(supplier, "2–5 PM")
	nextDay.ScheduledDay = testDay.AddDate(0, 0, 1)
	cancelled := orderFixture(supplier, "8–11 AM")
	cancelled.Status = domain.StatusCancelled
	for _, o := range []domain.Order{live, nextDay, cancelled} {
		_, err := r.Create(ctx, o)
		require.NoError(t, err)
	}

	orders, err := r.ListHolding(ctx)
	require.NoError(t, err)

	ids := map[uuid.UUID]bool{}
	for _, o := range orders {
		ids[o.ID] = true
	}
	assert.True(t, ids[live.ID])
	assert.True(t, ids[nextDay.ID])
	assert.False(t, ids[cancelled.ID])
}
