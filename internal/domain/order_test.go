package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/pkordes/sitedrop/backend/internal/domain"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to domain.OrderStatus
		want     bool
	}{
		{domain.StatusPlaced, domain.StatusAccepted, true},
		{domain.StatusPlaced, domain.StatusCancelled, true},
		{domain.StatusAccepted, domain.StatusDispatched, true},
		{domain.StatusAccepted, domain.StatusCancelled, true},
		{domain.StatusDispatched, domain.StatusDelivered, true},

		{domain.StatusDispatched, domain.StatusCancelled, false},
		{domain.StatusPlaced, domain.StatusDelivered, false},
		{domain.StatusPlaced, domain.StatusDispatched, false},
		{domain.StatusAccepted, domain.StatusPlaced, false},
		{domain.StatusDelivered, domain.StatusCancelled, false},
		{domain.StatusCancelled, domain.StatusPlaced, false},
		{domain.StatusPlaced, domain.StatusPlaced, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, domain.CanTransition(tc.from, tc.to))
		})
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, domain.StatusDelivered.Terminal())
	assert.True(t, domain.StatusCancelled.Terminal())
	assert.False(t, domain.StatusPlaced.Terminal())
	assert.False(t, domain.StatusDispatched.Terminal())
}

func TestOrderStatus_Valid(t *testing.T) {
	assert.True(t, domain.StatusAccepted.Valid())
	assert.False(t, domain.OrderStatus("SHIPPED").Valid())
	assert.False(t, domain.OrderStatus("").Valid())
}

func TestOrder_SlotKey_NormalizesDay(t *testing.T) {
	supplier := uuid.New()
	o := domain.Order{
		SupplierID:         supplier,
		ScheduledDay:       time.Date(2025, 3, 4, 17, 30, 0, 0, time.UTC),
		ScheduledSlotLabel: "8–11 AM",
	}

	key := o.SlotKey()

	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), key.Day)
	assert.Equal(t, supplier.String()+"|2025-03-04|8–11 AM", key.String())
}
