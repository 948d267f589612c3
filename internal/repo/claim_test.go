package repo_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/sitedrop/backend/internal/domain"
	"github.com/pkordes/sitedrop/backend/internal/repo"
	"github.com/pkordes/sitedrop/backend/testutil"
)

func TestClaimStore_AcquireUntilFull(t *testing.T) {
	s := repo.NewClaimStore(testutil.NewTx(t))
	ctx := context.Background()
	key := domain.NewSlotKey(uuid.New(), testDay, "8–11 AM")

	n, err := s.Acquire(ctx, key, 2, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Acquire(ctx, key, 2, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Acquire(ctx, key, 2, uuid.New())
	assert.ErrorIs(t, err, domain.ErrSlotFull)
}

func TestClaimStore_Acquire_SameClaimIsIdempotent(t *testing.T) {
	s := repo.NewClaimStore(testutil.NewTx(t))
	ctx := context.Background()
	key := domain.NewSlotKey(uuid.New(), testDay, "8–11 AM")
	claim := uuid.New()

	_, err := s.Acquire(ctx, key, 1, claim)
	require.NoError(t, err)

	n, err := s.Acquire(ctx, key, 1, claim)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestClaimStore_ReleaseIsIdempotent(t *testing.T) {
	s := repo.NewClaimStore(testutil.NewTx(t))
	ctx := context.Background()
	key := domain.NewSlotKey(uuid.New(), testDay, "8–11 AM")
	claim := uuid.New()

	_, err := s.Acquire(ctx, key, 2, claim)
	require.NoError(t, err)

	released, err := s.Release(ctx, key, claim)
	require.NoError(t, err)
	assert.True(t, released)

	released, err = s.Release(ctx, key, claim)
	require.NoError(t, err)
	assert.False(t, released)

	counts, err := s.Counts(ctx, key.SupplierID, testDay, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, counts["8–11 AM"])
}

// TestClaimStore_ConcurrentAcquire runs against the pool rather than a test
// transaction so that every acquire uses its own connection and the row lock
// is actually contended.
func TestClaimStore_ConcurrentAcquire(t *testing.T) {
	pool := testutil.NewPool(t)
	s := repo.NewClaimStore(pool)
	ctx := context.Background()
	key := domain.NewSlotKey(uuid.New(), testDay, "8–11 AM")

	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(),
			`DELETE FROM slot_day_counters WHERE supplier_id = @supplier_id`,
			pgx.NamedArgs{"supplier_id": key.SupplierID})
	})

	const capacity, attempts = 3, 20
	var (
		wg       sync.WaitGroup
		admitted atomic.Int32
		full     atomic.Int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Acquire(ctx, key, capacity, uuid.New())
			switch {
			case err == nil:
				admitted.Add(1)
			case errors.Is(err, domain.ErrSlotFull):
				full.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, capacity, admitted.Load())
	assert.EqualValues(t, attempts-capacity, full.Load())

	counts, err := s.Counts(ctx, key.SupplierID, testDay, nil)
	require.NoError(t, err)
	assert.Equal(t, capacity, counts["8–11 AM"])
}
