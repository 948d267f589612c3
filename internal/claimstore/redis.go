package claimstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/pkordes/sitedrop/backend/internal/domain"
	"github.com/pkordes/sitedrop/backend/internal/repo"
)

// acquireScript adds ARGV[1] to the claim set KEYS[1] unless the set already
// holds ARGV[2] members. Redis runs scripts atomically, which makes the
// read-compare-add one step per key.
// Returns the new set size, or -1 when the slot is full.
var acquireScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 1 then
	return redis.call('SCARD', KEYS[1])
end
local booked = redis.call('SCARD', KEYS[1])
if booked >= tonumber(ARGV[2]) then
	return -1
end
redis.call('SADD', KEYS[1], ARGV[1])
redis.call('EXPIRE', KEYS[1], ARGV[3])
return booked + 1
`)

// Redis keeps one set of claim ids per slot key.
type Redis struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

var _ repo.ClaimStore = (*Redis)(nil)

// NewRedis returns a claim store on client. Keys are named
// "<prefix>:<supplier>:<day>:<label>" and expire retention after the slot day.
func NewRedis(client redis.UniversalClient, prefix string, retention time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, retention: retention, now: time.Now}
}

func (r *Redis) key(key domain.SlotKey) string {
	return fmt.Sprintf("%s:%s:%s:%s", r.prefix, key.SupplierID, domain.NormalizeDay(key.Day).Format(domain.DayLayout), key.Label)
}

// minTTL keeps EXPIRE positive; Redis deletes a key given a ttl of zero.
const minTTL = time.Hour

// ttl keeps a claim set until retention after its day ends, and never less
// than retention (or minTTL) from now so back-dated keys are not dropped at once.
func (r *Redis) ttl(day time.Time) time.Duration {
	until := domain.NormalizeDay(day).AddDate(0, 0, 1).Add(r.retention)
	return max(until.Sub(r.now()), r.retention, minTTL)
}

func (r *Redis) Acquire(ctx context.Context, key domain.SlotKey, capacity int, claimID uuid.UUID) (int, error) {
	ttl := int64(r.ttl(key.Day) / time.Second)

	booked, err := acquireScript.Run(ctx, r.client, []string{r.key(key)}, claimID.String(), capacity, ttl).Int()
	if err != nil {
		return 0, fmt.Errorf("claimstore.Redis.Acquire: %w", err)
	}
	if booked < 0 {
		return 0, domain.ErrSlotFull
	}
	return booked, nil
}

func (r *Redis) Release(ctx context.Context, key domain.SlotKey, claimID uuid.UUID) (bool, error) {
	n, err := r.client.SRem(ctx, r.key(key), claimID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("claimstore.Redis.Release: %w", err)
	}
	return n > 0, nil
}

func (r *Redis) Counts(ctx context.Context, supplierID uuid.UUID, day time.Time, labels []string) (map[string]int, error) {
	cmds := make(map[string]*redis.IntCmd, len(labels))
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, label := range labels {
			cmds[label] = pipe.SCard(ctx, r.key(domain.NewSlotKey(supplierID, day, label)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claimstore.Redis.Counts: %w", err)
	}

	counts := make(map[string]int, len(labels))
	for label, cmd := range cmds {
		counts[label] = int(cmd.Val())
	}
	return counts, nil
}
