package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/sitedrop/backend/internal/domain"
)

// ClaimStore holds the booking counter of every (supplier, day, label) key as
// a set of claim ids. Its size is the booked count.
//
// Acquire is the only admission path: for a given key, reading the count,
// comparing it against capacity and adding the claim happen as one
// indivisible step. Different keys never block each other.
type ClaimStore interface {
	// Acquire adds claimID to key if fewer than capacity claims are held and
	// returns the new booked count. Returns domain.ErrSlotFull otherwise.
	// Acquiring a claim that is already held returns the current count.
	Acquire(ctx context.Context, key domain.SlotKey, capacity int, claimID uuid.UUID) (int, error)

	// Release removes claimID from key. Releasing a claim that is not held is
	// a no-op and reports false.
	Release(ctx context.Context, key domain.SlotKey, claimID uuid.UUID) (bool, error)

	// Counts returns the booked count of each label for the supplier on day.
	// Labels with no claims may be absent from the map.
	Counts(ctx context.Context, supplierID uuid.UUID, day time.Time, labels []string) (map[string]int, error)
}

type pgClaimStore struct {
	db db
}

// NewClaimStore constructs the Postgres ClaimStore. When called with a
// context carrying a TxManager transaction, every method joins it.
func NewClaimStore(db db) ClaimStore {
	return &pgClaimStore{db: db}
}

func keyArgs(key domain.SlotKey) pgx.NamedArgs {
	return pgx.NamedArgs{
		"supplier_id": key.SupplierID,
		"label":       key.Label,
		"day":         pgtype.Date{Time: domain.NormalizeDay(key.Day), Valid: true},
	}
}

// lockCounter creates the counter row if needed and locks it for the rest of
// the transaction, returning the booked count.
func lockCounter(ctx context.Context, q db, key domain.SlotKey) (int, error) {
	const ensure = `
		INSERT INTO slot_day_counters (supplier_id, label, day, booked)
		VALUES (@supplier_id, @label, @day, 0)
		ON CONFLICT (supplier_id, label, day) DO NOTHING`
	const lock = `
		SELECT booked FROM slot_day_counters
		WHERE supplier_id = @supplier_id AND label = @label AND day = @day
		FOR UPDATE`

	args := keyArgs(key)
	if _, err := q.Exec(ctx, ensure, args); err != nil {
		return 0, fmt.Errorf("ensure counter: %w", err)
	}
	var booked int
	if err := q.QueryRow(ctx, lock, args).Scan(&booked); err != nil {
		return 0, fmt.Errorf("lock counter: %w", err)
	}
	return booked, nil
}

func (s *pgClaimStore) Acquire(ctx context.Context, key domain.SlotKey, capacity int, claimID uuid.UUID) (int, error) {
	const held = `SELECT EXISTS (SELECT 1 FROM slot_claims WHERE claim_id = @claim_id)`
	const insert = `
		INSERT INTO slot_claims (claim_id, supplier_id, label, day)
		VALUES (@claim_id, @supplier_id, @label, @day)`
	const incr = `
		UPDATE slot_day_counters SET booked = booked + 1
		WHERE supplier_id = @supplier_id AND label = @label AND day = @day
		RETURNING booked`

	var booked int
	err := inTx(ctx, s.db, func(q db) error {
		current, err := lockCounter(ctx, q, key)
		if err != nil {
			return err
		}

		args := keyArgs(key)
		args["claim_id"] = claimID

		var exists bool
		if err := q.QueryRow(ctx, held, args).Scan(&exists); err != nil {
			return fmt.Errorf("check claim: %w", err)
		}
		if exists {
			booked = current
			return nil
		}

		if current >= capacity {
			return domain.ErrSlotFull
		}

		if _, err := q.Exec(ctx, insert, args); err != nil {
			if isUniqueViolation(err) {
				// Held under another key; the caller reused an id.
				return fmt.Errorf("%w: claim %s already held", domain.ErrValidation, claimID)
			}
			return fmt.Errorf("insert claim: %w", err)
		}
		if err := q.QueryRow(ctx, incr, args).Scan(&booked); err != nil {
			return fmt.Errorf("increment: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("repo.ClaimStore.Acquire: %w", err)
	}
	return booked, nil
}

func (s *pgClaimStore) Release(ctx context.Context, key domain.SlotKey, claimID uuid.UUID) (bool, error) {
	const del = `
		DELETE FROM slot_claims
		WHERE claim_id = @claim_id
		  AND supplier_id = @supplier_id AND label = @label AND day = @day`
	const decr = `
		UPDATE slot_day_counters SET booked = GREATEST(booked - 1, 0)
		WHERE supplier_id = @supplier_id AND label = @label AND day = @day`

	var released bool
	err := inTx(ctx, s.db, func(q db) error {
		args := keyArgs(key)
		args["claim_id"] = claimID

		tag, err := q.Exec(ctx, del, args)
		if err != nil {
			return fmt.Errorf("delete claim: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if _, err := q.Exec(ctx, decr, args); err != nil {
			return fmt.Errorf("decrement: %w", err)
		}
		released = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("repo.ClaimStore.Release: %w", err)
	}
	return released, nil
}

func (s *pgClaimStore) Counts(ctx context.Context, supplierID uuid.UUID, day time.Time, _ []string) (map[string]int, error) {
	const q = `
		SELECT label, booked FROM slot_day_counters
		WHERE supplier_id = @supplier_id AND day = @day`

	rows, err := conn(ctx, s.db).Query(ctx, q, pgx.NamedArgs{
		"supplier_id": supplierID,
		"day":         pgtype.Date{Time: domain.NormalizeDay(day), Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("repo.ClaimStore.Counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			label  string
			booked int
		)
		if err := rows.Scan(&label, &booked); err != nil {
			return nil, fmt.Errorf("repo.ClaimStore.Counts: scan: %w", err)
		}
		counts[label] = booked
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ClaimStore.Counts: rows: %w", err)
	}
	return counts, nil
}
