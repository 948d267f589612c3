package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/sitedrop/backend/internal/domain"
)

// SlotRepo defines the persistence operations for a supplier's slot catalog.
type SlotRepo interface {
	// Upsert creates labels that do not exist yet and updates the capacity and
	// active flag of those that do. Labels not named in slots are untouched.
	// New labels are positioned after every existing label, in input order.
	// Returns the full catalog after the write.
	Upsert(ctx context.Context, supplierID uuid.UUID, slots []domain.SlotInput) ([]domain.SlotDefinition, error)

	// List returns every label of the supplier, inactive ones included,
	// in configured order.
	List(ctx context.Context, supplierID uuid.UUID) ([]domain.SlotDefinition, error)

	// Get returns one label. Returns domain.ErrNotFound if it was never configured.
	Get(ctx context.Context, supplierID uuid.UUID, label string) (domain.SlotDefinition, error)
}

type pgSlotRepo struct {
	db db
}

// NewSlotRepo constructs a SlotRepo backed by the provided db connection.
func NewSlotRepo(db db) SlotRepo {
	return &pgSlotRepo{db: db}
}

func (r *pgSlotRepo) Upsert(ctx context.Context, supplierID uuid.UUID, slots []domain.SlotInput) ([]domain.SlotDefinition, error) {
	const nextPos = `
		SELECT COALESCE(MAX(position) + 1, 0)
		FROM slot_definitions
		WHERE supplier_id = @supplier_id`

	// Existing labels keep their position; only an insert uses @position.
	const upsert = `
		INSERT INTO slot_definitions (supplier_id, label, max_orders_per_day, is_active, position)
		VALUES (@supplier_id, @label, @max_orders_per_day, @is_active, @position)
		ON CONFLICT (supplier_id, label) DO UPDATE
		SET max_orders_per_day = EXCLUDED.max_orders_per_day,
		    is_active          = EXCLUDED.is_active,
		    updated_at         = now()
		RETURNING (xmax = 0) AS inserted`

	err := inTx(ctx, r.db, func(q db) error {
		// Serialize concurrent upserts for one supplier so positions do not collide.
		if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext(@lock_key))`,
			pgx.NamedArgs{"lock_key": "slot_definitions:" + supplierID.String()}); err != nil {
			return fmt.Errorf("lock: %w", err)
		}

		var pos int
		if err := q.QueryRow(ctx, nextPos, pgx.NamedArgs{"supplier_id": supplierID}).Scan(&pos); err != nil {
			return fmt.Errorf("next position: %w", err)
		}

		for _, s := range slots {
			var inserted bool
			err := q.QueryRow(ctx, upsert, pgx.NamedArgs{
				"supplier_id":        supplierID,
				"label":              s.Label,
				"max_orders_per_day": s.MaxOrdersPerDay,
				"is_active":          s.IsActive,
				"position":           pos,
			}).Scan(&inserted)
			if err != nil {
				return fmt.Errorf("upsert %q: %w", s.Label, err)
			}
			if inserted {
				pos++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("repo.SlotRepo.Upsert: %w", err)
	}

	return r.List(ctx, supplierID)
}

func (r *pgSlotRepo) List(ctx context.Context, supplierID uuid.UUID) ([]domain.SlotDefinition, error) {
	const q = `
		SELECT supplier_id, label, max_orders_per_day, is_active, position, created_at, updated_at
		FROM slot_definitions
		WHERE supplier_id = @supplier_id
		ORDER BY position, label`

	rows, err := conn(ctx, r.db).Query(ctx, q, pgx.NamedArgs{"supplier_id": supplierID})
	if err != nil {
		return nil, fmt.Errorf("repo.SlotRepo.List: %w", err)
	}
	defer rows.Close()

	slots := []domain.SlotDefinition{}
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.SlotRepo.List: scan: %w", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.SlotRepo.List: rows: %w", err)
	}
	return slots, nil
}

func (r *pgSlotRepo) Get(ctx context.Context, supplierID uuid.UUID, label string) (domain.SlotDefinition, error) {
	const q = `
		SELECT supplier_id, label, max_orders_per_day, is_active, position, created_at, updated_at
		FROM slot_definitions
		WHERE supplier_id = @supplier_id AND label = @label`

	row := conn(ctx, r.db).QueryRow(ctx, q, pgx.NamedArgs{"supplier_id": supplierID, "label": label})
	s, err := scanSlot(row)
	if err != nil {
		return domain.SlotDefinition{}, fmt.Errorf("repo.SlotRepo.Get: %w", err)
	}
	return s, nil
}

func scanSlot(s scanner) (domain.SlotDefinition, error) {
	var (
		slot     domain.SlotDefinition
		supplier pgtype.UUID
	)
	err := s.Scan(&supplier, &slot.Label, &slot.MaxOrdersPerDay, &slot.IsActive, &slot.Position, &slot.CreatedAt, &slot.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SlotDefinition{}, domain.ErrNotFound
		}
		return domain.SlotDefinition{}, err
	}
	slot.SupplierID = uuid.UUID(supplier.Bytes)
	return slot, nil
}
