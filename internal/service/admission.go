package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pkordes/sitedrop/backend/internal/domain"
	"github.com/pkordes/sitedrop/backend/internal/repo"
)

// AdmissionService decides whether one more order fits into a slot and
// records the claim when it does. All capacity decisions go through the
// ClaimStore, which serializes them per (supplier, day, label).
type AdmissionService struct {
	tx     Transactor
	slots  repo.SlotRepo
	claims repo.ClaimStore
	orders repo.OrderRepo
	log    *zap.Logger
}

// NewAdmissionService constructs an AdmissionService.
func NewAdmissionService(tx Transactor, slots repo.SlotRepo, claims repo.ClaimStore, orders repo.OrderRepo, log *zap.Logger) *AdmissionService {
	return &AdmissionService{tx: tx, slots: slots, claims: claims, orders: orders, log: log}
}

// Reserve claims one unit of capacity in label on day for supplierID under a
// fresh claim id. It fails with domain.ErrSlotUnknown, domain.ErrSlotInactive
// or domain.ErrSlotFull.
func (s *AdmissionService) Reserve(ctx context.Context, supplierID uuid.UUID, day time.Time, label string) (domain.Reservation, error) {
	label = strings.TrimSpace(label)
	if supplierID == uuid.Nil || label == "" {
		return domain.Reservation{}, fmt.Errorf("service.AdmissionService.Reserve: %w: supplier id and slot label are required", domain.ErrValidation)
	}

	res, err := s.admit(ctx, domain.NewSlotKey(supplierID, day, label), uuid.New())
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.AdmissionService.Reserve: %w", err)
	}
	return res, nil
}

// admit runs the admission check for key under claimID. Order placement
// calls it with the order id so the claim and the order share an identity.
func (s *AdmissionService) admit(ctx context.Context, key domain.SlotKey, claimID uuid.UUID) (domain.Reservation, error) {
	ctx, span := tracer.Start(ctx, "AdmissionService.Reserve", trace.WithAttributes(
		attribute.String("slot.supplier_id", key.SupplierID.String()),
		attribute.String("slot.day", key.Day.Format(domain.DayLayout)),
		attribute.String("slot.label", key.Label),
	))
	defer span.End()

	slot, err := s.slots.Get(ctx, key.SupplierID, key.Label)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Reservation{}, fmt.Errorf("%w: %q", domain.ErrSlotUnknown, key.Label)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "slot lookup failed")
		return domain.Reservation{}, err
	}
	if !slot.IsActive {
		return domain.Reservation{}, fmt.Errorf("%w: %q", domain.ErrSlotInactive, key.Label)
	}
	if slot.MaxOrdersPerDay <= 0 {
		return domain.Reservation{}, fmt.Errorf("%w: %q has no capacity", domain.ErrSlotFull, key.Label)
	}

	booked, err := s.claims.Acquire(ctx, key, slot.MaxOrdersPerDay, claimID)
	if err != nil {
		if !errors.Is(err, domain.ErrSlotFull) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "acquire failed")
		}
		return domain.Reservation{}, err
	}
	span.SetAttributes(attribute.Int("slot.booked", booked), attribute.Int("slot.capacity", slot.MaxOrdersPerDay))

	return domain.Reservation{
		ClaimID:  claimID,
		Key:      key,
		Booked:   booked,
		Capacity: slot.MaxOrdersPerDay,
	}, nil
}

// Release gives back the capacity held by res. Releasing a reservation that
// is no longer held is a no-op, so callers may retry freely.
func (s *AdmissionService) Release(ctx context.Context, res domain.Reservation) error {
	ctx, span := tracer.Start(ctx, "AdmissionService.Release", trace.WithAttributes(
		attribute.String("slot.key", res.Key.String()),
	))
	defer span.End()

	released, err := s.claims.Release(ctx, res.Key, res.ClaimID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "release failed")
		return fmt.Errorf("service.AdmissionService.Release: %w", err)
	}
	if !released {
		s.log.Debug("release of unheld claim ignored",
			zap.String("claim_id", res.ClaimID.String()),
			zap.String("slot_key", res.Key.String()),
		)
	}
	return nil
}

// Reconcile brings the claim sets of supplierID on day back in line with its
// orders: cancelled orders lose their claim and live orders regain theirs,
// within the slot's capacity. Each order is re-read under its row lock, so a
// cancellation racing the repair is never undone. Claims with no matching
// order are left alone because they may belong to a placement that has not
// committed yet. It returns the labels whose booked count changed.
func (s *AdmissionService) Reconcile(ctx context.Context, supplierID uuid.UUID, day time.Time) ([]domain.CounterDrift, error) {
	ctx, span := tracer.Start(ctx, "AdmissionService.Reconcile")
	defer span.End()

	day = domain.NormalizeDay(day)

	slots, err := s.slots.List(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("service.AdmissionService.Reconcile: %w", err)
	}
	labels := make([]string, len(slots))
	capacity := make(map[string]int, len(slots))
	for i, slot := range slots {
		labels[i] = slot.Label
		capacity[slot.Label] = slot.MaxOrdersPerDay
	}

	before, err := s.claims.Counts(ctx, supplierID, day, labels)
	if err != nil {
		return nil, fmt.Errorf("service.AdmissionService.Reconcile: %w", err)
	}

	states, err := s.orders.ClaimStates(ctx, supplierID, day)
	if err != nil {
		return nil, fmt.Errorf("service.AdmissionService.Reconcile: %w", err)
	}

	for _, st := range states {
		if err := s.reconcileOrder(ctx, st.OrderID, capacity); err != nil {
			return nil, fmt.Errorf("service.AdmissionService.Reconcile: order %s: %w", st.OrderID, err)
		}
	}

	after, err := s.claims.Counts(ctx, supplierID, day, labels)
	if err != nil {
		return nil, fmt.Errorf("service.AdmissionService.Reconcile: %w", err)
	}

	drift := []domain.CounterDrift{}
	for _, label := range labels {
		if before[label] == after[label] {
			continue
		}
		drift = append(drift, domain.CounterDrift{Label: label, Before: before[label], After: after[label]})
		s.log.Warn("slot counter drift repaired",
			zap.String("supplier_id", supplierID.String()),
			zap.String("day", day.Format(domain.DayLayout)),
			zap.String("slot_label", label),
			zap.Int("before", before[label]),
			zap.Int("after", after[label]),
		)
	}
	return drift, nil
}

// reconcileOrder makes the claim of order id match its current status. The
// status is read under the order's row lock; a snapshot taken earlier may
// already be stale.
func (s *AdmissionService) reconcileOrder(ctx context.Context, id uuid.UUID, capacity map[string]int) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		key := o.SlotKey()

		if !o.Status.HoldsCapacity() {
			_, err := s.claims.Release(ctx, key, o.ID)
			return err
		}

		_, err = s.claims.Acquire(ctx, key, capacity[o.ScheduledSlotLabel], o.ID)
		if errors.Is(err, domain.ErrSlotFull) {
			s.log.Warn("live order left without a claim; slot is at capacity",
				zap.String("order_id", o.ID.String()),
				zap.String("slot_key", key.String()),
			)
			return nil
		}
		return err
	})
}

// Restore re-acquires the claim of every order that still holds capacity.
// It seeds claim stores that start empty, such as the in-memory one, and
// must run before the server accepts traffic: capacity is not re-checked
// because every restored order was admitted once already.
func (s *AdmissionService) Restore(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "AdmissionService.Restore")
	defer span.End()

	open, err := s.orders.ListHolding(ctx)
	if err != nil {
		return 0, fmt.Errorf("service.AdmissionService.Restore: %w", err)
	}
	for _, o := range open {
		if _, err := s.claims.Acquire(ctx, o.SlotKey(), math.MaxInt32, o.ID); err != nil {
			return 0, fmt.Errorf("service.AdmissionService.Restore: order %s: %w", o.ID, err)
		}
	}
	span.SetAttributes(attribute.Int("orders.restored", len(open)))
	return len(open), nil
}
