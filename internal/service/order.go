package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pkordes/sitedrop/backend/internal/clock"
	"github.com/pkordes/sitedrop/backend/internal/domain"
	"github.com/pkordes/sitedrop/backend/internal/events"
	"github.com/pkordes/sitedrop/backend/internal/repo"
)

// OrderService places orders into slots and moves them through their
// lifecycle. Placement and cancellation keep the slot's booked count in
// step with the order table through the AdmissionService.
type OrderService struct {
	tx        Transactor
	orders    repo.OrderRepo
	admission *AdmissionService
	sla       *SLAEvaluator
	events    EventPublisher
	clock     clock.Clock
	log       *zap.Logger
}

// NewOrderService constructs an OrderService.
func NewOrderService(
	tx Transactor,
	orders repo.OrderRepo,
	admission *AdmissionService,
	sla *SLAEvaluator,
	publisher EventPublisher,
	clk clock.Clock,
	log *zap.Logger,
) *OrderService {
	return &OrderService{
		tx:        tx,
		orders:    orders,
		admission: admission,
		sla:       sla,
		events:    publisher,
		clock:     clk,
		log:       log,
	}
}

// Place admits a new order into its slot and persists it in status PLACED.
// The claim is taken under the order's own id; if the order cannot be
// stored the claim is released again before returning.
func (s *OrderService) Place(ctx context.Context, in domain.PlaceOrderInput) (domain.Order, error) {
	in.SlotLabel = strings.TrimSpace(in.SlotLabel)
	if err := validatePlace(in); err != nil {
		return domain.Order{}, fmt.Errorf("service.OrderService.Place: %w", err)
	}

	now := s.clock.Now()
	order := domain.Order{
		ID:                 uuid.New(),
		SupplierID:         in.SupplierID,
		CustomerID:         in.CustomerID,
		SiteID:             in.SiteID,
		ScheduledDay:       domain.NormalizeDay(in.Day),
		ScheduledSlotLabel: in.SlotLabel,
		Status:             domain.StatusPlaced,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	ctx, span := tracer.Start(ctx, "OrderService.Place", trace.WithAttributes(
		attribute.String("order.id", order.ID.String()),
	))
	defer span.End()

	var (
		reservation *domain.Reservation
		created     domain.Order
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		res, err := s.admission.admit(ctx, order.SlotKey(), order.ID)
		if err != nil {
			return err
		}
		reservation = &res

		created, err = s.orders.Create(ctx, order)
		return err
	})
	if err != nil {
		if reservation != nil {
			s.compensate(ctx, *reservation)
		}
		return domain.Order{}, fmt.Errorf("service.OrderService.Place: %w", err)
	}

	s.log.Info("order placed",
		zap.String("order_id", created.ID.String()),
		zap.String("supplier_id", created.SupplierID.String()),
		zap.String("day", created.ScheduledDay.Format(domain.DayLayout)),
		zap.String("slot_label", created.ScheduledSlotLabel),
		zap.Int("booked", reservation.Booked),
		zap.Int("capacity", reservation.Capacity),
	)
	s.publish(ctx, created, false)
	return created, nil
}

// compensate undoes a claim whose order was never stored. A failure here
// leaves the slot overcounted until the next Reconcile.
func (s *OrderService) compensate(ctx context.Context, res domain.Reservation) {
	if err := s.admission.Release(context.WithoutCancel(ctx), res); err != nil {
		s.log.Error("failed to release claim of unplaced order",
			zap.String("claim_id", res.ClaimID.String()),
			zap.String("slot_key", res.Key.String()),
			zap.Error(err),
		)
	}
}

// Transition moves order id to target. Cancelling releases the order's
// claim after the status change commits; delivering stamps the delivery
// time and classifies the order against its slot window.
func (s *OrderService) Transition(ctx context.Context, id uuid.UUID, target domain.OrderStatus) (domain.Order, error) {
	if !target.Valid() {
		return domain.Order{}, fmt.Errorf("service.OrderService.Transition: %w: unknown status %q", domain.ErrValidation, target)
	}

	ctx, span := tracer.Start(ctx, "OrderService.Transition", trace.WithAttributes(
		attribute.String("order.id", id.String()),
		attribute.String("order.target_status", string(target)),
	))
	defer span.End()

	var updated domain.Order
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !domain.CanTransition(o.Status, target) {
			return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, o.Status, target)
		}

		now := s.clock.Now()
		o.Status = target
		o.UpdatedAt = now
		if target == domain.StatusDelivered {
			o.DeliveredAt = &now
			sla := s.sla.Evaluate(o)
			o.SLAStatus = &sla
		}

		updated, err = s.orders.UpdateStatus(ctx, o)
		return err
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("service.OrderService.Transition: %w", err)
	}

	if target == domain.StatusCancelled {
		res := domain.Reservation{ClaimID: updated.ID, Key: updated.SlotKey()}
		if err := s.admission.Release(context.WithoutCancel(ctx), res); err != nil {
			s.log.Error("cancelled order still holds its claim; reconcile the day to repair",
				zap.String("order_id", updated.ID.String()),
				zap.String("slot_key", res.Key.String()),
				zap.Error(err),
			)
		}
	}

	degraded := target == domain.StatusDelivered &&
		updated.SLAStatus != nil && *updated.SLAStatus == domain.SLANotApplicable

	s.log.Info("order status changed",
		zap.String("order_id", updated.ID.String()),
		zap.String("status", string(updated.Status)),
	)
	s.publish(ctx, updated, degraded)
	return updated, nil
}

// Get returns a single order.
func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("service.OrderService.Get: %w", err)
	}
	return o, nil
}

// ListForDay returns one page of supplierID's orders scheduled on day.
func (s *OrderService) ListForDay(ctx context.Context, supplierID uuid.UUID, day time.Time, p domain.PaginationParams) (domain.OrderPage, error) {
	orders, total, err := s.orders.ListForDay(ctx, supplierID, domain.NormalizeDay(day), p)
	if err != nil {
		return domain.OrderPage{}, fmt.Errorf("service.OrderService.ListForDay: %w", err)
	}
	return domain.OrderPage{Orders: orders, Total: total, Params: p}, nil
}

func (s *OrderService) publish(ctx context.Context, o domain.Order, degraded bool) {
	e := events.NewOrderEvent(o, s.clock.Now())
	e.SLADegraded = degraded
	if err := s.events.Publish(ctx, events.RoutingKey(o.Status), e); err != nil {
		s.log.Error("failed to publish order event",
			zap.String("order_id", o.ID.String()),
			zap.String("status", string(o.Status)),
			zap.Error(err),
		)
	}
}

func validatePlace(in domain.PlaceOrderInput) error {
	switch {
	case in.SupplierID == uuid.Nil:
		return fmt.Errorf("%w: supplier id is required", domain.ErrValidation)
	case in.CustomerID == uuid.Nil:
		return fmt.Errorf("%w: customer id is required", domain.ErrValidation)
	case in.SiteID == uuid.Nil:
		return fmt.Errorf("%w: site id is required", domain.ErrValidation)
	case in.Day.IsZero():
		return fmt.Errorf("%w: scheduled day is required", domain.ErrValidation)
	case in.SlotLabel == "":
		return fmt.Errorf("%w: slot label is required", domain.ErrValidation)
	}
	return nil
}
