package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/pkordes/sitedrop/backend/internal/domain"
	"github.com/pkordes/sitedrop/backend/internal/slotwindow"
)

// SLAEvaluator classifies a delivered order as on time or late against the
// window its slot label describes, read in the supplier's local time zone.
type SLAEvaluator struct {
	loc *time.Location
	log *zap.Logger
}

// NewSLAEvaluator returns an evaluator that places slot windows in loc.
func NewSLAEvaluator(loc *time.Location, log *zap.Logger) *SLAEvaluator {
	if loc == nil {
		loc = time.UTC
	}
	return &SLAEvaluator{loc: loc, log: log}
}

// Evaluate returns ON_TIME when o was delivered no later than the end of its
// slot window and LATE otherwise. Orders that are not delivered, or whose
// label is not a readable window, are NOT_APPLICABLE; the latter is logged
// as a data-quality warning.
func (e *SLAEvaluator) Evaluate(o domain.Order) domain.SLAStatus {
	if o.Status != domain.StatusDelivered || o.DeliveredAt == nil {
		return domain.SLANotApplicable
	}

	w, err := slotwindow.Parse(o.ScheduledSlotLabel)
	if err != nil {
		e.log.Warn("slot label is not a time window; SLA not applicable",
			zap.String("order_id", o.ID.String()),
			zap.String("supplier_id", o.SupplierID.String()),
			zap.String("slot_label", o.ScheduledSlotLabel),
			zap.Error(err),
		)
		return domain.SLANotApplicable
	}

	_, end := w.On(o.ScheduledDay, e.loc)
	if o.DeliveredAt.After(end) {
		return domain.SLALate
	}
	return domain.SLAOnTime
}
