package domain

// AvailabilityHint is a presentation label derived from remaining capacity.
// It has no effect on admission.
type AvailabilityHint string

const (
	HintOpen    AvailabilityHint = "open"
	HintLimited AvailabilityHint = "limited"
	HintFull    AvailabilityHint = "full"
	HintClosed  AvailabilityHint = "closed"
)

// SlotAvailability is the live capacity view of one label on one day.
type SlotAvailability struct {
	Label           string
	MaxOrdersPerDay int
	Booked          int
	Available       int
	IsActive        bool
	Hint            AvailabilityHint
}

// NewSlotAvailability derives the availability of slot given its booked count.
// Available is always within [0, MaxOrdersPerDay]; inactive and zero-capacity
// slots report zero.
func NewSlotAvailability(slot SlotDefinition, booked int) SlotAvailability {
	if booked < 0 {
		booked = 0
	}
	a := SlotAvailability{
		Label:           slot.Label,
		MaxOrdersPerDay: slot.MaxOrdersPerDay,
		Booked:          booked,
		IsActive:        slot.IsActive,
	}

	switch {
	case !slot.IsActive || slot.MaxOrdersPerDay <= 0:
		a.Hint = HintClosed
		return a
	case booked >= slot.MaxOrdersPerDay:
		a.Hint = HintFull
		return a
	}

	a.Available = slot.MaxOrdersPerDay - booked
	if a.Available*4 <= slot.MaxOrdersPerDay {
		a.Hint = HintLimited
	} else {
		a.Hint = HintOpen
	}
	return a
}

// CounterDrift reports a label whose booked count was corrected by
// reconciliation.
type CounterDrift struct {
	Label  string
	Before int
	After  int
}
