package payperlead

// FreeOrderLimit is the highest prior-order count that still unlocks for
// free: a seller's first four orders (0-3 prior) are never charged.
const FreeOrderLimit = 3

// Decision is the outcome of evaluating an order against the free-tier
// policy.
type Decision int

const (
	// DecisionAlreadyVisible means the order is not hidden; nothing to do.
	DecisionAlreadyVisible Decision = iota
	// DecisionFreeTier means the order is hidden but within the free
	// allotment and may be unlocked without a charge.
	DecisionFreeTier
	// DecisionPaymentRequired means the order stays hidden until the
	// seller pays the unlock fee.
	DecisionPaymentRequired
)

func (d Decision) String() string {
	switch d {
	case DecisionAlreadyVisible:
		return "already_visible"
	case DecisionFreeTier:
		return "free_tier"
	case DecisionPaymentRequired:
		return "payment_required"
	}
	return "unknown"
}

// Evaluate decides what it takes to make an order visible, given its current
// hidden flag and the number of the seller's orders created strictly before
// it. Pure: no I/O, deterministic.
func Evaluate(hidden bool, priorOrders int) Decision {
	if !hidden {
		return DecisionAlreadyVisible
	}
	if priorOrders <= FreeOrderLimit {
		return DecisionFreeTier
	}
	return DecisionPaymentRequired
}
