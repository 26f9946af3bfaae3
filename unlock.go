package payperlead

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// DefaultUnlockFee is the fixed unlock fee in minor currency units ($10.00).
const DefaultUnlockFee = 1000

// DefaultCurrency is the currency unlock charges are made in.
const DefaultCurrency = "usd"

// UnlockResult reports how an unlock call made the order visible.
type UnlockResult struct {
	// Charged is true when the payment-required path was taken.
	Charged bool
	// ChargeRef is the processor charge reference when Charged is true.
	ChargeRef string
}

// Unlocker drives the unlock flow: read the order's state, evaluate the
// free-tier policy, charge the seller when required, and flip visibility.
// It is the only component that writes the is_hidden flag.
type Unlocker struct {
	orders   OrderStore
	gateway  PaymentGateway
	fee      int64
	currency string
	log      *zap.SugaredLogger
}

func NewUnlocker(orders OrderStore, gateway PaymentGateway, fee int64, currency string, log *zap.SugaredLogger) *Unlocker {
	if fee <= 0 {
		fee = DefaultUnlockFee
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Unlocker{
		orders:   orders,
		gateway:  gateway,
		fee:      fee,
		currency: currency,
		log:      log,
	}
}

// Unlock makes the order visible to its seller, charging the unlock fee
// when the order is past the free tier. Calling it on an already-visible
// order is a no-op success, so callers may retry freely.
//
// The read-evaluate-charge-write sequence is not transactional across the
// store and the processor; the write is a compare-and-set so the visibility
// flag stays race-free, and the charge carries an idempotency key derived
// from the order id so racing calls collapse to one charge processor-side.
func (u *Unlocker) Unlock(ctx context.Context, orderID, sellerID string) (UnlockResult, error) {
	vis, err := u.orders.Visibility(ctx, orderID, sellerID)
	if err != nil {
		return UnlockResult{}, fmt.Errorf("reading order visibility: %w", err)
	}

	prior := 0
	if vis.Hidden {
		prior, err = u.orders.CountPriorOrders(ctx, sellerID, vis.CreatedAt, vis.Seq)
		if err != nil {
			return UnlockResult{}, fmt.Errorf("counting prior orders: %w", err)
		}
	}

	decision := Evaluate(vis.Hidden, prior)
	switch decision {
	case DecisionAlreadyVisible:
		return UnlockResult{}, nil

	case DecisionFreeTier:
		if _, err := u.orders.SetVisible(ctx, orderID, sellerID); err != nil {
			return UnlockResult{}, fmt.Errorf("unlocking free-tier order: %w", err)
		}
		return UnlockResult{}, nil

	case DecisionPaymentRequired:
		charge, err := u.gateway.ChargeFixedFee(ctx, ChargeRequest{
			SellerID: sellerID,
			OrderID:  orderID,
			Amount:   u.fee,
			Currency: u.currency,
			Purpose:  ChargePurposeLeadUnlock,
		})
		if err != nil {
			return UnlockResult{}, err
		}

		// A zero-row update here means a racing call unlocked the order
		// after our read. The flag is already where we want it; the
		// duplicate charge is deduplicated by the gateway's idempotency
		// key.
		if _, err := u.orders.SetVisible(ctx, orderID, sellerID); err != nil {
			werr := &WriteFailedError{OrderID: orderID, ChargeRef: charge.Reference, Err: err}
			u.log.Errorw("unlock write failed after charge",
				"order_id", orderID,
				"seller_id", sellerID,
				"charge_ref", charge.Reference,
				"err", err.Error(),
			)
			return UnlockResult{}, werr
		}

		return UnlockResult{Charged: true, ChargeRef: charge.Reference}, nil
	}

	return UnlockResult{}, fmt.Errorf("unhandled unlock decision %v", decision)
}

// ShouldHide reports whether the order must stay hidden from the seller's
// dashboard. Hidden orders still within the free tier are unlocked on the
// spot; no charge is ever attempted from this path.
func (u *Unlocker) ShouldHide(ctx context.Context, orderID, sellerID string) (bool, error) {
	vis, err := u.orders.Visibility(ctx, orderID, sellerID)
	if err != nil {
		return false, fmt.Errorf("reading order visibility: %w", err)
	}
	if !vis.Hidden {
		return false, nil
	}

	prior, err := u.orders.CountPriorOrders(ctx, sellerID, vis.CreatedAt, vis.Seq)
	if err != nil {
		return false, fmt.Errorf("counting prior orders: %w", err)
	}

	if Evaluate(vis.Hidden, prior) == DecisionFreeTier {
		if _, err := u.orders.SetVisible(ctx, orderID, sellerID); err != nil {
			return false, fmt.Errorf("unlocking free-tier order: %w", err)
		}
		return false, nil
	}

	return true, nil
}
