package payperlead

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrSellerNotFound       = errors.New("seller not found")
	ErrPaymentMethodMissing = errors.New("no payment method on file")
)

// DeclinedError is returned when the payment processor rejects a charge
// attempt. Reason carries the processor-supplied decline message.
type DeclinedError struct {
	Reason string
}

func (e *DeclinedError) Error() string {
	if e.Reason == "" {
		return "payment declined"
	}
	return "payment declined: " + e.Reason
}

// WriteFailedError reports a charge that succeeded but whose visibility
// write did not. The charge reference is carried so the order can be
// reconciled manually.
type WriteFailedError struct {
	OrderID   string
	ChargeRef string
	Err       error
}

func (e *WriteFailedError) Error() string {
	return fmt.Sprintf("order %s charged (%s) but visibility update failed: %v", e.OrderID, e.ChargeRef, e.Err)
}

func (e *WriteFailedError) Unwrap() error { return e.Err }

// Order is a single sold lead. Orders are created hidden and this service
// only ever flips IsHidden from true to false.
type Order struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"seller_id"`
	TotalAmount int64     `json:"total_amount"`
	IsHidden    bool      `json:"is_hidden"`
	CreatedAt   time.Time `json:"created_at"`
}

// Seller is the owning account for orders, including the stored payment
// profile used for off-session unlock charges.
type Seller struct {
	ID                   string `json:"id"`
	Email                string `json:"email"`
	CustomerID           string `json:"stripe_customer_id"`
	DefaultPaymentMethod string `json:"default_payment_method"`
}

// HasPaymentMethod reports whether the seller can be charged off-session.
func (s Seller) HasPaymentMethod() bool {
	return s.CustomerID != "" && s.DefaultPaymentMethod != ""
}

// OrderVisibility is the snapshot of an order the unlock decision is made
// from. Seq is the insertion sequence, used to break ties between orders
// created in the same instant.
type OrderVisibility struct {
	Hidden    bool
	CreatedAt time.Time
	Seq       int64
}

// OrderStore is the persistence contract for orders. All operations are
// scoped by both order and seller id so one seller can never observe or
// mutate another seller's orders.
type OrderStore interface {
	// Visibility returns the order's current visibility snapshot, or
	// ErrOrderNotFound if the order does not exist or belongs to a
	// different seller.
	Visibility(ctx context.Context, orderID, sellerID string) (OrderVisibility, error)

	// CountPriorOrders counts the seller's orders created strictly before
	// (createdAt, seq). The target order never counts itself.
	CountPriorOrders(ctx context.Context, sellerID string, createdAt time.Time, seq int64) (int, error)

	// SetVisible flips is_hidden to false only if it is still true.
	// Returns false when the order was already visible.
	SetVisible(ctx context.Context, orderID, sellerID string) (bool, error)
}

// SellerStore is the persistence contract for seller payment profiles.
type SellerStore interface {
	Seller(ctx context.Context, sellerID string) (Seller, error)
	SavePaymentProfile(ctx context.Context, sellerID, customerID, paymentMethodID string) error
}

// ChargePurposeLeadUnlock tags unlock charges so they can be told apart
// from other payment flows in the processor's records.
const ChargePurposeLeadUnlock = "lead_unlock"

type ChargeRequest struct {
	SellerID string
	OrderID  string
	Amount   int64
	Currency string
	Purpose  string
}

type ChargeResult struct {
	// Reference is the processor-side id of the successful charge.
	Reference string
}

// PaymentGateway charges a seller's stored payment method off-session.
// Implementations must return ErrPaymentMethodMissing without attempting
// a charge when the seller has no usable payment method, and *DeclinedError
// when the processor rejects the charge.
type PaymentGateway interface {
	ChargeFixedFee(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// CustomerRegistrar stores a payment method with the processor and returns
// the processor-side customer id.
type CustomerRegistrar interface {
	RegisterPaymentMethod(ctx context.Context, sellerID, paymentMethodID string) (customerID string, err error)
}

// UnlockService is the mutating entry point consumed by the HTTP layer.
type UnlockService interface {
	Unlock(ctx context.Context, orderID, sellerID string) (UnlockResult, error)
	ShouldHide(ctx context.Context, orderID, sellerID string) (bool, error)
}
