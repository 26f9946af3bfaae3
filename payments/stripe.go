// Package payments charges sellers through Stripe using their stored
// payment profile.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sellerportal/payperlead"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"go.uber.org/zap"
)

type stripeIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeCustomerAPI interface {
	New(params *stripe.CustomerParams) (*stripe.Customer, error)
	Update(id string, params *stripe.CustomerParams) (*stripe.Customer, error)
}

// Clients lets tests inject fakes for the narrow slice of the Stripe API
// the gateway uses.
type Clients struct {
	Intents   stripeIntentAPI
	Customers stripeCustomerAPI
}

// Config configures the Gateway.
type Config struct {
	APIKey  string
	Sellers payperlead.SellerStore
	Log     *zap.SugaredLogger
	Clients *Clients
}

// Gateway implements payperlead.PaymentGateway and
// payperlead.CustomerRegistrar on top of Stripe PaymentIntents and
// Customers.
type Gateway struct {
	intents   stripeIntentAPI
	customers stripeCustomerAPI
	sellers   payperlead.SellerStore
	log       *zap.SugaredLogger
}

func NewGateway(cfg Config) (*Gateway, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Clients == nil {
		return nil, errors.New("stripe api key is required")
	}
	if cfg.Sellers == nil {
		return nil, errors.New("seller store is required")
	}

	var clients Clients
	if cfg.Clients != nil {
		clients = *cfg.Clients
	} else {
		sc := client.New(apiKey, nil)
		clients = Clients{
			Intents:   sc.PaymentIntents,
			Customers: sc.Customers,
		}
	}

	if clients.Intents == nil || clients.Customers == nil {
		return nil, errors.New("incomplete stripe client configuration")
	}

	return &Gateway{
		intents:   clients.Intents,
		customers: clients.Customers,
		sellers:   cfg.Sellers,
		log:       cfg.Log,
	}, nil
}

// ChargeFixedFee charges the unlock fee against the seller's stored payment
// method, off-session. The idempotency key is derived from the order id and
// purpose so racing unlock calls collapse to a single charge.
func (g *Gateway) ChargeFixedFee(ctx context.Context, req payperlead.ChargeRequest) (payperlead.ChargeResult, error) {
	seller, err := g.sellers.Seller(ctx, req.SellerID)
	if err != nil {
		return payperlead.ChargeResult{}, fmt.Errorf("loading seller payment profile: %w", err)
	}
	if !seller.HasPaymentMethod() {
		return payperlead.ChargeResult{}, payperlead.ErrPaymentMethodMissing
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		Customer:      stripe.String(seller.CustomerID),
		PaymentMethod: stripe.String(seller.DefaultPaymentMethod),
		OffSession:    stripe.Bool(true),
		Confirm:       stripe.Bool(true),
		Metadata: map[string]string{
			"seller_id": req.SellerID,
			"order_id":  req.OrderID,
			"type":      req.Purpose,
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.Purpose + ":" + req.OrderID)

	intent, err := g.intents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return payperlead.ChargeResult{}, &payperlead.DeclinedError{Reason: stripeErr.Msg}
		}
		return payperlead.ChargeResult{}, fmt.Errorf("creating payment intent: %w", err)
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return payperlead.ChargeResult{}, &payperlead.DeclinedError{
			Reason: "payment intent status " + string(intent.Status),
		}
	}

	g.log.Infow("unlock fee charged",
		"payment_intent", intent.ID,
		"seller_id", req.SellerID,
		"order_id", req.OrderID,
		"amount", req.Amount,
	)

	return payperlead.ChargeResult{Reference: intent.ID}, nil
}

// RegisterPaymentMethod creates a Stripe customer for the seller with the
// given payment method, marks it as the default for off-session charges,
// and persists the profile.
func (g *Gateway) RegisterPaymentMethod(ctx context.Context, sellerID, paymentMethodID string) (string, error) {
	seller, err := g.sellers.Seller(ctx, sellerID)
	if err != nil {
		return "", fmt.Errorf("loading seller: %w", err)
	}

	customerParams := &stripe.CustomerParams{
		PaymentMethod: stripe.String(paymentMethodID),
		Email:         stripe.String(seller.Email),
		Metadata: map[string]string{
			"seller_id": sellerID,
		},
	}
	customerParams.Context = ctx

	customer, err := g.customers.New(customerParams)
	if err != nil {
		return "", fmt.Errorf("creating stripe customer: %w", err)
	}

	updateParams := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	updateParams.Context = ctx

	if _, err := g.customers.Update(customer.ID, updateParams); err != nil {
		return "", fmt.Errorf("setting default payment method: %w", err)
	}

	if err := g.sellers.SavePaymentProfile(ctx, sellerID, customer.ID, paymentMethodID); err != nil {
		return "", fmt.Errorf("saving payment profile: %w", err)
	}

	g.log.Infow("stripe customer created",
		"customer_id", customer.ID,
		"seller_id", sellerID,
	)

	return customer.ID, nil
}
