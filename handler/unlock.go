package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/sellerportal/payperlead"
	"go.uber.org/zap"
)

type UnlockHandler struct {
	service   payperlead.UnlockService
	registrar payperlead.CustomerRegistrar
	log       *zap.SugaredLogger
}

func NewUnlockHandler(service payperlead.UnlockService, registrar payperlead.CustomerRegistrar, log *zap.SugaredLogger) *UnlockHandler {
	return &UnlockHandler{
		service:   service,
		registrar: registrar,
		log:       log,
	}
}

type unlockRequest struct {
	OrderID  string `json:"order_id"`
	SellerID string `json:"seller_id"`
}

func (req unlockRequest) validate() error {
	if _, err := uuid.Parse(req.OrderID); err != nil {
		return errors.New("order_id is missing or not in its proper form")
	}
	if _, err := uuid.Parse(req.SellerID); err != nil {
		return errors.New("seller_id is missing or not in its proper form")
	}
	return nil
}

type unlockResponse struct {
	Success   bool   `json:"success"`
	ChargeRef string `json:"charge_ref,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Unlock handles POST /unlock-order.
func (uh UnlockHandler) Unlock(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req unlockRequest

	if err := decode(r, &req); err != nil {
		uh.log.Errorw("Unlock", "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	if err := req.validate(); err != nil {
		uh.log.Errorw("Unlock", "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	res, err := uh.service.Unlock(ctx, req.OrderID, req.SellerID)
	if err != nil {
		uh.log.Errorw("Unlock", "order_id", req.OrderID, "seller_id", req.SellerID, "error", err.Error())
		respondErr(ctx, rw, unlockStatus(err), err)
		return
	}

	respond(ctx, rw, http.StatusOK, unlockResponse{
		Success:   true,
		ChargeRef: res.ChargeRef,
	})
}

type visibilityResponse struct {
	Hidden bool `json:"hidden"`
}

// Visibility handles POST /order-visibility: the dashboard's "should this
// lead stay masked" check. Free-tier orders are unlocked as a side effect.
func (uh UnlockHandler) Visibility(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req unlockRequest

	if err := decode(r, &req); err != nil {
		uh.log.Errorw("Visibility", "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	if err := req.validate(); err != nil {
		uh.log.Errorw("Visibility", "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	hidden, err := uh.service.ShouldHide(ctx, req.OrderID, req.SellerID)
	if err != nil {
		uh.log.Errorw("Visibility", "order_id", req.OrderID, "seller_id", req.SellerID, "error", err.Error())
		respondErr(ctx, rw, unlockStatus(err), err)
		return
	}

	respond(ctx, rw, http.StatusOK, visibilityResponse{Hidden: hidden})
}

type createCustomerRequest struct {
	SellerID        string `json:"seller_id"`
	PaymentMethodID string `json:"payment_method_id"`
}

type createCustomerResponse struct {
	Success    bool   `json:"success"`
	CustomerID string `json:"customer_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CreateCustomer handles POST /create-seller-customer: stores a payment
// method with the processor so later unlocks can charge off-session.
func (uh UnlockHandler) CreateCustomer(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createCustomerRequest

	if err := decode(r, &req); err != nil {
		uh.log.Errorw("CreateCustomer", "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	if _, err := uuid.Parse(req.SellerID); err != nil {
		uh.log.Errorw("CreateCustomer", "error", "seller_id is missing or not in its proper form")
		respondErr(ctx, rw, http.StatusBadRequest, errors.New("seller_id is missing or not in its proper form"))
		return
	}
	if req.PaymentMethodID == "" {
		uh.log.Errorw("CreateCustomer", "error", "payment_method_id is required")
		respondErr(ctx, rw, http.StatusBadRequest, errors.New("payment_method_id is required"))
		return
	}

	customerID, err := uh.registrar.RegisterPaymentMethod(ctx, req.SellerID, req.PaymentMethodID)
	if err != nil {
		uh.log.Errorw("CreateCustomer", "seller_id", req.SellerID, "error", err.Error())
		respondErr(ctx, rw, unlockStatus(err), err)
		return
	}

	respond(ctx, rw, http.StatusOK, createCustomerResponse{
		Success:    true,
		CustomerID: customerID,
	})
}

// unlockStatus maps the unlock error taxonomy to stable response codes.
func unlockStatus(err error) int {
	var declined *payperlead.DeclinedError

	switch {
	case errors.Is(err, payperlead.ErrOrderNotFound),
		errors.Is(err, payperlead.ErrSellerNotFound):
		return http.StatusNotFound
	case errors.Is(err, payperlead.ErrPaymentMethodMissing):
		return http.StatusPaymentRequired
	case errors.As(err, &declined):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
