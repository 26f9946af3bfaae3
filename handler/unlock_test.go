package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sellerportal/payperlead"
	"go.uber.org/zap"
)

type fakeUnlockService struct {
	unlockCalls int
	hideCalls   int
	res         payperlead.UnlockResult
	hidden      bool
	err         error
}

func (f *fakeUnlockService) Unlock(ctx context.Context, orderID, sellerID string) (payperlead.UnlockResult, error) {
	f.unlockCalls++
	return f.res, f.err
}

func (f *fakeUnlockService) ShouldHide(ctx context.Context, orderID, sellerID string) (bool, error) {
	f.hideCalls++
	return f.hidden, f.err
}

type fakeRegistrar struct {
	calls      int
	customerID string
	err        error
}

func (f *fakeRegistrar) RegisterPaymentMethod(ctx context.Context, sellerID, paymentMethodID string) (string, error) {
	f.calls++
	return f.customerID, f.err
}

func newTestRouter(service payperlead.UnlockService, registrar payperlead.CustomerRegistrar) http.Handler {
	uh := NewUnlockHandler(service, registrar, zap.NewNop().Sugar())

	r := chi.NewRouter()
	r.Use(CORS("*"))
	r.Post("/unlock-order", uh.Unlock)
	r.Post("/order-visibility", uh.Visibility)
	r.Post("/create-seller-customer", uh.CreateCustomer)
	return r
}

const (
	testOrderID  = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	testSellerID = "6ba7b811-9dad-11d1-80b4-00c04fd430c8"
)

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestUnlockEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("successful unlock", func(t *testing.T) {
		service := &fakeUnlockService{res: payperlead.UnlockResult{Charged: true, ChargeRef: "pi_1"}}
		h := newTestRouter(service, &fakeRegistrar{})

		rec := post(t, h, "/unlock-order", `{"order_id":"`+testOrderID+`","seller_id":"`+testSellerID+`"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Success   bool   `json:"success"`
			ChargeRef string `json:"charge_ref"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if !resp.Success || resp.ChargeRef != "pi_1" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		service := &fakeUnlockService{}
		h := newTestRouter(service, &fakeRegistrar{})

		rec := post(t, h, "/unlock-order", `{not json`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if service.unlockCalls != 0 {
			t.Fatalf("service must not be called on a malformed request")
		}
	})

	t.Run("missing order id", func(t *testing.T) {
		service := &fakeUnlockService{}
		h := newTestRouter(service, &fakeRegistrar{})

		rec := post(t, h, "/unlock-order", `{"seller_id":"`+testSellerID+`"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if service.unlockCalls != 0 {
			t.Fatalf("service must not be called without an order id")
		}
		var resp struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.Success || resp.Error == "" {
			t.Fatalf("expected a structured error, got %+v", resp)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		h := newTestRouter(&fakeUnlockService{}, &fakeRegistrar{})

		req := httptest.NewRequest(http.MethodOptions, "/unlock-order", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Fatalf("expected empty body, got %q", rec.Body.String())
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Fatalf("expected CORS headers on preflight")
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		h := newTestRouter(&fakeUnlockService{}, &fakeRegistrar{})

		req := httptest.NewRequest(http.MethodGet, "/unlock-order", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("error mapping", func(t *testing.T) {
		cases := []struct {
			name string
			err  error
			want int
		}{
			{name: "order not found", err: payperlead.ErrOrderNotFound, want: http.StatusNotFound},
			{name: "seller not found", err: payperlead.ErrSellerNotFound, want: http.StatusNotFound},
			{name: "payment method missing", err: payperlead.ErrPaymentMethodMissing, want: http.StatusPaymentRequired},
			{name: "declined", err: &payperlead.DeclinedError{Reason: "expired card"}, want: http.StatusPaymentRequired},
			{name: "write failed", err: &payperlead.WriteFailedError{OrderID: "o", ChargeRef: "pi"}, want: http.StatusInternalServerError},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				h := newTestRouter(&fakeUnlockService{err: tc.err}, &fakeRegistrar{})

				rec := post(t, h, "/unlock-order", `{"order_id":"`+testOrderID+`","seller_id":"`+testSellerID+`"}`)
				if rec.Code != tc.want {
					t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
				}
			})
		}
	})
}

func TestVisibilityEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("hidden order", func(t *testing.T) {
		h := newTestRouter(&fakeUnlockService{hidden: true}, &fakeRegistrar{})

		rec := post(t, h, "/order-visibility", `{"order_id":"`+testOrderID+`","seller_id":"`+testSellerID+`"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp struct {
			Hidden bool `json:"hidden"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if !resp.Hidden {
			t.Fatalf("expected hidden=true")
		}
	})

	t.Run("invalid ids", func(t *testing.T) {
		service := &fakeUnlockService{}
		h := newTestRouter(service, &fakeRegistrar{})

		rec := post(t, h, "/order-visibility", `{"order_id":"abc","seller_id":"def"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if service.hideCalls != 0 {
			t.Fatalf("service must not be called with invalid ids")
		}
	})
}

func TestCreateCustomerEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("stores the payment method", func(t *testing.T) {
		registrar := &fakeRegistrar{customerID: "cus_1"}
		h := newTestRouter(&fakeUnlockService{}, registrar)

		rec := post(t, h, "/create-seller-customer", `{"seller_id":"`+testSellerID+`","payment_method_id":"pm_1"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Success    bool   `json:"success"`
			CustomerID string `json:"customer_id"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if !resp.Success || resp.CustomerID != "cus_1" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("invalid seller id", func(t *testing.T) {
		registrar := &fakeRegistrar{}
		h := newTestRouter(&fakeUnlockService{}, registrar)

		rec := post(t, h, "/create-seller-customer", `{"seller_id":"abc","payment_method_id":"pm_1"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if registrar.calls != 0 {
			t.Fatalf("registrar must not be called with an invalid seller id")
		}
	})

	t.Run("missing payment method id", func(t *testing.T) {
		registrar := &fakeRegistrar{}
		h := newTestRouter(&fakeUnlockService{}, registrar)

		rec := post(t, h, "/create-seller-customer", `{"seller_id":"`+testSellerID+`"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if registrar.calls != 0 {
			t.Fatalf("registrar must not be called without a payment method")
		}
	})
}
