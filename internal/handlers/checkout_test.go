package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saisumanth4024/storefront/internal/checkout"
	"github.com/saisumanth4024/storefront/internal/models"
)

// The handler tests run the full HTTP surface against the in-memory
// store and deterministic collaborators; no Redis, Scylla or Stripe.

type fakeCart struct {
	cart    *models.Cart
	cleared bool
}

func (f *fakeCart) Load(ctx context.Context, userID string) (*models.Cart, error) {
	if f.cart == nil {
		return nil, errors.New("cart empty or missing")
	}
	return f.cart, nil
}

func (f *fakeCart) Clear(ctx context.Context, userID string) error {
	f.cleared = true
	return nil
}

type fixedSlots struct{ slots []models.DeliveryTimeSlot }

func (p fixedSlots) Slots(ctx context.Context, from time.Time) ([]models.DeliveryTimeSlot, error) {
	return p.slots, nil
}

type alwaysCharge struct{}

func (alwaysCharge) Charge(ctx context.Context, method models.PaymentMethod, details models.PaymentDetails, amount float64) (models.Transaction, error) {
	return models.Transaction{ID: "tx-1", Status: models.TransactionCompleted, Amount: amount, Currency: "eur", Timestamp: time.Now()}, nil
}

type alwaysRequireOTP struct{}

func (alwaysRequireOTP) RequiresOTP(context.Context, models.PaymentMethod, float64) bool {
	return true
}

type localPlacer struct{}

func (localPlacer) Place(ctx context.Context, cartID string, draft models.OrderDraft) (models.Order, error) {
	return models.Order{
		ID:             "order-1",
		UserID:         draft.UserID,
		Status:         models.OrderConfirmed,
		Items:          draft.Items,
		Totals:         draft.Totals,
		PlacedAt:       time.Now(),
		TrackingNumber: "TRK-TEST",
	}, nil
}

type noSavedMethods struct{}

func (noSavedMethods) SavedMethods(ctx context.Context, userID string) ([]models.SavedPaymentMethod, error) {
	return []models.SavedPaymentMethod{}, nil
}

func testCart() *models.Cart {
	items := []models.CartItem{{ProductID: "p1", Name: "Lamp", Price: 30, Quantity: 2}}
	return &models.Cart{
		ID:     "cart:u1",
		UserID: "u1",
		Items:  items,
		Totals: computeTotals(items),
	}
}

func testSlots() []models.DeliveryTimeSlot {
	tomorrow := time.Now().Add(24 * time.Hour)
	return []models.DeliveryTimeSlot{
		{ID: "slot-open", Date: tomorrow, StartTime: "09:00", EndTime: "12:00", Available: true},
		{ID: "slot-full", Date: tomorrow, StartTime: "13:00", EndTime: "17:00", Available: false},
	}
}

func newTestRouter(t *testing.T, cart *fakeCart) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := checkout.NewService(
		checkout.NewMemoryStore(),
		fixedSlots{slots: testSlots()},
		alwaysCharge{},
		&checkout.StaticOTPBackend{},
		alwaysRequireOTP{},
		localPlacer{},
		noSavedMethods{},
		checkout.Config{MaxOTPAttempts: 3},
	)
	h := NewCheckoutHandler(svc, cart)

	r := gin.New()
	// stand-in for the JWT middleware
	r.Use(func(c *gin.Context) {
		c.Set("user_id", "u1")
		c.Set("email", "ada@example.com")
	})
	r.GET("/api/checkout", h.GetSession)
	r.POST("/api/checkout/address", h.SubmitAddress)
	r.GET("/api/checkout/delivery/slots", h.FetchDeliverySlots)
	r.POST("/api/checkout/delivery", h.SelectDeliverySlot)
	r.POST("/api/checkout/payment", h.CapturePayment)
	r.POST("/api/checkout/payment/process", h.ProcessPayment)
	r.POST("/api/checkout/otp/request", h.RequestOTP)
	r.POST("/api/checkout/otp/verify", h.VerifyOTP)
	r.POST("/api/checkout/otp/resend", h.ResendOTP)
	r.POST("/api/checkout/order", h.PlaceOrder)
	r.POST("/api/checkout/step", h.SetStep)
	r.POST("/api/checkout/reset", h.Reset)
	r.DELETE("/api/checkout/error", h.ClearError)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func addressBody() map[string]any {
	return map[string]any{
		"billing": map[string]any{
			"firstName": "Ada",
			"lastName":  "Lovelace",
			"address1":  "12 Rue Neuve",
			"city":      "Brussels",
			"postcode":  "1000",
			"country":   "BE",
			"email":     "ada@example.com",
		},
		"sameAddress": true,
	}
}

func TestGetSessionSeedsTotalFromCart(t *testing.T) {
	cart := &fakeCart{cart: testCart()}
	r := newTestRouter(t, cart)

	w, out := do(t, r, http.MethodGet, "/api/checkout", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ADDRESS", out["activeStep"])
	assert.InDelta(t, 72.6, out["orderTotal"], 0.01)
}

func TestSubmitAddressAdvances(t *testing.T) {
	r := newTestRouter(t, &fakeCart{cart: testCart()})

	w, out := do(t, r, http.MethodPost, "/api/checkout/address", addressBody())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DELIVERY", out["activeStep"])
	assert.NotNil(t, out["shippingAddress"], "same-address mirrors billing")
}

func TestSubmitAddressRejectsEmptyBody(t *testing.T) {
	r := newTestRouter(t, &fakeCart{cart: testCart()})

	w, _ := do(t, r, http.MethodPost, "/api/checkout/address", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelectDeliverySlot(t *testing.T) {
	r := newTestRouter(t, &fakeCart{cart: testCart()})

	w, out := do(t, r, http.MethodGet, "/api/checkout/delivery/slots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, out["availableDeliverySlots"], 2)

	w, out = do(t, r, http.MethodPost, "/api/checkout/delivery", map[string]any{"slotId": "slot-open"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PAYMENT", out["activeStep"])

	w, _ = do(t, r, http.MethodPost, "/api/checkout/delivery", map[string]any{"slotId": "slot-full"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "unavailable slot refused")

	w, _ = do(t, r, http.MethodPost, "/api/checkout/delivery", map[string]any{"slotId": "slot-nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCapturePaymentCOD(t *testing.T) {
	r := newTestRouter(t, &fakeCart{cart: testCart()})

	w, out := do(t, r, http.MethodPost, "/api/checkout/payment", map[string]any{"method": "COD"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SUMMARY", out["activeStep"], "COD skips the OTP challenge")
}

func TestCardPaymentOTPRoundTrip(t *testing.T) {
	r := newTestRouter(t, &fakeCart{cart: testCart()})

	w, out := do(t, r, http.MethodPost, "/api/checkout/payment", map[string]any{
		"method":  "CREDIT_CARD",
		"details": map[string]any{"cardholderName": "Ada Lovelace", "maskedNumber": "**** 4242"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OTP_VERIFICATION", out["activeStep"])

	w, out = do(t, r, http.MethodPost, "/api/checkout/otp/request", map[string]any{
		"phoneNumber": "+32470000000",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, out["otpVerification"])

	// Wrong code burns an attempt.
	w, out = do(t, r, http.MethodPost, "/api/checkout/otp/verify", map[string]any{"otp": "000000"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Incorrect OTP", out["error"])

	// Right code verifies and the handler forwards to the summary.
	w, out = do(t, r, http.MethodPost, "/api/checkout/otp/verify", map[string]any{"otp": "123456"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SUMMARY", out["activeStep"])
}

func TestVerifyOTPWithoutChallenge(t *testing.T) {
	r := newTestRouter(t, &fakeCart{cart: testCart()})

	w, out := do(t, r, http.MethodPost, "/api/checkout/otp/verify", map[string]any{"otp": "123456"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "No active OTP verification session", out["error"])
	assert.Equal(t, "PAYMENT", out["activeStep"])
}

func TestResendOTPBeforeExpiry(t *testing.T) {
	r := newTestRouter(t, &fakeCart{cart: testCart()})

	_, _ = do(t, r, http.MethodPost, "/api/checkout/otp/request", map[string]any{"phoneNumber": "+32470000000"})
	w, out := do(t, r, http.MethodPost, "/api/checkout/otp/resend", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Current verification code has not expired yet", out["error"])
}

func TestProcessPayment(t *testing.T) {
	r := newTestRouter(t, &fakeCart{cart: testCart()})

	_, _ = do(t, r, http.MethodPost, "/api/checkout/payment", map[string]any{"method": "COD"})
	w, out := do(t, r, http.MethodPost, "/api/checkout/payment/process", map[string]any{"amount": 72.6})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, out["processingPayment"])
	assert.Nil(t, out["error"])
}

func TestPlaceOrderFullFlow(t *testing.T) {
	cart := &fakeCart{cart: testCart()}
	r := newTestRouter(t, cart)

	_, _ = do(t, r, http.MethodPost, "/api/checkout/address", addressBody())
	_, _ = do(t, r, http.MethodGet, "/api/checkout/delivery/slots", nil)
	_, _ = do(t, r, http.MethodPost, "/api/checkout/delivery", map[string]any{"slotId": "slot-open"})
	_, _ = do(t, r, http.MethodPost, "/api/checkout/payment", map[string]any{"method": "COD"})

	w, out := do(t, r, http.MethodPost, "/api/checkout/order", map[string]any{"notes": "leave at door"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "CONFIRMATION", out["activeStep"])
	require.NotNil(t, out["order"])
	assert.True(t, cart.cleared, "successful placement empties the cart")

	// A second submit is refused with a conflict.
	w, out = do(t, r, http.MethodPost, "/api/checkout/order", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "An order has already been placed for this session", out["error"])
}

func TestPlaceOrderRequiresCompletedCheckout(t *testing.T) {
	r := newTestRouter(t, &fakeCart{cart: testCart()})

	w, _ := do(t, r, http.MethodPost, "/api/checkout/order", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code, "no address or slot selected yet")
}

func TestPlaceOrderRequiresCart(t *testing.T) {
	cart := &fakeCart{} // Load errors
	r := newTestRouter(t, cart)

	_, _ = do(t, r, http.MethodPost, "/api/checkout/address", addressBody())
	_, _ = do(t, r, http.MethodGet, "/api/checkout/delivery/slots", nil)
	_, _ = do(t, r, http.MethodPost, "/api/checkout/delivery", map[string]any{"slotId": "slot-open"})

	w, _ := do(t, r, http.MethodPost, "/api/checkout/order", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetStepBackNavigation(t *testing.T) {
	r := newTestRouter(t, &fakeCart{cart: testCart()})

	_, _ = do(t, r, http.MethodPost, "/api/checkout/address", addressBody())
	_, out := do(t, r, http.MethodGet, "/api/checkout", nil)
	require.Equal(t, "DELIVERY", out["activeStep"])
	completedBefore := out["completedSteps"]

	w, out := do(t, r, http.MethodPost, "/api/checkout/step", map[string]any{"back": true})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ADDRESS", out["activeStep"])
	assert.Equal(t, completedBefore, out["completedSteps"], "back navigation never rewrites history")
}

func TestSetStepForward(t *testing.T) {
	r := newTestRouter(t, &fakeCart{cart: testCart()})

	w, out := do(t, r, http.MethodPost, "/api/checkout/step", map[string]any{"step": "DELIVERY"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DELIVERY", out["activeStep"])
	assert.Equal(t, []any{"DELIVERY"}, out["completedSteps"])
}

func TestResetAndClearError(t *testing.T) {
	r := newTestRouter(t, &fakeCart{cart: testCart()})

	_, _ = do(t, r, http.MethodPost, "/api/checkout/address", addressBody())
	_, out := do(t, r, http.MethodPost, "/api/checkout/otp/verify", map[string]any{"otp": "123456"})
	require.Equal(t, "No active OTP verification session", out["error"])

	w, out := do(t, r, http.MethodDelete, "/api/checkout/error", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, out["error"])

	w, out = do(t, r, http.MethodPost, "/api/checkout/reset", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ADDRESS", out["activeStep"])
	assert.NotNil(t, out["billingAddress"], "reset keeps the addresses")
}
