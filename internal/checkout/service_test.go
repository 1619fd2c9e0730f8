package checkout

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saisumanth4024/storefront/internal/models"
)

// Deterministic collaborators for the service tests.

type stubGateway struct {
	tx    models.Transaction
	err   error
	calls int
}

func (g *stubGateway) Charge(ctx context.Context, method models.PaymentMethod, details models.PaymentDetails, amount float64) (models.Transaction, error) {
	g.calls++
	if g.err != nil {
		return models.Transaction{}, g.err
	}
	tx := g.tx
	if tx.ID == "" {
		tx = models.Transaction{ID: "tx-1", Status: models.TransactionCompleted, Amount: amount, Currency: "eur", Timestamp: time.Now()}
	}
	return tx, nil
}

type stubPlacer struct {
	err   error
	calls int
}

func (p *stubPlacer) Place(ctx context.Context, cartID string, draft models.OrderDraft) (models.Order, error) {
	p.calls++
	if p.err != nil {
		return models.Order{}, p.err
	}
	return models.Order{
		ID:       "order-1",
		UserID:   draft.UserID,
		Status:   models.OrderConfirmed,
		Items:    draft.Items,
		Totals:   draft.Totals,
		PlacedAt: time.Now(),
	}, nil
}

type fixedRisk struct{ required bool }

func (r fixedRisk) RequiresOTP(context.Context, models.PaymentMethod, float64) bool {
	return r.required
}

type testEnv struct {
	svc     *Service
	store   *MemoryStore
	gateway *stubGateway
	placer  *stubPlacer
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	store := NewMemoryStore()
	gateway := &stubGateway{}
	placer := &stubPlacer{}
	svc := NewService(
		store,
		&MockSlotProvider{Rand: rand.New(rand.NewSource(42))},
		gateway,
		&StaticOTPBackend{},
		fixedRisk{required: true},
		placer,
		&MockPaymentMethodSource{},
		cfg,
	)
	return &testEnv{svc: svc, store: store, gateway: gateway, placer: placer}
}

func TestSessionCreatesOnFirstUse(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()

	sess, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)
	assert.Equal(t, StepAddress, sess.ActiveStep)

	// Second call reads the stored session, not a fresh one.
	_, err = env.svc.Update(ctx, "u1", func(s *Session) { s.SetOrderTotal(50) })
	require.NoError(t, err)
	sess, err = env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, sess.OrderTotal)
}

func TestSubmitBillingAddressAdvancesToDelivery(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)

	sess, err := env.svc.SubmitBillingAddress(ctx, "u1", testAddress(), true)
	require.NoError(t, err)

	assert.Equal(t, StepDelivery, sess.ActiveStep)
	assert.Contains(t, sess.CompletedSteps, StepDelivery)
	require.NotNil(t, sess.ShippingAddress)
	assert.Equal(t, sess.BillingAddress.City, sess.ShippingAddress.City)
}

func TestSubmitBillingAddressSeparateShippingStays(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)

	sess, err := env.svc.SubmitBillingAddress(ctx, "u1", testAddress(), false)
	require.NoError(t, err)
	assert.Equal(t, StepAddress, sess.ActiveStep, "shipping still missing")
	assert.Nil(t, sess.ShippingAddress)

	sess, err = env.svc.SubmitShippingAddress(ctx, "u1", testAddress())
	require.NoError(t, err)
	assert.Equal(t, StepDelivery, sess.ActiveStep)
}

func TestFetchDeliverySlots(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)

	sess, err := env.svc.FetchDeliverySlots(ctx, "u1")
	require.NoError(t, err)

	assert.False(t, sess.LoadingSlots)
	assert.Len(t, sess.AvailableDeliverySlots, 21, "7 days, 3 windows per day")
	assert.Empty(t, sess.Error)

	// Evening slots on the first two days carry the fee.
	feeCount := 0
	for _, slot := range sess.AvailableDeliverySlots {
		if slot.Fee > 0 {
			feeCount++
			assert.Equal(t, "18:00", slot.StartTime)
		}
	}
	assert.Equal(t, 2, feeCount)
}

func TestFetchSavedPaymentMethods(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)

	sess, err := env.svc.FetchSavedPaymentMethods(ctx, "u1", "u1")
	require.NoError(t, err)

	assert.False(t, sess.LoadingPaymentMethods)
	assert.NotEmpty(t, sess.SavedPaymentMethods)
}

func TestCapturePaymentCODSkipsOTP(t *testing.T) {
	env := newTestEnv(t, Config{}) // risk policy always requires OTP
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)

	sess, err := env.svc.CapturePayment(ctx, "u1", models.PaymentCashOnDelivery, &models.PaymentDetails{CardholderName: "ignored"})
	require.NoError(t, err)

	assert.Equal(t, StepSummary, sess.ActiveStep)
	assert.Nil(t, sess.PaymentDetails, "COD captures no instrument details")
}

func TestCapturePaymentCardTriggersOTP(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)

	sess, err := env.svc.CapturePayment(ctx, "u1", models.PaymentCreditCard, &models.PaymentDetails{MaskedNumber: "**** 4242"})
	require.NoError(t, err)

	assert.Equal(t, StepOTPVerification, sess.ActiveStep)
	require.NotNil(t, sess.PaymentDetails)
	assert.Equal(t, "**** 4242", sess.PaymentDetails.MaskedNumber)
}

func TestRequestOTP(t *testing.T) {
	env := newTestEnv(t, Config{MaxOTPAttempts: 3})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)

	sess, err := env.svc.RequestOTP(ctx, "u1", "+32470000000", "ada@example.com")
	require.NoError(t, err)

	assert.False(t, sess.RequestingOTP)
	require.NotNil(t, sess.OTPVerification)
	assert.Equal(t, 0, sess.OTPVerification.Attempts)
	assert.Equal(t, 3, sess.OTPVerification.MaxAttempts)
	assert.NotEmpty(t, sess.OTPVerification.RequestID)
	assert.True(t, sess.OTPVerification.ExpiresAt.After(time.Now()))
	assert.Equal(t, StepOTPVerification, sess.ActiveStep)
}

func TestVerifyOTPSuccess(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)
	sess, err := env.svc.RequestOTP(ctx, "u1", "+32470000000", "")
	require.NoError(t, err)

	sess, err = env.svc.VerifyOTP(ctx, "u1", sess.OTPVerification.RequestID, "123456")
	require.NoError(t, err)

	assert.True(t, sess.OTPVerification.IsVerified)
	assert.Equal(t, StepPayment, sess.ActiveStep, "verification hands the flow back to the payment step")
	assert.Contains(t, sess.CompletedSteps, StepOTPVerification)
	assert.Empty(t, sess.Error)
	assert.False(t, sess.VerifyingOTP)
}

func TestVerifyOTPSuccessAppendsWithoutDedup(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)

	// OTP_VERIFICATION is already in completedSteps from the request;
	// success appends it again.
	sess, err := env.svc.RequestOTP(ctx, "u1", "+32470000000", "")
	require.NoError(t, err)
	require.Contains(t, sess.CompletedSteps, StepOTPVerification)

	sess, err = env.svc.VerifyOTP(ctx, "u1", "", "123456")
	require.NoError(t, err)

	count := 0
	for _, s := range sess.CompletedSteps {
		if s == StepOTPVerification {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestVerifyOTPIncorrectCodeBurnsAttempt(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)
	_, err = env.svc.RequestOTP(ctx, "u1", "+32470000000", "")
	require.NoError(t, err)

	sess, err := env.svc.VerifyOTP(ctx, "u1", "", "000000")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, 1, sess.OTPVerification.Attempts)
	assert.Equal(t, MsgIncorrectOTP, sess.Error)
	assert.False(t, sess.OTPVerification.IsVerified)

	// A malformed code also burns an attempt, before the backend runs.
	sess, err = env.svc.VerifyOTP(ctx, "u1", "", "12ab56")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, 2, sess.OTPVerification.Attempts)
	assert.Equal(t, MsgIncorrectOTP, sess.Error)
}

func TestVerifyOTPMaxAttemptsBlocks(t *testing.T) {
	env := newTestEnv(t, Config{MaxOTPAttempts: 3})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)
	_, err = env.svc.RequestOTP(ctx, "u1", "+32470000000", "")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = env.svc.VerifyOTP(ctx, "u1", "", "000000")
		assert.ErrorIs(t, err, ErrRejected)
	}

	// Challenge exhausted: even the right code is refused and the
	// counter no longer moves.
	sess, err := env.svc.VerifyOTP(ctx, "u1", "", "123456")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, MsgMaxAttemptsExceeded, sess.Error)
	assert.Equal(t, 3, sess.OTPVerification.Attempts)
	assert.False(t, sess.OTPVerification.IsVerified)
}

func TestVerifyOTPWithoutActiveChallenge(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)

	sess, err := env.svc.VerifyOTP(ctx, "u1", "", "123456")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, MsgNoActiveOTP, sess.Error)
	assert.Equal(t, StepPayment, sess.ActiveStep, "unexpected state bounces back to payment")
}

func TestVerifyOTPExpired(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)
	_, err = env.svc.RequestOTP(ctx, "u1", "+32470000000", "")
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	_, err = env.svc.Update(ctx, "u1", func(s *Session) {
		s.UpdateOTPVerification(OTPPatch{ExpiresAt: &past})
	})
	require.NoError(t, err)

	sess, err := env.svc.VerifyOTP(ctx, "u1", "", "123456")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, MsgOTPExpired, sess.Error)
	assert.Equal(t, 0, sess.OTPVerification.Attempts, "expiry is not an attempt")
}

func TestResendOTPOnlyWhenExpired(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)
	first, err := env.svc.RequestOTP(ctx, "u1", "+32470000000", "")
	require.NoError(t, err)

	sess, err := env.svc.ResendOTP(ctx, "u1")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, MsgOTPNotExpired, sess.Error)
	assert.Equal(t, first.OTPVerification.RequestID, sess.OTPVerification.RequestID)
}

func TestResendOTPKeepsAttempts(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)
	first, err := env.svc.RequestOTP(ctx, "u1", "+32470000000", "")
	require.NoError(t, err)

	_, err = env.svc.VerifyOTP(ctx, "u1", "", "000000")
	assert.ErrorIs(t, err, ErrRejected)

	past := time.Now().Add(-time.Minute)
	_, err = env.svc.Update(ctx, "u1", func(s *Session) {
		s.UpdateOTPVerification(OTPPatch{ExpiresAt: &past})
	})
	require.NoError(t, err)

	sess, err := env.svc.ResendOTP(ctx, "u1")
	require.NoError(t, err)
	assert.NotEqual(t, first.OTPVerification.RequestID, sess.OTPVerification.RequestID)
	assert.True(t, sess.OTPVerification.ExpiresAt.After(time.Now()))
	assert.Equal(t, 1, sess.OTPVerification.Attempts, "a fresh code does not grant fresh attempts")
	assert.Empty(t, sess.Error)
}

func TestResendOTPResetsAttemptsWhenConfigured(t *testing.T) {
	env := newTestEnv(t, Config{ResetAttemptsOnResend: true})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)
	_, err = env.svc.RequestOTP(ctx, "u1", "+32470000000", "")
	require.NoError(t, err)

	_, err = env.svc.VerifyOTP(ctx, "u1", "", "000000")
	assert.ErrorIs(t, err, ErrRejected)

	past := time.Now().Add(-time.Minute)
	_, err = env.svc.Update(ctx, "u1", func(s *Session) {
		s.UpdateOTPVerification(OTPPatch{ExpiresAt: &past})
	})
	require.NoError(t, err)

	sess, err := env.svc.ResendOTP(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, sess.OTPVerification.Attempts)
}

func TestProcessPaymentSuccess(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)
	_, err = env.svc.CapturePayment(ctx, "u1", models.PaymentCreditCard, &models.PaymentDetails{MaskedNumber: "**** 4242"})
	require.NoError(t, err)

	sess, err := env.svc.ProcessPayment(ctx, "u1", 99.50)
	require.NoError(t, err)

	assert.False(t, sess.ProcessingPayment, "in-flight flag cleared after settlement")
	assert.Empty(t, sess.Error)
	assert.Equal(t, 1, env.gateway.calls)
}

func TestProcessPaymentFailureSetsError(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.gateway.err = ErrPaymentDeclined
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)

	sess, err := env.svc.ProcessPayment(ctx, "u1", 99.50)
	require.NoError(t, err)

	assert.False(t, sess.ProcessingPayment, "flag cleared on failure too")
	assert.Equal(t, "Payment processing failed", sess.Error)
}

func TestProcessPaymentRefusesDoubleSubmit(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)
	_, err = env.svc.Update(ctx, "u1", func(s *Session) { s.ProcessingPayment = true })
	require.NoError(t, err)

	sess, err := env.svc.ProcessPayment(ctx, "u1", 99.50)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, MsgPaymentInFlight, sess.Error)
	assert.Equal(t, 0, env.gateway.calls, "gateway never consulted")
}

func TestProcessPaymentAttachesTransactionToOrder(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)
	_, err = env.svc.Update(ctx, "u1", func(s *Session) {
		s.Order = &models.Order{ID: "order-1"}
	})
	require.NoError(t, err)

	sess, err := env.svc.ProcessPayment(ctx, "u1", 42.00)
	require.NoError(t, err)

	require.NotNil(t, sess.Order.Transaction)
	assert.Equal(t, 42.00, sess.Order.Transaction.Amount)
}

func testDraft() models.OrderDraft {
	return models.OrderDraft{
		Items:  []models.OrderItem{{ProductID: "p1", Name: "Lamp", Price: 30, Quantity: 2}},
		Totals: models.CartTotals{Subtotal: 60, TaxTotal: 12.6, Total: 72.6},
	}
}

func TestPlaceOrderSuccess(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)
	_, err = env.svc.Update(ctx, "u1", func(s *Session) { s.SetActiveStep(StepSummary) })
	require.NoError(t, err)

	sess, err := env.svc.PlaceOrder(ctx, "u1", "cart:u1", testDraft())
	require.NoError(t, err)

	assert.False(t, sess.PlacingOrder)
	require.NotNil(t, sess.Order)
	assert.Equal(t, "u1", sess.Order.UserID)
	assert.Equal(t, StepConfirmation, sess.ActiveStep)

	// SUMMARY was already completed; placement appends it again
	// together with CONFIRMATION.
	summaryCount := 0
	for _, s := range sess.CompletedSteps {
		if s == StepSummary {
			summaryCount++
		}
	}
	assert.Equal(t, 2, summaryCount)
	assert.Contains(t, sess.CompletedSteps, StepConfirmation)
}

func TestPlaceOrderRefusesSecondOrder(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)

	_, err = env.svc.PlaceOrder(ctx, "u1", "cart:u1", testDraft())
	require.NoError(t, err)

	sess, err := env.svc.PlaceOrder(ctx, "u1", "cart:u1", testDraft())
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, MsgOrderAlreadyPlaced, sess.Error)
	assert.Equal(t, 1, env.placer.calls)
}

func TestPlaceOrderRefusesWhileInFlight(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)
	_, err = env.svc.Update(ctx, "u1", func(s *Session) { s.PlacingOrder = true })
	require.NoError(t, err)

	sess, err := env.svc.PlaceOrder(ctx, "u1", "cart:u1", testDraft())
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, MsgOrderInFlight, sess.Error)
	assert.Equal(t, 0, env.placer.calls)
}

func TestPlaceOrderFailureClearsFlag(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.placer.err = errors.New("keyspace down")
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)

	sess, err := env.svc.PlaceOrder(ctx, "u1", "cart:u1", testDraft())
	require.NoError(t, err)

	assert.False(t, sess.PlacingOrder)
	assert.Nil(t, sess.Order)
	assert.Equal(t, MsgUnknownError, sess.Error)
	assert.NotEqual(t, StepConfirmation, sess.ActiveStep)
}

func TestResetCheckout(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)
	_, err = env.svc.SubmitBillingAddress(ctx, "u1", testAddress(), true)
	require.NoError(t, err)
	_, err = env.svc.PlaceOrder(ctx, "u1", "cart:u1", testDraft())
	require.NoError(t, err)

	sess, err := env.svc.ResetCheckout(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, StepAddress, sess.ActiveStep)
	assert.Nil(t, sess.Order)
	assert.NotNil(t, sess.BillingAddress, "addresses survive the reset")
}

func TestFullCardFlowWithOTP(t *testing.T) {
	env := newTestEnv(t, Config{})
	ctx := context.Background()
	_, err := env.svc.Session(ctx, "u1", "u1")
	require.NoError(t, err)

	sess, err := env.svc.SubmitBillingAddress(ctx, "u1", testAddress(), true)
	require.NoError(t, err)
	require.Equal(t, StepDelivery, sess.ActiveStep)

	sess, err = env.svc.FetchDeliverySlots(ctx, "u1")
	require.NoError(t, err)
	var slot models.DeliveryTimeSlot
	for _, s := range sess.AvailableDeliverySlots {
		if s.Available {
			slot = s
			break
		}
	}
	require.NotEmpty(t, slot.ID, "seeded provider yields at least one open slot")

	sess, err = env.svc.SelectDeliverySlot(ctx, "u1", slot)
	require.NoError(t, err)
	require.Equal(t, StepPayment, sess.ActiveStep)

	sess, err = env.svc.CapturePayment(ctx, "u1", models.PaymentCreditCard, &models.PaymentDetails{MaskedNumber: "**** 4242"})
	require.NoError(t, err)
	require.Equal(t, StepOTPVerification, sess.ActiveStep)

	sess, err = env.svc.RequestOTP(ctx, "u1", "+32470000000", "ada@example.com")
	require.NoError(t, err)

	sess, err = env.svc.VerifyOTP(ctx, "u1", sess.OTPVerification.RequestID, "123456")
	require.NoError(t, err)
	require.True(t, sess.OTPVerification.IsVerified)

	sess, err = env.svc.PlaceOrder(ctx, "u1", "cart:u1", testDraft())
	require.NoError(t, err)
	require.NotNil(t, sess.Order)
	assert.Equal(t, StepConfirmation, sess.ActiveStep)
}
