package checkout

import (
	"context"
	"errors"
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/saisumanth4024/storefront/internal/models"
)

// Error messages surfaced on the session. The UI shows whatever is in
// the session's single error field, last write wins.
const (
	MsgMaxAttemptsExceeded = "Maximum verification attempts exceeded"
	MsgIncorrectOTP        = "Incorrect OTP"
	MsgNoActiveOTP         = "No active OTP verification session"
	MsgOTPExpired          = "Verification code expired"
	MsgOTPNotExpired       = "Current verification code has not expired yet"
	MsgUnknownError        = "An unknown error occurred"
	MsgPaymentInFlight     = "A payment is already being processed"
	MsgOrderInFlight       = "Order placement already in progress"
	MsgOrderAlreadyPlaced  = "An order has already been placed for this session"
)

var otpShape = regexp.MustCompile(`^\d{6}$`)

// ErrRejected marks an operation that settled as rejected; the
// user-facing message is already on the session.
var ErrRejected = errors.New("checkout operation rejected")

// Config carries the checkout tunables.
type Config struct {
	OTPTTL                time.Duration // default 5m
	MaxOTPAttempts        int           // default 3
	ResetAttemptsOnResend bool          // resend does NOT grant new attempts unless set
	Currency              string
}

func (c Config) withDefaults() Config {
	if c.OTPTTL == 0 {
		c.OTPTTL = 5 * time.Minute
	}
	if c.MaxOTPAttempts == 0 {
		c.MaxOTPAttempts = 3
	}
	if c.Currency == "" {
		c.Currency = "eur"
	}
	return c
}

// Service runs the asynchronous checkout operations. Each operation
// loads the session, applies an explicit before-mutation, calls the
// collaborator, applies the after-mutation and saves — there is no
// hidden re-entrant dispatch. Failures funnel into the session's
// error field.
type Service struct {
	store   SessionStore
	slots   SlotProvider
	gateway PaymentGateway
	otp     OTPBackend
	risk    RiskPolicy
	orders  OrderPlacer
	methods PaymentMethodSource
	cfg     Config

	// per-session locks serialize read-modify-write cycles so a
	// double-submit cannot interleave two placements.
	locks sync.Map // session id → *sync.Mutex
}

func NewService(store SessionStore, slots SlotProvider, gateway PaymentGateway, otp OTPBackend, risk RiskPolicy, orders OrderPlacer, methods PaymentMethodSource, cfg Config) *Service {
	return &Service{
		store:   store,
		slots:   slots,
		gateway: gateway,
		otp:     otp,
		risk:    risk,
		orders:  orders,
		methods: methods,
		cfg:     cfg.withDefaults(),
	}
}

func (s *Service) lock(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Session returns the stored session, creating a fresh one when none
// exists yet.
func (s *Service) Session(ctx context.Context, id, userID string) (*Session, error) {
	unlock := s.lock(id)
	defer unlock()
	sess, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		sess = NewSession(id, userID)
		if err := s.store.Put(ctx, sess); err != nil {
			return nil, err
		}
		return sess, nil
	}
	return sess, err
}

// Update applies a synchronous intent to the session under the
// session lock and persists the result.
func (s *Service) Update(ctx context.Context, id string, apply func(*Session)) (*Session, error) {
	unlock := s.lock(id)
	defer unlock()
	return s.update(ctx, id, apply)
}

func (s *Service) update(ctx context.Context, id string, apply func(*Session)) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(sess)
	sess.Touch()
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SubmitBillingAddress stores the billing address and advances the
// step per the address transition rules.
func (s *Service) SubmitBillingAddress(ctx context.Context, id string, addr models.Address, sameAddress bool) (*Session, error) {
	unlock := s.lock(id)
	defer unlock()
	return s.update(ctx, id, func(sess *Session) {
		sess.ToggleSameAddress(sameAddress)
		sess.SetBillingAddress(addr)
		sess.SetActiveStep(NextAfterAddress(sess))
	})
}

// SubmitShippingAddress stores the shipping address and advances.
func (s *Service) SubmitShippingAddress(ctx context.Context, id string, addr models.Address) (*Session, error) {
	unlock := s.lock(id)
	defer unlock()
	return s.update(ctx, id, func(sess *Session) {
		sess.SetShippingAddress(addr)
		sess.SetActiveStep(NextAfterAddress(sess))
	})
}

// SelectDeliverySlot records the chosen slot and moves to PAYMENT.
func (s *Service) SelectDeliverySlot(ctx context.Context, id string, slot models.DeliveryTimeSlot) (*Session, error) {
	unlock := s.lock(id)
	defer unlock()
	return s.update(ctx, id, func(sess *Session) {
		sess.SetSelectedDeliverySlot(slot)
		sess.SetActiveStep(NextAfterDelivery(sess))
	})
}

// CapturePayment records the method and details, asks the risk policy
// whether a step-up OTP is needed and advances accordingly. COD skips
// both detail capture and OTP.
func (s *Service) CapturePayment(ctx context.Context, id string, method models.PaymentMethod, details *models.PaymentDetails) (*Session, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.SetSelectedPaymentMethod(method)
	if method != models.PaymentCashOnDelivery && details != nil {
		sess.SetPaymentDetails(*details)
	}

	required := false
	if method != models.PaymentCashOnDelivery {
		required = s.risk.RequiresOTP(ctx, method, sess.OrderTotal)
	}
	sess.SetActiveStep(NextAfterPayment(method, required))
	sess.Touch()
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// FetchDeliverySlots populates the available slots.
func (s *Service) FetchDeliverySlots(ctx context.Context, id string) (*Session, error) {
	unlock := s.lock(id)
	defer unlock()

	if _, err := s.update(ctx, id, func(sess *Session) { sess.LoadingSlots = true }); err != nil {
		return nil, err
	}
	slots, err := s.slots.Slots(ctx, time.Now())
	return s.update(ctx, id, func(sess *Session) {
		sess.LoadingSlots = false
		if err != nil {
			log.Printf("❌ Delivery slot fetch failed for session %s: %v", id, err)
			sess.Error = MsgUnknownError
			return
		}
		sess.AvailableDeliverySlots = slots
	})
}

// FetchSavedPaymentMethods populates the user's stored instruments.
func (s *Service) FetchSavedPaymentMethods(ctx context.Context, id, userID string) (*Session, error) {
	unlock := s.lock(id)
	defer unlock()

	if _, err := s.update(ctx, id, func(sess *Session) { sess.LoadingPaymentMethods = true }); err != nil {
		return nil, err
	}
	methods, err := s.methods.SavedMethods(ctx, userID)
	return s.update(ctx, id, func(sess *Session) {
		sess.LoadingPaymentMethods = false
		if err != nil {
			log.Printf("❌ Saved payment method fetch failed for %s: %v", userID, err)
			sess.Error = MsgUnknownError
			return
		}
		sess.SavedPaymentMethods = methods
	})
}

// ProcessPayment charges the captured details through the gateway and
// attaches the transaction to the order if one exists. The
// processing flag is cleared on every path. A second call while one
// is in flight is refused.
func (s *Service) ProcessPayment(ctx context.Context, id string, amount float64) (*Session, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.ProcessingPayment {
		sess.Error = MsgPaymentInFlight
		_ = s.store.Put(ctx, sess)
		return sess, ErrRejected
	}
	var details models.PaymentDetails
	if sess.PaymentDetails != nil {
		details = *sess.PaymentDetails
	}
	method := sess.SelectedPaymentMethod

	if _, err := s.update(ctx, id, func(sess *Session) { sess.ProcessingPayment = true }); err != nil {
		return nil, err
	}

	tx, chargeErr := s.gateway.Charge(ctx, method, details, amount)

	return s.update(ctx, id, func(sess *Session) {
		sess.ProcessingPayment = false
		if chargeErr != nil {
			log.Printf("❌ Payment failed for session %s: %v", id, chargeErr)
			sess.Error = chargeErr.Error()
			return
		}
		if sess.Order != nil {
			sess.Order.Transaction = &tx
		}
		log.Printf("💳 Payment captured for session %s: %s (%.2f %s)", id, tx.ID, tx.Amount, tx.Currency)
	})
}

// PlaceOrder persists the draft and pins the session to CONFIRMATION.
// SUMMARY and CONFIRMATION are appended to completedSteps without the
// duplicate check. At most one order per session: a second call, or a
// call while one is in flight, is refused.
func (s *Service) PlaceOrder(ctx context.Context, id, cartID string, draft models.OrderDraft) (*Session, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Order != nil {
		sess.Error = MsgOrderAlreadyPlaced
		_ = s.store.Put(ctx, sess)
		return sess, ErrRejected
	}
	if sess.PlacingOrder {
		sess.Error = MsgOrderInFlight
		_ = s.store.Put(ctx, sess)
		return sess, ErrRejected
	}

	if _, err := s.update(ctx, id, func(sess *Session) { sess.PlacingOrder = true }); err != nil {
		return nil, err
	}

	draft.UserID = sess.UserID
	draft.CartID = cartID
	order, placeErr := s.orders.Place(ctx, cartID, draft)

	return s.update(ctx, id, func(sess *Session) {
		sess.PlacingOrder = false
		if placeErr != nil {
			log.Printf("❌ Order placement failed for session %s: %v", id, placeErr)
			sess.Error = MsgUnknownError
			return
		}
		sess.Order = &order
		sess.ActiveStep = StepConfirmation
		sess.forceCompleted(StepSummary)
		sess.forceCompleted(StepConfirmation)
		log.Printf("📦 Order %s placed for session %s (%.2f)", order.ID, id, order.Totals.Total)
	})
}

// RequestOTP opens a fresh challenge and moves to OTP_VERIFICATION.
func (s *Service) RequestOTP(ctx context.Context, id, phone, email string) (*Session, error) {
	unlock := s.lock(id)
	defer unlock()

	if _, err := s.update(ctx, id, func(sess *Session) { sess.RequestingOTP = true }); err != nil {
		return nil, err
	}
	requestID, expiresAt, reqErr := s.otp.Request(ctx, phone, email)
	return s.update(ctx, id, func(sess *Session) {
		sess.RequestingOTP = false
		if reqErr != nil {
			log.Printf("❌ OTP request failed for session %s: %v", id, reqErr)
			sess.Error = MsgUnknownError
			return
		}
		sess.OTPVerification = &models.OTPVerification{
			RequestID:   requestID,
			PhoneNumber: phone,
			Email:       email,
			ExpiresAt:   expiresAt,
			Attempts:    0,
			MaxAttempts: s.cfg.MaxOTPAttempts,
		}
		sess.SetActiveStep(StepOTPVerification)
		log.Printf("🔐 OTP requested for session %s (request %s)", id, requestID)
	})
}

// VerifyOTP checks the submitted code. Validation failures are raised
// before the backend call; each mismatch burns one attempt until the
// challenge is permanently blocked. Success returns the flow to
// PAYMENT and appends OTP_VERIFICATION without the duplicate check;
// the caller forwards to SUMMARY.
func (s *Service) VerifyOTP(ctx context.Context, id, requestID, code string) (*Session, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	v := sess.OTPVerification
	if v == nil || (requestID != "" && v.RequestID != requestID) {
		// The UI reached an unexpected state; surface it and bounce
		// back to the payment step.
		sess.Error = MsgNoActiveOTP
		sess.SetActiveStep(StepPayment)
		sess.Touch()
		_ = s.store.Put(ctx, sess)
		return sess, ErrRejected
	}
	if v.Blocked() {
		sess.Error = MsgMaxAttemptsExceeded
		sess.Touch()
		_ = s.store.Put(ctx, sess)
		return sess, ErrRejected
	}
	if v.Expired(time.Now()) {
		sess.Error = MsgOTPExpired
		sess.Touch()
		_ = s.store.Put(ctx, sess)
		return sess, ErrRejected
	}

	if !otpShape.MatchString(code) {
		return s.failAttempt(ctx, sess)
	}

	if _, err := s.update(ctx, id, func(sess *Session) { sess.VerifyingOTP = true }); err != nil {
		return nil, err
	}
	ok, verifyErr := s.otp.Verify(ctx, v.RequestID, code)

	sess, err = s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.VerifyingOTP = false
	if verifyErr != nil {
		log.Printf("❌ OTP backend error for session %s: %v", id, verifyErr)
		sess.Error = MsgUnknownError
		sess.Touch()
		_ = s.store.Put(ctx, sess)
		return sess, ErrRejected
	}
	if !ok {
		return s.failAttempt(ctx, sess)
	}

	verified := true
	sess.UpdateOTPVerification(OTPPatch{IsVerified: &verified})
	sess.ActiveStep = NextAfterOTP()
	sess.forceCompleted(StepOTPVerification)
	sess.ClearError()
	sess.Touch()
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, err
	}
	log.Printf("✅ OTP verified for session %s", id)
	return sess, nil
}

func (s *Service) failAttempt(ctx context.Context, sess *Session) (*Session, error) {
	attempts := sess.OTPVerification.Attempts + 1
	sess.UpdateOTPVerification(OTPPatch{Attempts: &attempts})
	sess.Error = MsgIncorrectOTP
	sess.Touch()
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, ErrRejected
}

// ResendOTP issues a new challenge once the current one has expired.
// Attempts carry over unless ResetAttemptsOnResend is set; resending
// does not grant extra tries by default.
func (s *Service) ResendOTP(ctx context.Context, id string) (*Session, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	v := sess.OTPVerification
	if v == nil {
		sess.Error = MsgNoActiveOTP
		sess.SetActiveStep(StepPayment)
		sess.Touch()
		_ = s.store.Put(ctx, sess)
		return sess, ErrRejected
	}
	if !v.Expired(time.Now()) {
		sess.Error = MsgOTPNotExpired
		sess.Touch()
		_ = s.store.Put(ctx, sess)
		return sess, ErrRejected
	}

	requestID, expiresAt, reqErr := s.otp.Request(ctx, v.PhoneNumber, v.Email)
	return s.update(ctx, id, func(sess *Session) {
		if reqErr != nil {
			sess.Error = MsgUnknownError
			return
		}
		patch := OTPPatch{RequestID: &requestID, ExpiresAt: &expiresAt}
		if s.cfg.ResetAttemptsOnResend {
			zero := 0
			patch.Attempts = &zero
		}
		sess.UpdateOTPVerification(patch)
		sess.ClearError()
		log.Printf("🔁 OTP resent for session %s (request %s)", id, requestID)
	})
}

// ResetCheckout restores defaults, preserving addresses and stored
// payment methods.
func (s *Service) ResetCheckout(ctx context.Context, id string) (*Session, error) {
	unlock := s.lock(id)
	defer unlock()
	return s.update(ctx, id, func(sess *Session) { sess.Reset() })
}
