package checkout

import (
	"time"

	"github.com/saisumanth4024/storefront/internal/models"
)

// Session is the full mutable checkout state for one shopper's
// current purchase attempt. It is owned by whoever holds it; all
// mutation goes through the setter intents below, each of which is
// total and never errors. Invalid payloads are accepted and produce
// no effect beyond the field they name.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`

	ActiveStep     Step   `json:"activeStep"`
	CompletedSteps []Step `json:"completedSteps"`

	BillingAddress  *models.Address `json:"billingAddress,omitempty"`
	ShippingAddress *models.Address `json:"shippingAddress,omitempty"`
	SameAddress     bool            `json:"sameAddress"`

	AvailableDeliverySlots []models.DeliveryTimeSlot `json:"availableDeliverySlots,omitempty"`
	SelectedDeliverySlot   *models.DeliveryTimeSlot  `json:"selectedDeliverySlot,omitempty"`

	SavedPaymentMethods   []models.SavedPaymentMethod `json:"savedPaymentMethods,omitempty"`
	SelectedPaymentMethod models.PaymentMethod        `json:"selectedPaymentMethod,omitempty"`
	PaymentDetails        *models.PaymentDetails      `json:"paymentDetails,omitempty"`
	OrderTotal            float64                     `json:"orderTotal"`

	OTPVerification *models.OTPVerification `json:"otpVerification,omitempty"`
	Order           *models.Order           `json:"order,omitempty"`

	Error string `json:"error,omitempty"`

	LoadingSlots          bool `json:"loadingSlots"`
	LoadingPaymentMethods bool `json:"loadingPaymentMethods"`
	ProcessingPayment     bool `json:"processingPayment"`
	PlacingOrder          bool `json:"placingOrder"`
	RequestingOTP         bool `json:"requestingOTP"`
	VerifyingOTP          bool `json:"verifyingOTP"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewSession returns a session at the start of the flow.
func NewSession(id, userID string) *Session {
	now := time.Now()
	return &Session{
		ID:             id,
		UserID:         userID,
		ActiveStep:     StepAddress,
		CompletedSteps: []Step{},
		SameAddress:    true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// SetActiveStep changes the current step and records it as completed
// unless it already is. An existing order pins the session to
// CONFIRMATION.
func (s *Session) SetActiveStep(step Step) {
	if !step.Valid() {
		return
	}
	if s.Order != nil {
		step = StepConfirmation
	}
	s.ActiveStep = step
	s.markCompleted(step)
}

// markCompleted appends step to CompletedSteps if not already there.
func (s *Session) markCompleted(step Step) {
	for _, done := range s.CompletedSteps {
		if done == step {
			return
		}
	}
	s.CompletedSteps = append(s.CompletedSteps, step)
}

// forceCompleted appends without the duplicate check. The OTP-success
// and order-placement paths use this, so those steps can appear twice
// when re-entered.
func (s *Session) forceCompleted(step Step) {
	s.CompletedSteps = append(s.CompletedSteps, step)
}

// SetBillingAddress stores the billing address and mirrors it into
// shipping while same-address is on.
func (s *Session) SetBillingAddress(a models.Address) {
	s.BillingAddress = &a
	if s.SameAddress {
		shipping := a
		s.ShippingAddress = &shipping
	}
}

// SetShippingAddress stores the shipping address unconditionally.
func (s *Session) SetShippingAddress(a models.Address) {
	s.ShippingAddress = &a
}

// ToggleSameAddress flips the same-address flag. Turning it on copies
// billing into shipping when billing is already set; with no billing
// address yet only the flag changes.
func (s *Session) ToggleSameAddress(flag bool) {
	s.SameAddress = flag
	if flag && s.BillingAddress != nil {
		shipping := *s.BillingAddress
		s.ShippingAddress = &shipping
	}
}

func (s *Session) SetSelectedDeliverySlot(slot models.DeliveryTimeSlot) {
	s.SelectedDeliverySlot = &slot
}

func (s *Session) SetSelectedPaymentMethod(method models.PaymentMethod) {
	s.SelectedPaymentMethod = method
}

func (s *Session) SetPaymentDetails(details models.PaymentDetails) {
	s.PaymentDetails = &details
}

func (s *Session) SetOrderTotal(amount float64) {
	s.OrderTotal = amount
}

// OTPPatch is a partial update for the active OTP verification; nil
// fields are left untouched.
type OTPPatch struct {
	RequestID  *string    `json:"requestId,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	Attempts   *int       `json:"attempts,omitempty"`
	IsVerified *bool      `json:"isVerified,omitempty"`
}

// UpdateOTPVerification merges patch into the active verification.
// No-op when no verification exists.
func (s *Session) UpdateOTPVerification(patch OTPPatch) {
	if s.OTPVerification == nil {
		return
	}
	if patch.RequestID != nil {
		s.OTPVerification.RequestID = *patch.RequestID
	}
	if patch.ExpiresAt != nil {
		s.OTPVerification.ExpiresAt = *patch.ExpiresAt
	}
	if patch.Attempts != nil {
		s.OTPVerification.Attempts = *patch.Attempts
	}
	if patch.IsVerified != nil {
		s.OTPVerification.IsVerified = *patch.IsVerified
	}
}

// Reset restores the session to its starting state, keeping the
// addresses and saved payment methods so a returning shopper does not
// retype them.
func (s *Session) Reset() {
	billing := s.BillingAddress
	shipping := s.ShippingAddress
	saved := s.SavedPaymentMethods

	fresh := NewSession(s.ID, s.UserID)
	fresh.CreatedAt = s.CreatedAt
	*s = *fresh

	s.BillingAddress = billing
	s.ShippingAddress = shipping
	s.SavedPaymentMethods = saved
}

// ClearError clears the session-level error banner.
func (s *Session) ClearError() {
	s.Error = ""
}

// Touch refreshes the update timestamp.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now()
}
