package checkout

import "github.com/saisumanth4024/storefront/internal/models"

// Step is one named stage of the checkout flow.
type Step string

const (
	StepAddress         Step = "ADDRESS"
	StepDelivery        Step = "DELIVERY"
	StepPayment         Step = "PAYMENT"
	StepOTPVerification Step = "OTP_VERIFICATION"
	StepSummary         Step = "SUMMARY"
	StepConfirmation    Step = "CONFIRMATION"
)

// stepOrder is the forward progression used for back navigation.
// OTP_VERIFICATION is not part of the linear walk; backing out of it
// returns to PAYMENT.
var stepOrder = []Step{StepAddress, StepDelivery, StepPayment, StepSummary, StepConfirmation}

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	switch s {
	case StepAddress, StepDelivery, StepPayment, StepOTPVerification, StepSummary, StepConfirmation:
		return true
	}
	return false
}

// PreviousStep returns the step back navigation lands on. ADDRESS is
// the floor; CONFIRMATION is terminal and stays put.
func PreviousStep(s Step) Step {
	if s == StepConfirmation {
		return StepConfirmation
	}
	if s == StepOTPVerification {
		return StepPayment
	}
	for i := 1; i < len(stepOrder); i++ {
		if stepOrder[i] == s {
			return stepOrder[i-1]
		}
	}
	return StepAddress
}

// NextAfterAddress decides where a saved billing address leads: to
// DELIVERY when shipping is already known (same-address or previously
// saved), otherwise the shopper stays on ADDRESS to fill the shipping
// sub-form.
func NextAfterAddress(s *Session) Step {
	if s.BillingAddress == nil {
		return StepAddress
	}
	if s.SameAddress || s.ShippingAddress != nil {
		return StepDelivery
	}
	return StepAddress
}

// NextAfterDelivery moves to PAYMENT once a slot is selected.
func NextAfterDelivery(s *Session) Step {
	if s.SelectedDeliverySlot == nil {
		return StepDelivery
	}
	return StepPayment
}

// NextAfterPayment decides between SUMMARY and the OTP challenge.
// Cash on delivery always skips OTP and detail capture.
func NextAfterPayment(method models.PaymentMethod, otpRequired bool) Step {
	if method == models.PaymentCashOnDelivery {
		return StepSummary
	}
	if otpRequired {
		return StepOTPVerification
	}
	return StepSummary
}

// NextAfterOTP returns to PAYMENT; the caller forwards to SUMMARY.
func NextAfterOTP() Step { return StepPayment }
