package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saisumanth4024/storefront/internal/models"
)

func TestStepValid(t *testing.T) {
	for _, s := range []Step{StepAddress, StepDelivery, StepPayment, StepOTPVerification, StepSummary, StepConfirmation} {
		assert.True(t, s.Valid(), "step %s should be valid", s)
	}
	assert.False(t, Step("REVIEW").Valid())
	assert.False(t, Step("").Valid())
}

func TestPreviousStep(t *testing.T) {
	cases := []struct {
		from, want Step
	}{
		{StepAddress, StepAddress},
		{StepDelivery, StepAddress},
		{StepPayment, StepDelivery},
		{StepOTPVerification, StepPayment},
		{StepSummary, StepPayment},
		{StepConfirmation, StepConfirmation},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PreviousStep(tc.from), "back from %s", tc.from)
	}
}

func TestNextAfterAddress(t *testing.T) {
	addr := models.Address{FirstName: "Ada", LastName: "Lovelace", Address1: "1 Rue de la Paix", City: "Brussels", Postcode: "1000", Country: "BE"}

	sess := NewSession("s1", "u1")
	assert.Equal(t, StepAddress, NextAfterAddress(sess), "no billing address yet")

	sess.SetBillingAddress(addr)
	assert.Equal(t, StepDelivery, NextAfterAddress(sess), "same-address mirrors shipping")

	// Distinct shipping still pending: stay on ADDRESS.
	sess = NewSession("s2", "u1")
	sess.ToggleSameAddress(false)
	sess.SetBillingAddress(addr)
	assert.Equal(t, StepAddress, NextAfterAddress(sess))

	sess.SetShippingAddress(addr)
	assert.Equal(t, StepDelivery, NextAfterAddress(sess))
}

func TestNextAfterDelivery(t *testing.T) {
	sess := NewSession("s1", "u1")
	assert.Equal(t, StepDelivery, NextAfterDelivery(sess))

	sess.SetSelectedDeliverySlot(models.DeliveryTimeSlot{ID: "slot-1", Available: true})
	assert.Equal(t, StepPayment, NextAfterDelivery(sess))
}

func TestNextAfterPayment(t *testing.T) {
	assert.Equal(t, StepSummary, NextAfterPayment(models.PaymentCashOnDelivery, true), "COD never challenges")
	assert.Equal(t, StepSummary, NextAfterPayment(models.PaymentCashOnDelivery, false))
	assert.Equal(t, StepOTPVerification, NextAfterPayment(models.PaymentCreditCard, true))
	assert.Equal(t, StepSummary, NextAfterPayment(models.PaymentCreditCard, false))
	assert.Equal(t, StepSummary, NextAfterPayment(models.PaymentPaypal, false))
}

func TestNextAfterOTP(t *testing.T) {
	assert.Equal(t, StepPayment, NextAfterOTP())
}
