package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saisumanth4024/storefront/internal/models"
)

func testAddress() models.Address {
	return models.Address{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Address1:  "12 Rue Neuve",
		City:      "Brussels",
		Postcode:  "1000",
		Country:   "BE",
		Phone:     "+32470000000",
		Email:     "ada@example.com",
	}
}

func TestNewSessionDefaults(t *testing.T) {
	sess := NewSession("s1", "u1")

	assert.Equal(t, StepAddress, sess.ActiveStep)
	assert.Empty(t, sess.CompletedSteps)
	assert.True(t, sess.SameAddress)
	assert.Nil(t, sess.BillingAddress)
	assert.Nil(t, sess.Order)
	assert.Zero(t, sess.OrderTotal)
}

func TestSetActiveStepMarksCompletedOnce(t *testing.T) {
	sess := NewSession("s1", "u1")

	sess.SetActiveStep(StepDelivery)
	sess.SetActiveStep(StepPayment)
	sess.SetActiveStep(StepDelivery)
	sess.SetActiveStep(StepDelivery)

	assert.Equal(t, StepDelivery, sess.ActiveStep)
	assert.Equal(t, []Step{StepDelivery, StepPayment}, sess.CompletedSteps,
		"revisiting a step must not append it again")
}

func TestSetActiveStepRejectsUnknownStep(t *testing.T) {
	sess := NewSession("s1", "u1")
	sess.SetActiveStep(StepDelivery)

	sess.SetActiveStep(Step("CHECKOUT_DONE"))

	assert.Equal(t, StepDelivery, sess.ActiveStep)
	assert.Equal(t, []Step{StepDelivery}, sess.CompletedSteps)
}

func TestSetActiveStepPinnedAfterOrder(t *testing.T) {
	sess := NewSession("s1", "u1")
	sess.Order = &models.Order{ID: "o1"}

	sess.SetActiveStep(StepAddress)
	assert.Equal(t, StepConfirmation, sess.ActiveStep, "an existing order pins the flow to CONFIRMATION")

	sess.SetActiveStep(StepPayment)
	assert.Equal(t, StepConfirmation, sess.ActiveStep)
}

func TestForceCompletedAllowsDuplicates(t *testing.T) {
	sess := NewSession("s1", "u1")
	sess.SetActiveStep(StepSummary)

	sess.forceCompleted(StepSummary)
	sess.forceCompleted(StepConfirmation)

	assert.Equal(t, []Step{StepSummary, StepSummary, StepConfirmation}, sess.CompletedSteps)
}

func TestBillingAddressMirrorsShipping(t *testing.T) {
	sess := NewSession("s1", "u1")
	addr := testAddress()

	sess.SetBillingAddress(addr)

	require.NotNil(t, sess.ShippingAddress)
	assert.Equal(t, addr, *sess.ShippingAddress)

	// The mirror is a copy, not an alias.
	sess.BillingAddress.City = "Antwerp"
	assert.Equal(t, "Brussels", sess.ShippingAddress.City)
}

func TestBillingAddressNoMirrorWhenSeparate(t *testing.T) {
	sess := NewSession("s1", "u1")
	sess.ToggleSameAddress(false)

	sess.SetBillingAddress(testAddress())

	assert.Nil(t, sess.ShippingAddress)
}

func TestToggleSameAddressCopiesExistingBilling(t *testing.T) {
	sess := NewSession("s1", "u1")
	sess.ToggleSameAddress(false)
	sess.SetBillingAddress(testAddress())
	require.Nil(t, sess.ShippingAddress)

	sess.ToggleSameAddress(true)

	require.NotNil(t, sess.ShippingAddress)
	assert.Equal(t, *sess.BillingAddress, *sess.ShippingAddress)
}

func TestToggleSameAddressWithoutBilling(t *testing.T) {
	sess := NewSession("s1", "u1")
	sess.ToggleSameAddress(true)

	assert.True(t, sess.SameAddress)
	assert.Nil(t, sess.ShippingAddress, "no billing address yet, only the flag changes")
}

func TestUpdateOTPVerification(t *testing.T) {
	sess := NewSession("s1", "u1")

	// No active verification: patch is a no-op, not a panic.
	attempts := 2
	sess.UpdateOTPVerification(OTPPatch{Attempts: &attempts})
	assert.Nil(t, sess.OTPVerification)

	sess.OTPVerification = &models.OTPVerification{RequestID: "r1", Attempts: 0, MaxAttempts: 3}
	verified := true
	sess.UpdateOTPVerification(OTPPatch{Attempts: &attempts, IsVerified: &verified})

	assert.Equal(t, 2, sess.OTPVerification.Attempts)
	assert.True(t, sess.OTPVerification.IsVerified)
	assert.Equal(t, "r1", sess.OTPVerification.RequestID, "unpatched fields stay put")
}

func TestResetPreservesAddressesAndSavedMethods(t *testing.T) {
	sess := NewSession("s1", "u1")
	sess.SetBillingAddress(testAddress())
	sess.SetSelectedDeliverySlot(models.DeliveryTimeSlot{ID: "slot-1"})
	sess.SetSelectedPaymentMethod(models.PaymentCreditCard)
	sess.SetOrderTotal(129.90)
	sess.SavedPaymentMethods = []models.SavedPaymentMethod{{ID: "pm-1", Method: models.PaymentCreditCard}}
	sess.Order = &models.Order{ID: "o1"}
	sess.Error = "boom"
	sess.SetActiveStep(StepConfirmation)

	sess.Reset()

	assert.Equal(t, StepAddress, sess.ActiveStep)
	assert.Empty(t, sess.CompletedSteps)
	assert.Nil(t, sess.Order)
	assert.Nil(t, sess.SelectedDeliverySlot)
	assert.Empty(t, sess.Error)
	assert.Zero(t, sess.OrderTotal)
	assert.True(t, sess.SameAddress)

	require.NotNil(t, sess.BillingAddress)
	require.NotNil(t, sess.ShippingAddress)
	assert.Len(t, sess.SavedPaymentMethods, 1)
	assert.Equal(t, "s1", sess.ID)
	assert.Equal(t, "u1", sess.UserID)
}
