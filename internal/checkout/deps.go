package checkout

import (
	"context"
	"time"

	"github.com/saisumanth4024/storefront/internal/models"
)

// SlotProvider supplies the bookable delivery windows for a session.
type SlotProvider interface {
	Slots(ctx context.Context, from time.Time) ([]models.DeliveryTimeSlot, error)
}

// PaymentGateway captures a payment. Implementations live behind this
// interface so the demo gateway and Stripe are interchangeable.
type PaymentGateway interface {
	Charge(ctx context.Context, method models.PaymentMethod, details models.PaymentDetails, amount float64) (models.Transaction, error)
}

// OTPBackend issues and checks one-time passwords.
type OTPBackend interface {
	Request(ctx context.Context, phone, email string) (requestID string, expiresAt time.Time, err error)
	Verify(ctx context.Context, requestID, code string) (bool, error)
}

// RiskPolicy decides whether a payment needs step-up OTP
// verification. In production this is a fraud-scoring call; the
// default implementation is a coin flip for card payments.
type RiskPolicy interface {
	RequiresOTP(ctx context.Context, method models.PaymentMethod, amount float64) bool
}

// OrderPlacer persists a draft and returns the server-assigned order.
type OrderPlacer interface {
	Place(ctx context.Context, cartID string, draft models.OrderDraft) (models.Order, error)
}

// PaymentMethodSource lists a user's stored instruments.
type PaymentMethodSource interface {
	SavedMethods(ctx context.Context, userID string) ([]models.SavedPaymentMethod, error)
}
