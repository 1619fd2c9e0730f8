package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"

	"github.com/saisumanth4024/storefront/internal/models"
)

// StripeGateway charges through Stripe PaymentIntents. Selected at
// startup when STRIPE_SECRET_KEY is configured; otherwise the mock
// gateway is used.
type StripeGateway struct {
	Currency string
}

func (g StripeGateway) Charge(ctx context.Context, method models.PaymentMethod, details models.PaymentDetails, amount float64) (models.Transaction, error) {
	currency := g.Currency
	if currency == "" {
		currency = "eur"
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(amount * 100)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"method":     string(method),
			"cardholder": details.CardholderName,
		},
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return models.Transaction{}, err
	}

	return models.Transaction{
		ID:                uuid.NewString(),
		Status:            models.TransactionCompleted,
		Amount:            amount,
		Currency:          currency,
		Timestamp:         time.Now(),
		ProcessorID:       intent.ID,
		ProcessorResponse: string(intent.Status),
	}, nil
}
