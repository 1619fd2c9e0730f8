package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saisumanth4024/storefront/internal/models"
)

// The mock collaborators stand in for external services during local
// runs and tests. Latency and failure/risk rates are configuration,
// not behavior baked into the flow.

// sleepCtx waits d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// MockSlotProvider generates three windows a day for seven days with
// per-window availability probabilities. Evening slots on the first
// two days carry a flat fee.
type MockSlotProvider struct {
	Latency    time.Duration
	EveningFee float64
	Rand       *rand.Rand

	mu sync.Mutex
}

type slotWindow struct {
	start, end  string
	probability float64
}

var slotWindows = []slotWindow{
	{"09:00", "12:00", 0.8},
	{"13:00", "17:00", 0.7},
	{"18:00", "21:00", 0.6},
}

func (p *MockSlotProvider) Slots(ctx context.Context, from time.Time) ([]models.DeliveryTimeSlot, error) {
	if err := sleepCtx(ctx, p.Latency); err != nil {
		return nil, err
	}
	fee := p.EveningFee
	if fee == 0 {
		fee = 4.99
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	slots := make([]models.DeliveryTimeSlot, 0, 21)
	day := from.Truncate(24 * time.Hour).Add(24 * time.Hour)
	for d := 0; d < 7; d++ {
		date := day.Add(time.Duration(d) * 24 * time.Hour)
		for w, win := range slotWindows {
			slot := models.DeliveryTimeSlot{
				ID:        fmt.Sprintf("slot-%s-%d", date.Format("2006-01-02"), w),
				Date:      date,
				StartTime: win.start,
				EndTime:   win.end,
				Available: p.rnd() < win.probability,
			}
			if w == 2 && d < 2 {
				slot.Fee = fee
			}
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

func (p *MockSlotProvider) rnd() float64 {
	if p.Rand != nil {
		return p.Rand.Float64()
	}
	return rand.Float64()
}

// MockPaymentGateway settles instantly and fails at FailureRate.
type MockPaymentGateway struct {
	Latency     time.Duration
	FailureRate float64 // default 0.10
	Currency    string
	Rand        *rand.Rand

	mu sync.Mutex
}

var ErrPaymentDeclined = errors.New("Payment processing failed")

func (g *MockPaymentGateway) Charge(ctx context.Context, method models.PaymentMethod, details models.PaymentDetails, amount float64) (models.Transaction, error) {
	if err := sleepCtx(ctx, g.Latency); err != nil {
		return models.Transaction{}, err
	}
	rate := g.FailureRate
	if rate == 0 {
		rate = 0.10
	}
	g.mu.Lock()
	roll := rand.Float64()
	if g.Rand != nil {
		roll = g.Rand.Float64()
	}
	g.mu.Unlock()
	if roll < rate {
		return models.Transaction{}, ErrPaymentDeclined
	}
	currency := g.Currency
	if currency == "" {
		currency = "eur"
	}
	return models.Transaction{
		ID:                uuid.NewString(),
		Status:            models.TransactionCompleted,
		Amount:            amount,
		Currency:          currency,
		Timestamp:         time.Now(),
		ProcessorID:       "mock-" + uuid.NewString()[:8],
		ProcessorResponse: "approved",
	}, nil
}

// StaticOTPBackend accepts a single fixed code. It is the demo stand-in
// for a real verification backend.
type StaticOTPBackend struct {
	Latency time.Duration
	Code    string // default "123456"
	TTL     time.Duration
}

func (b *StaticOTPBackend) Request(ctx context.Context, phone, email string) (string, time.Time, error) {
	if err := sleepCtx(ctx, b.Latency); err != nil {
		return "", time.Time{}, err
	}
	ttl := b.TTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return uuid.NewString(), time.Now().Add(ttl), nil
}

func (b *StaticOTPBackend) Verify(ctx context.Context, requestID, code string) (bool, error) {
	if err := sleepCtx(ctx, b.Latency); err != nil {
		return false, err
	}
	want := b.Code
	if want == "" {
		want = "123456"
	}
	return code == want, nil
}

// CoinFlipRiskPolicy requires OTP for card payments at Rate.
type CoinFlipRiskPolicy struct {
	Rate float64 // default 0.5
	Rand *rand.Rand

	mu sync.Mutex
}

func (p *CoinFlipRiskPolicy) RequiresOTP(ctx context.Context, method models.PaymentMethod, amount float64) bool {
	if method != models.PaymentCreditCard {
		return false
	}
	rate := p.Rate
	if rate == 0 {
		rate = 0.5
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Rand != nil {
		return p.Rand.Float64() < rate
	}
	return rand.Float64() < rate
}

// NeverRequireOTP is the policy for environments without step-up auth.
type NeverRequireOTP struct{}

func (NeverRequireOTP) RequiresOTP(context.Context, models.PaymentMethod, float64) bool {
	return false
}

// MockOrderPlacer assigns ids and tracking locally.
type MockOrderPlacer struct {
	Latency      time.Duration
	DeliveryLead time.Duration // default 72h
	TrackingBase string
}

func (p *MockOrderPlacer) Place(ctx context.Context, cartID string, draft models.OrderDraft) (models.Order, error) {
	if err := sleepCtx(ctx, p.Latency); err != nil {
		return models.Order{}, err
	}
	lead := p.DeliveryLead
	if lead == 0 {
		lead = 72 * time.Hour
	}
	base := p.TrackingBase
	if base == "" {
		base = "https://track.example.com/"
	}
	id := uuid.NewString()
	tracking := "TRK-" + uuid.NewString()[:8]
	now := time.Now()
	return models.Order{
		ID:                id,
		UserID:            draft.UserID,
		Status:            models.OrderConfirmed,
		Items:             draft.Items,
		Totals:            draft.Totals,
		BillingAddress:    draft.BillingAddress,
		ShippingAddress:   draft.ShippingAddress,
		ShippingMethod:    draft.ShippingMethod,
		PaymentMethod:     draft.PaymentMethod,
		Transaction:       draft.Transaction,
		DeliverySlot:      draft.DeliverySlot,
		PlacedAt:          now,
		EstimatedDelivery: now.Add(lead),
		TrackingNumber:    tracking,
		TrackingURL:       base + tracking,
		Notes:             draft.Notes,
	}, nil
}

// MockPaymentMethodSource returns a small fixed instrument list.
type MockPaymentMethodSource struct {
	Latency time.Duration
}

func (s *MockPaymentMethodSource) SavedMethods(ctx context.Context, userID string) ([]models.SavedPaymentMethod, error) {
	if err := sleepCtx(ctx, s.Latency); err != nil {
		return nil, err
	}
	return []models.SavedPaymentMethod{
		{ID: "pm-" + userID + "-1", Method: models.PaymentCreditCard, Label: "Visa", MaskedNumber: "**** **** **** 4242", IsDefault: true},
		{ID: "pm-" + userID + "-2", Method: models.PaymentPaypal, Label: "PayPal"},
	}, nil
}
