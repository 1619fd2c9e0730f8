package models

import "time"

// PaymentMethod identifies how the shopper pays.
type PaymentMethod string

const (
	PaymentCreditCard     PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard      PaymentMethod = "DEBIT_CARD"
	PaymentPaypal         PaymentMethod = "PAYPAL"
	PaymentCashOnDelivery PaymentMethod = "COD"
)

// PaymentDetails holds the captured instrument details for the
// current checkout. The number is stored masked only.
type PaymentDetails struct {
	CardholderName string `json:"cardholderName,omitempty"`
	MaskedNumber   string `json:"maskedNumber,omitempty"`
	ExpiryMonth    int    `json:"expiryMonth,omitempty"`
	ExpiryYear     int    `json:"expiryYear,omitempty"`
	Token          string `json:"token,omitempty"`
}

// SavedPaymentMethod is a previously stored instrument.
type SavedPaymentMethod struct {
	ID           string        `json:"id"`
	Method       PaymentMethod `json:"method"`
	Label        string        `json:"label"`
	MaskedNumber string        `json:"maskedNumber,omitempty"`
	IsDefault    bool          `json:"isDefault"`
}

// DeliveryTimeSlot is a bookable delivery window.
type DeliveryTimeSlot struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Available bool      `json:"available"`
	Fee       float64   `json:"fee,omitempty"`
}

// OTPVerification is a bounded challenge-response check nested inside
// the payment step. It is terminal once verified, once attempts reach
// maxAttempts, or once expiresAt has passed.
type OTPVerification struct {
	RequestID   string    `json:"requestId"`
	PhoneNumber string    `json:"phoneNumber"`
	Email       string    `json:"email,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"maxAttempts"`
	IsVerified  bool      `json:"isVerified"`
}

// Expired reports whether the challenge window has passed.
func (v OTPVerification) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// Blocked reports whether verification is permanently blocked for
// this challenge.
func (v OTPVerification) Blocked() bool {
	return v.Attempts >= v.MaxAttempts
}

// TransactionStatus is the settlement state of a payment transaction.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionFailed    TransactionStatus = "FAILED"
)

// Transaction is a settled payment capture.
type Transaction struct {
	ID                string            `json:"id"`
	Status            TransactionStatus `json:"status"`
	Amount            float64           `json:"amount"`
	Currency          string            `json:"currency"`
	Timestamp         time.Time         `json:"timestamp"`
	ProcessorID       string            `json:"processorId,omitempty"`
	ProcessorResponse string            `json:"processorResponse,omitempty"`
}
