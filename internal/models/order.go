package models

import "time"

type OrderStatus string

const (
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// Order is the finalized purchase. It is created exactly once per
// checkout session and immutable afterwards except for status
// transitions driven by fulfilment.
type Order struct {
	ID                string            `json:"id"`
	UserID            string            `json:"userId"`
	Status            OrderStatus       `json:"status"`
	Items             []OrderItem       `json:"items"`
	Totals            CartTotals        `json:"totals"`
	BillingAddress    Address           `json:"billingAddress"`
	ShippingAddress   Address           `json:"shippingAddress"`
	ShippingMethod    string            `json:"shippingMethod"`
	PaymentMethod     PaymentMethod     `json:"paymentMethod"`
	Transaction       *Transaction      `json:"transaction,omitempty"`
	DeliverySlot      *DeliveryTimeSlot `json:"deliverySlot,omitempty"`
	PlacedAt          time.Time         `json:"placedAt"`
	EstimatedDelivery time.Time         `json:"estimatedDelivery"`
	TrackingNumber    string            `json:"trackingNumber"`
	TrackingURL       string            `json:"trackingUrl"`
	Notes             string            `json:"notes,omitempty"`
}

type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// OrderDraft is what checkout hands to order persistence; the server
// assigns id, tracking and timestamps.
type OrderDraft struct {
	UserID          string            `json:"userId"`
	CartID          string            `json:"cartId"`
	Items           []OrderItem       `json:"items"`
	Totals          CartTotals        `json:"totals"`
	BillingAddress  Address           `json:"billingAddress"`
	ShippingAddress Address           `json:"shippingAddress"`
	ShippingMethod  string            `json:"shippingMethod"`
	PaymentMethod   PaymentMethod     `json:"paymentMethod"`
	Transaction     *Transaction      `json:"transaction,omitempty"`
	DeliverySlot    *DeliveryTimeSlot `json:"deliverySlot,omitempty"`
	Notes           string            `json:"notes,omitempty"`
}
