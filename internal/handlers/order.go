package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/saisumanth4024/storefront/internal/database"
	"github.com/saisumanth4024/storefront/internal/models"
)

// ScyllaOrderPlacer persists orders into the orders keyspace. It is
// the production implementation of the checkout order collaborator.
type ScyllaOrderPlacer struct {
	DeliveryLead time.Duration // default 72h
	TrackingBase string
}

func (p ScyllaOrderPlacer) Place(ctx context.Context, cartID string, draft models.OrderDraft) (models.Order, error) {
	lead := p.DeliveryLead
	if lead == 0 {
		lead = 72 * time.Hour
	}
	base := p.TrackingBase
	if base == "" {
		base = "https://track.storefront.example.com/"
	}

	now := time.Now()
	tracking := "TRK-" + uuid.NewString()[:8]
	order := models.Order{
		ID:                uuid.NewString(),
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
	}

	session, err := database.GetOrdersSession()
	if err != nil {
		return models.Order{}, err
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return models.Order{}, err
	}
	itemsJSON, _ := json.Marshal(order.Items)

	if err := session.Query(`
		INSERT INTO orders (order_id, user_id, status, payload, placed_at)
		VALUES (?, ?, ?, ?, ?)
	`, order.ID, order.UserID, string(order.Status), string(payload), order.PlacedAt).Exec(); err != nil {
		return models.Order{}, err
	}

	if err := session.Query(`
		INSERT INTO orders_by_user (user_id, placed_at, order_id, status, items, total)
		VALUES (?, ?, ?, ?, ?, ?)
	`, order.UserID, order.PlacedAt, order.ID, string(order.Status), string(itemsJSON), order.Totals.Total).Exec(); err != nil {
		log.Printf("⚠️ orders_by_user index write failed: %v", err)
	}

	log.Printf("📦 Order %s stored (user %s, %.2f)", order.ID, order.UserID, order.Totals.Total)
	return order, nil
}

// 🟢 GET /api/orders
func GetMyOrders(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	session, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	iter := session.Query(`
		SELECT order_id, placed_at, status, items, total
		FROM orders_by_user WHERE user_id = ?
	`, userID).Iter()

	type orderSummary struct {
		ID       string             `json:"id"`
		PlacedAt time.Time          `json:"placedAt"`
		Status   string             `json:"status"`
		Items    []models.OrderItem `json:"items"`
		Total    float64            `json:"total"`
	}

	var orders []orderSummary
	var (
		orderID, status, itemsJSON string
		placedAt                   time.Time
		total                      float64
	)
	for iter.Scan(&orderID, &placedAt, &status, &itemsJSON, &total) {
		summary := orderSummary{ID: orderID, PlacedAt: placedAt, Status: status, Total: total}
		_ = json.Unmarshal([]byte(itemsJSON), &summary.Items)
		orders = append(orders, summary)
	}
	if err := iter.Close(); err != nil {
		log.Printf("❌ Order list read failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Order fetch failed"})
		return
	}

	log.Printf("✅ %d orders found for user %s", len(orders), userID)
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// 🟢 GET /api/orders/:id
func GetOrderByID(c *gin.Context) {
	userID := c.GetString("user_id")
	orderID := c.Param("id")

	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	session, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	var ownerID, payload string
	err = session.Query("SELECT user_id, payload FROM orders WHERE order_id = ?", orderID).Scan(&ownerID, &payload)
	if err != nil || ownerID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	var order models.Order
	if err := json.Unmarshal([]byte(payload), &order); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Order decode failed"})
		return
	}

	c.JSON(http.StatusOK, order)
}
