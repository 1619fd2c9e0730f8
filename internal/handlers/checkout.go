package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/saisumanth4024/storefront/internal/checkout"
	"github.com/saisumanth4024/storefront/internal/database"
	"github.com/saisumanth4024/storefront/internal/models"
	"github.com/saisumanth4024/storefront/internal/utils"
)

// CheckoutHandler exposes the checkout flow over HTTP. The service
// and cart source are injected so the surface runs against mocks in
// tests and against Redis/Scylla/Stripe in production.
type CheckoutHandler struct {
	svc   *checkout.Service
	carts CartSource

	// Notify runs after a successful placement (confirmation email,
	// tracking QR). Nil disables it.
	Notify func(order models.Order, email string)
}

func NewCheckoutHandler(svc *checkout.Service, carts CartSource) *CheckoutHandler {
	return &CheckoutHandler{svc: svc, carts: carts}
}

// sessionID ties the checkout session to the authenticated user: one
// active checkout per shopper.
func sessionID(c *gin.Context) (string, string, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return "", "", false
	}
	return userID, userID, true
}

// 🟢 GET /api/checkout
func (h *CheckoutHandler) GetSession(c *gin.Context) {
	id, userID, ok := sessionID(c)
	if !ok {
		return
	}

	sess, err := h.svc.Session(c.Request.Context(), id, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session load failed"})
		return
	}

	// Seed the order total from the cart so the summary sidebar and
	// payment amount agree.
	if cart, err := h.carts.Load(c.Request.Context(), userID); err == nil && sess.OrderTotal == 0 {
		sess, _ = h.svc.Update(c.Request.Context(), id, func(s *checkout.Session) {
			s.SetOrderTotal(cart.Totals.Total)
		})
	}

	c.JSON(http.StatusOK, sess)
}

// 🟢 POST /api/checkout/address
func (h *CheckoutHandler) SubmitAddress(c *gin.Context) {
	id, _, ok := sessionID(c)
	if !ok {
		return
	}

	var req struct {
		Billing     *models.Address `json:"billing"`
		Shipping    *models.Address `json:"shipping"`
		SameAddress *bool           `json:"sameAddress"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var sess *checkout.Session
	var err error

	switch {
	case req.Billing != nil:
		same := true
		if req.SameAddress != nil {
			same = *req.SameAddress
		}
		sess, err = h.svc.SubmitBillingAddress(ctx, id, *req.Billing, same)
	case req.Shipping != nil:
		sess, err = h.svc.SubmitShippingAddress(ctx, id, *req.Shipping)
	case req.SameAddress != nil:
		sess, err = h.svc.Update(ctx, id, func(s *checkout.Session) {
			s.ToggleSameAddress(*req.SameAddress)
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to apply"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session update failed"})
		return
	}

	c.JSON(http.StatusOK, sess)
}

// 🟢 GET /api/checkout/delivery/slots
func (h *CheckoutHandler) FetchDeliverySlots(c *gin.Context) {
	id, _, ok := sessionID(c)
	if !ok {
		return
	}

	sess, err := h.svc.FetchDeliverySlots(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Slot fetch failed"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// 🟢 POST /api/checkout/delivery
func (h *CheckoutHandler) SelectDeliverySlot(c *gin.Context) {
	id, _, ok := sessionID(c)
	if !ok {
		return
	}

	var req struct {
		SlotID string `json:"slotId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	ctx := c.Request.Context()
	sess, err := h.svc.Session(ctx, id, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session load failed"})
		return
	}

	var slot *models.DeliveryTimeSlot
	for i := range sess.AvailableDeliverySlots {
		if sess.AvailableDeliverySlots[i].ID == req.SlotID {
			slot = &sess.AvailableDeliverySlots[i]
			break
		}
	}
	if slot == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Delivery slot not found"})
		return
	}
	if !slot.Available {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Delivery slot not available"})
		return
	}

	sess, err = h.svc.SelectDeliverySlot(ctx, id, *slot)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session update failed"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// 🟢 GET /api/checkout/payment/methods
func (h *CheckoutHandler) FetchSavedPaymentMethods(c *gin.Context) {
	id, userID, ok := sessionID(c)
	if !ok {
		return
	}

	sess, err := h.svc.FetchSavedPaymentMethods(c.Request.Context(), id, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment method fetch failed"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// 🟢 POST /api/checkout/payment
func (h *CheckoutHandler) CapturePayment(c *gin.Context) {
	id, userID, ok := sessionID(c)
	if !ok {
		return
	}

	var req struct {
		Method  models.PaymentMethod   `json:"method" binding:"required"`
		Details *models.PaymentDetails `json:"details"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if cart, err := h.carts.Load(ctx, userID); err == nil {
		_, _ = h.svc.Update(ctx, id, func(s *checkout.Session) {
			s.SetOrderTotal(cart.Totals.Total)
		})
	}

	sess, err := h.svc.CapturePayment(ctx, id, req.Method, req.Details)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session update failed"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// 🟢 POST /api/checkout/payment/process
func (h *CheckoutHandler) ProcessPayment(c *gin.Context) {
	id, _, ok := sessionID(c)
	if !ok {
		return
	}

	var req struct {
		Amount float64 `json:"amount"`
	}
	_ = c.ShouldBindJSON(&req)

	ctx := c.Request.Context()
	if req.Amount == 0 {
		if sess, err := h.svc.Session(ctx, id, id); err == nil {
			req.Amount = sess.OrderTotal
		}
	}

	sess, err := h.svc.ProcessPayment(ctx, id, req.Amount)
	if errors.Is(err, checkout.ErrRejected) {
		c.JSON(http.StatusConflict, sess)
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment processing failed"})
		return
	}
	if sess.Error != "" {
		c.JSON(http.StatusBadGateway, sess)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// 🔐 POST /api/checkout/otp/request
func (h *CheckoutHandler) RequestOTP(c *gin.Context) {
	id, _, ok := sessionID(c)
	if !ok {
		return
	}

	var req struct {
		PhoneNumber string `json:"phoneNumber" binding:"required"`
		Email       string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	sess, err := h.svc.RequestOTP(c.Request.Context(), id, req.PhoneNumber, req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "OTP request failed"})
		return
	}
	if sess.Error != "" {
		c.JSON(http.StatusBadGateway, sess)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// 🔐 POST /api/checkout/otp/verify
func (h *CheckoutHandler) VerifyOTP(c *gin.Context) {
	id, _, ok := sessionID(c)
	if !ok {
		return
	}

	var req struct {
		RequestID string `json:"requestId"`
		OTP       string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	ctx := c.Request.Context()
	sess, err := h.svc.VerifyOTP(ctx, id, req.RequestID, req.OTP)
	if errors.Is(err, checkout.ErrRejected) {
		c.JSON(http.StatusUnprocessableEntity, sess)
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "OTP verification failed"})
		return
	}

	// Verified: the service lands back on PAYMENT; forward straight
	// to the summary.
	sess, err = h.svc.Update(ctx, id, func(s *checkout.Session) {
		s.SetActiveStep(checkout.StepSummary)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session update failed"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// 🔐 POST /api/checkout/otp/resend
func (h *CheckoutHandler) ResendOTP(c *gin.Context) {
	id, _, ok := sessionID(c)
	if !ok {
		return
	}

	sess, err := h.svc.ResendOTP(c.Request.Context(), id)
	if errors.Is(err, checkout.ErrRejected) {
		c.JSON(http.StatusUnprocessableEntity, sess)
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "OTP resend failed"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// 📦 POST /api/checkout/order
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	id, userID, ok := sessionID(c)
	if !ok {
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&req)

	ctx := c.Request.Context()
	sess, err := h.svc.Session(ctx, id, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session load failed"})
		return
	}
	if sess.BillingAddress == nil || sess.ShippingAddress == nil || sess.SelectedDeliverySlot == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Checkout is not complete"})
		return
	}

	cart, err := h.carts.Load(ctx, userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart empty or missing"})
		return
	}

	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	shippingMethod := "scheduled"
	draft := models.OrderDraft{
		Items:           items,
		Totals:          cart.Totals,
		BillingAddress:  *sess.BillingAddress,
		ShippingAddress: *sess.ShippingAddress,
		ShippingMethod:  shippingMethod,
		PaymentMethod:   sess.SelectedPaymentMethod,
		DeliverySlot:    sess.SelectedDeliverySlot,
		Notes:           req.Notes,
	}

	sess, err = h.svc.PlaceOrder(ctx, id, cart.ID, draft)
	if errors.Is(err, checkout.ErrRejected) {
		c.JSON(http.StatusConflict, sess)
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Order placement failed"})
		return
	}
	if sess.Order == nil {
		c.JSON(http.StatusBadGateway, sess)
		return
	}

	if err := h.carts.Clear(ctx, userID); err == nil {
		log.Printf("🧹 Cart cleared for %s", userID)
	}

	if h.Notify != nil {
		order := *sess.Order
		email := sess.BillingAddress.Email
		go h.Notify(order, email)
	}

	c.JSON(http.StatusCreated, sess)
}

// 🟢 POST /api/checkout/step
func (h *CheckoutHandler) SetStep(c *gin.Context) {
	id, _, ok := sessionID(c)
	if !ok {
		return
	}

	var req struct {
		Step string `json:"step"`
		Back bool   `json:"back"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	sess, err := h.svc.Update(c.Request.Context(), id, func(s *checkout.Session) {
		if req.Back {
			// Back navigation: no completedSteps mutation, the target
			// is already recorded.
			s.ActiveStep = checkout.PreviousStep(s.ActiveStep)
			return
		}
		s.SetActiveStep(checkout.Step(req.Step))
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session update failed"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// 🧹 POST /api/checkout/reset
func (h *CheckoutHandler) Reset(c *gin.Context) {
	id, _, ok := sessionID(c)
	if !ok {
		return
	}

	sess, err := h.svc.ResetCheckout(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Reset failed"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// ❌ DELETE /api/checkout/error
func (h *CheckoutHandler) ClearError(c *gin.Context) {
	id, _, ok := sessionID(c)
	if !ok {
		return
	}

	sess, err := h.svc.Update(c.Request.Context(), id, func(s *checkout.Session) {
		s.ClearError()
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session update failed"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

var checkoutUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// All origins allowed; tighten in production.
		return true
	},
}

// SessionWebSocket pushes the session over a WebSocket whenever the
// Redis store publishes a change, so clients re-render from the
// container without polling.
func (h *CheckoutHandler) SessionWebSocket(c *gin.Context) {
	id, userID, ok := sessionID(c)
	if !ok {
		return
	}

	conn, err := checkoutUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := context.Background()
	pubsub := database.Redis.Subscribe(ctx, "checkout:"+id)
	defer pubsub.Close()
	ch := pubsub.Channel()

	if sess, err := h.svc.Session(ctx, id, userID); err == nil {
		conn.WriteJSON(gin.H{"type": "session", "session": sess})
	}

	for {
		select {
		case msg, open := <-ch:
			if !open {
				return
			}
			if msg.Payload != "updated" && msg.Payload != "cleared" {
				continue
			}
			sess, err := h.svc.Session(ctx, id, userID)
			if err != nil {
				continue
			}
			if err := conn.WriteJSON(gin.H{"type": "session", "session": sess}); err != nil {
				log.Printf("❌ WebSocket write failed: %v", err)
				return
			}
		case <-time.After(30 * time.Second):
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ConfirmationNotifier builds the post-placement hook: confirmation
// email with the tracking QR attached.
func ConfirmationNotifier() func(order models.Order, email string) {
	return func(order models.Order, email string) {
		if email == "" {
			return
		}
		qr, err := utils.GenerateTrackingQR(order.TrackingURL)
		if err != nil {
			log.Printf("⚠️ Tracking QR generation failed: %v", err)
			qr = nil
		}
		if err := utils.SendOrderConfirmationEmail(email, order, qr); err != nil {
			log.Printf("❌ Confirmation email failed for %s: %v", email, err)
		} else {
			log.Printf("📧 Confirmation email sent to %s", email)
		}
	}
}
