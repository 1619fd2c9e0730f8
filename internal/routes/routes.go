package routes

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/saisumanth4024/storefront/internal/checkout"
	"github.com/saisumanth4024/storefront/internal/config"
	"github.com/saisumanth4024/storefront/internal/database"
	"github.com/saisumanth4024/storefront/internal/handlers"
	"github.com/saisumanth4024/storefront/internal/handlers/product"
	"github.com/saisumanth4024/storefront/internal/middleware"
	"github.com/saisumanth4024/storefront/internal/utils"
)

func RegisterRoutes(r *gin.Engine) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(config.Getenv("CORS_ORIGINS", "http://localhost:3000"), ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	ch := buildCheckoutHandler()

	// Auth
	r.POST("/api/auth/register", handlers.Register)
	r.POST("/api/auth/login", handlers.Login)
	r.GET("/api/auth/me", middleware.AuthRequired(), handlers.Me)

	// Catalog
	r.GET("/api/products", product.ListProducts)
	r.GET("/api/products/search", product.SearchProducts)
	r.GET("/api/products/search/advanced", product.SearchProductsAdvanced)
	r.GET("/api/products/filters", product.GetProductFilters)
	r.GET("/api/products/:id", product.GetProduct)
	r.GET("/api/categories", product.ListCategories)

	// Reviews
	r.GET("/api/products/:id/reviews", product.GetProductReviews)
	r.GET("/api/reviews/:id/response", product.GetReviewResponse)

	auth := r.Group("/api", middleware.AuthRequired())
	{
		// Cart
		auth.GET("/cart", handlers.GetCart)
		auth.POST("/cart/add", handlers.AddToCart)
		auth.DELETE("/cart/:productId", handlers.RemoveFromCart)
		auth.DELETE("/cart", handlers.ClearCart)

		// Addresses
		auth.GET("/addresses", handlers.ListMyAddresses)
		auth.POST("/addresses", handlers.CreateAddress)
		auth.DELETE("/addresses/:id", handlers.DeleteAddress)

		// Checkout flow
		auth.GET("/checkout", ch.GetSession)
		auth.GET("/checkout/ws", ch.SessionWebSocket)
		auth.POST("/checkout/address", ch.SubmitAddress)
		auth.GET("/checkout/delivery/slots", ch.FetchDeliverySlots)
		auth.POST("/checkout/delivery", ch.SelectDeliverySlot)
		auth.GET("/checkout/payment/methods", ch.FetchSavedPaymentMethods)
		auth.POST("/checkout/payment", ch.CapturePayment)
		auth.POST("/checkout/payment/process", ch.ProcessPayment)
		auth.POST("/checkout/otp/request", ch.RequestOTP)
		auth.POST("/checkout/otp/verify", ch.VerifyOTP)
		auth.POST("/checkout/otp/resend", ch.ResendOTP)
		auth.POST("/checkout/order", ch.PlaceOrder)
		auth.POST("/checkout/step", ch.SetStep)
		auth.POST("/checkout/reset", ch.Reset)
		auth.DELETE("/checkout/error", ch.ClearError)

		// Orders
		auth.GET("/orders", handlers.GetMyOrders)
		auth.GET("/orders/:id", handlers.GetOrderByID)

		// Reviews
		auth.POST("/products/:id/reviews", product.CreateReview)
		auth.POST("/reviews/:id/report", product.ReportReview)
		auth.POST("/reviews/:id/response", middleware.RoleRequired("seller"), product.RespondToReview)
	}

	mod := r.Group("/api/moderation", middleware.AuthRequired(), middleware.RoleRequired("moderator"))
	{
		mod.GET("/reports", product.ListOpenReports)
		mod.POST("/reviews/:id", product.ModerateReview)
		mod.GET("/reviews/:id/history", product.GetModerationHistory)
	}

	admin := r.Group("/api/admin", middleware.AuthRequired(), middleware.RoleRequired("admin"))
	{
		admin.POST("/products", product.CreateProduct)
		admin.PUT("/products/:id/stock", product.UpdateProductStock)
	}
}

// buildCheckoutHandler wires the checkout service for production:
// Redis-backed sessions, Stripe when a key is configured, email OTP
// when SMTP is configured, Scylla order persistence.
func buildCheckoutHandler() *handlers.CheckoutHandler {
	cfg := checkout.Config{
		OTPTTL:                config.Duration("CHECKOUT_OTP_TTL", 5*time.Minute),
		MaxOTPAttempts:        int(config.Float("CHECKOUT_OTP_MAX_ATTEMPTS", 3)),
		ResetAttemptsOnResend: config.Bool("CHECKOUT_OTP_RESET_ON_RESEND", false),
		Currency:              config.Getenv("CHECKOUT_CURRENCY", "eur"),
	}

	store := checkout.NewRedisStore(database.Redis, config.Duration("CHECKOUT_SESSION_TTL", 24*time.Hour))

	var gateway checkout.PaymentGateway
	if os.Getenv("STRIPE_SECRET_KEY") != "" {
		gateway = checkout.StripeGateway{Currency: cfg.Currency}
		log.Println("💳 Stripe gateway active")
	} else {
		gateway = &checkout.MockPaymentGateway{
			FailureRate: config.Float("MOCK_PAYMENT_FAILURE_RATE", 0.10),
			Currency:    cfg.Currency,
		}
		log.Println("⚠️  No STRIPE_SECRET_KEY — mock payment gateway active")
	}

	var otp checkout.OTPBackend
	if os.Getenv("SMTP_HOST") != "" {
		otp = checkout.NewEmailOTPBackend(utils.SendOTPEmail, cfg.OTPTTL)
		log.Println("📧 Email OTP backend active")
	} else {
		otp = &checkout.StaticOTPBackend{TTL: cfg.OTPTTL}
		log.Println("⚠️  No SMTP_HOST — static OTP backend active")
	}

	var risk checkout.RiskPolicy
	if config.Bool("CHECKOUT_OTP_ENABLED", true) {
		risk = &checkout.CoinFlipRiskPolicy{Rate: config.Float("CHECKOUT_OTP_RATE", 0.5)}
	} else {
		risk = checkout.NeverRequireOTP{}
	}

	svc := checkout.NewService(
		store,
		&checkout.MockSlotProvider{EveningFee: config.Float("DELIVERY_EVENING_FEE", 4.99)},
		gateway,
		otp,
		risk,
		handlers.ScyllaOrderPlacer{
			DeliveryLead: config.Duration("DELIVERY_LEAD", 72*time.Hour),
			TrackingBase: config.Getenv("TRACKING_BASE_URL", "https://track.storefront.example.com/"),
		},
		&checkout.MockPaymentMethodSource{},
		cfg,
	)

	ch := handlers.NewCheckoutHandler(svc, handlers.RedisCartSource{})
	ch.Notify = handlers.ConfirmationNotifier()
	return ch
}
