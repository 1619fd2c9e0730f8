package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"

	"github.com/saisumanth4024/storefront/internal/config"
	"github.com/saisumanth4024/storefront/internal/database"
	"github.com/saisumanth4024/storefront/internal/routes"
)

func main() {
	config.Load()

	if key := os.Getenv("STRIPE_SECRET_KEY"); key != "" {
		stripe.Key = key
		log.Println("✅ Stripe initialized")
	} else {
		log.Println("⚠️  STRIPE_SECRET_KEY missing — payments run against the mock gateway")
	}

	database.ConnectDatabases()
	warmupRedisCache()

	r := gin.Default()
	routes.RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("🚀 Storefront server listening on port", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("❌ Server stopped: %v", err)
	}
}

// warmupRedisCache pings Redis once so the first checkout request does
// not pay the connection cost.
func warmupRedisCache() {
	ctx := context.Background()
	if err := database.Redis.Ping(ctx).Err(); err == nil {
		log.Println("✅ Redis cache warmed up")
	}
}
