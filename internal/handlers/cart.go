package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/saisumanth4024/storefront/internal/cache"
	"github.com/saisumanth4024/storefront/internal/database"
	"github.com/saisumanth4024/storefront/internal/models"
)

const cartTTL = 30 * 24 * time.Hour

// CartSource is how checkout reads the shopper's cart.
type CartSource interface {
	Load(ctx context.Context, userID string) (*models.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// RedisCartSource reads carts from their Redis keys.
type RedisCartSource struct{}

func (RedisCartSource) Load(ctx context.Context, userID string) (*models.Cart, error) {
	key := "cart:" + userID
	data, err := database.Redis.Get(ctx, key).Result()
	if err != nil || data == "" {
		return nil, errors.New("cart empty or missing")
	}

	var items []models.CartItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.New("cart empty or missing")
	}

	return &models.Cart{
		ID:     key,
		UserID: userID,
		Items:  items,
		Totals: computeTotals(items),
	}, nil
}

func (RedisCartSource) Clear(ctx context.Context, userID string) error {
	return database.Redis.Del(ctx, "cart:"+userID).Err()
}

func computeTotals(items []models.CartItem) models.CartTotals {
	var subtotal float64
	for _, item := range items {
		subtotal += item.Price * float64(item.Quantity)
	}
	tax := subtotal * 0.21
	return models.CartTotals{
		Subtotal: subtotal,
		TaxTotal: tax,
		Total:    subtotal + tax,
	}
}

// 🟢 GET /api/cart
func GetCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	key := "cart:" + userID
	data, err := database.Redis.Get(context.Background(), key).Result()
	if err != nil || data == "" {
		c.JSON(http.StatusOK, gin.H{"items": []models.CartItem{}, "totals": models.CartTotals{}})
		return
	}

	var cart []models.CartItem
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cart decode failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": cart, "totals": computeTotals(cart)})
}

// 🟢 POST /api/cart/add
func AddToCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	key := "cart:" + userID

	var input struct {
		ProductID string `json:"productId" binding:"required"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}
	if input.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quantity"})
		return
	}

	product, err := cache.GetProductFromCache(input.ProductID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if product.Stock < input.Quantity {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Insufficient stock",
			"product":   product.Name,
			"available": product.Stock,
			"requested": input.Quantity,
		})
		return
	}

	imageURL := ""
	if len(product.ImageURLs) > 0 {
		imageURL = product.ImageURLs[0]
	}

	item := models.CartItem{
		ProductID: input.ProductID,
		Name:      product.Name,
		Price:     product.Price,
		Quantity:  input.Quantity,
		ImageURL:  imageURL,
	}

	data, _ := database.Redis.Get(context.Background(), key).Result()
	var cart []models.CartItem
	if data != "" {
		_ = json.Unmarshal([]byte(data), &cart)
	}

	found := false
	for i := range cart {
		if cart[i].ProductID == item.ProductID {
			cart[i].Quantity += item.Quantity
			found = true
			break
		}
	}
	if !found {
		cart = append(cart, item)
	}

	saveCart(userID, cart)

	c.JSON(http.StatusOK, gin.H{
		"message": "Product added to cart",
		"items":   cart,
		"totals":  computeTotals(cart),
	})
}

// ❌ DELETE /api/cart/:productId
func RemoveFromCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	productID := c.Param("productId")
	key := "cart:" + userID

	data, _ := database.Redis.Get(context.Background(), key).Result()
	if data == "" {
		c.JSON(http.StatusOK, gin.H{"message": "Cart is empty"})
		return
	}

	var cart []models.CartItem
	_ = json.Unmarshal([]byte(data), &cart)

	newCart := []models.CartItem{}
	for _, item := range cart {
		if item.ProductID != productID {
			newCart = append(newCart, item)
		}
	}

	saveCart(userID, newCart)

	c.JSON(http.StatusOK, gin.H{
		"message": "Product removed from cart",
		"items":   newCart,
		"totals":  computeTotals(newCart),
	})
}

// 🧹 DELETE /api/cart
func ClearCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	if err := database.Redis.Del(context.Background(), "cart:"+userID).Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cart clear failed"})
		return
	}
	database.Redis.Publish(context.Background(), "cart:"+userID, "cleared")

	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

func saveCart(userID string, cart []models.CartItem) {
	ctx := context.Background()
	jsonData, _ := json.Marshal(cart)
	database.Redis.Set(ctx, "cart:"+userID, jsonData, cartTTL)
	database.Redis.Publish(ctx, "cart:"+userID, "updated")
}
