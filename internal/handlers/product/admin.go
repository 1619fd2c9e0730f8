package product

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"github.com/saisumanth4024/storefront/internal/cache"
	"github.com/saisumanth4024/storefront/internal/database"
	"github.com/saisumanth4024/storefront/internal/models"
	"github.com/saisumanth4024/storefront/internal/services"
)

// CreateProduct adds a product to the catalog and indexes it for
// search. Admin only.
func CreateProduct(c *gin.Context) {
	var req struct {
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description"`
		Price       float64  `json:"price" binding:"required,gt=0"`
		Stock       int      `json:"stock" binding:"min=0"`
		SKU         string   `json:"sku"`
		CategoryID  string   `json:"category_id"`
		ImageURLs   []string `json:"image_urls"`
		Tags        []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload", "details": err.Error()})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	var categoryID gocql.UUID
	if req.CategoryID != "" {
		categoryID, err = gocql.ParseUUID(req.CategoryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category id"})
			return
		}
	}

	now := time.Now()
	p := models.Product{
		ID:          gocql.MustRandomUUID(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		SKU:         req.SKU,
		CategoryID:  categoryID,
		ImageURLs:   req.ImageURLs,
		Tags:        req.Tags,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := session.Query(`
		INSERT INTO products (product_id, name, description, price, stock, sku, category_id, image_urls, tags, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Description, p.Price, p.Stock, p.SKU, p.CategoryID,
		p.ImageURLs, p.Tags, p.IsActive, p.CreatedAt, p.UpdatedAt).Exec(); err != nil {
		log.Printf("❌ Product insert failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Product creation failed"})
		return
	}

	go services.IndexProduct(p)
	log.Printf("✅ Product created: %s (%s)", p.Name, p.ID)

	c.JSON(http.StatusCreated, p)
}

// UpdateProductStock adjusts stock levels, re-indexes the document and
// drops the stale cache entry. Admin only.
func UpdateProductStock(c *gin.Context) {
	productID := c.Param("id")
	pid, err := gocql.ParseUUID(productID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return
	}

	var req struct {
		Stock int `json:"stock" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	if err := session.Query("UPDATE products SET stock = ?, updated_at = ? WHERE product_id = ?",
		req.Stock, time.Now(), pid).Exec(); err != nil {
		log.Printf("❌ Stock update failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stock update failed"})
		return
	}

	cache.InvalidateProductCache(productID)
	if p, err := cache.GetProductFromCache(productID); err == nil {
		go services.IndexProduct(*p)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Stock updated", "stock": req.Stock})
}
