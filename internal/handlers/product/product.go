package product

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/saisumanth4024/storefront/internal/cache"
	"github.com/saisumanth4024/storefront/internal/database"
	"github.com/saisumanth4024/storefront/internal/models"
)

// GetProduct returns one product, served through the Redis cache.
func GetProduct(c *gin.Context) {
	productID := c.Param("id")
	if _, err := uuid.Parse(productID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return
	}

	product, err := cache.GetProductFromCache(productID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// ListProducts returns the active catalog.
func ListProducts(c *gin.Context) {
	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	iter := session.Query(`
		SELECT product_id, name, description, price, stock, sku, category_id, image_urls, tags, is_active, created_at, updated_at
		FROM products
	`).Iter()

	var products []models.Product
	var product models.Product
	for iter.Scan(&product.ID, &product.Name, &product.Description, &product.Price,
		&product.Stock, &product.SKU, &product.CategoryID, &product.ImageURLs,
		&product.Tags, &product.IsActive, &product.CreatedAt, &product.UpdatedAt) {
		if product.IsActive {
			products = append(products, product)
		}
	}
	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Product fetch failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

// ListCategories returns all categories.
func ListCategories(c *gin.Context) {
	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	iter := session.Query("SELECT category_id, name, slug FROM categories").Iter()

	var categories []models.Category
	var cat models.Category
	var catID gocql.UUID
	for iter.Scan(&catID, &cat.Name, &cat.Slug) {
		cat.ID = catID
		categories = append(categories, cat)
	}
	iter.Close()

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}
