package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/saisumanth4024/storefront/internal/database"
	"github.com/saisumanth4024/storefront/internal/models"
)

const (
	ProductCacheTTL = 10 * time.Minute
	RatingCacheTTL  = 5 * time.Minute
)

// GetProductFromCache reads a product through Redis, falling back to
// ScyllaDB and re-priming the cache on a miss.
func GetProductFromCache(productID string) (*models.Product, error) {
	ctx := context.Background()
	key := "product:" + productID

	data, err := database.Redis.Get(ctx, key).Result()
	if err == nil {
		var product models.Product
		if json.Unmarshal([]byte(data), &product) == nil {
			return &product, nil
		}
	}

	session, err := database.GetProductsSession()
	if err != nil {
		return nil, err
	}

	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, err
	}

	var product models.Product
	err = session.Query(`SELECT product_id, name, description, price, stock, sku, category_id, image_urls, tags, is_active, created_at, updated_at
		FROM products WHERE product_id = ?`, gocql.UUID(pid)).Scan(
		&product.ID, &product.Name, &product.Description, &product.Price, &product.Stock,
		&product.SKU, &product.CategoryID, &product.ImageURLs, &product.Tags,
		&product.IsActive, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return nil, err
	}

	jsonData, _ := json.Marshal(product)
	database.Redis.Set(ctx, key, jsonData, ProductCacheTTL)

	return &product, nil
}

// InvalidateProductCache drops a product's cached entries.
func InvalidateProductCache(productID string) {
	ctx := context.Background()
	database.Redis.Del(ctx, "product:"+productID, "rating:"+productID)
}

// GetCachedRating returns the cached rating aggregate for a product,
// or false when absent.
func GetCachedRating(productID string) (*models.ProductRating, bool) {
	ctx := context.Background()
	data, err := database.Redis.Get(ctx, "rating:"+productID).Result()
	if err != nil {
		return nil, false
	}
	var rating models.ProductRating
	if json.Unmarshal([]byte(data), &rating) != nil {
		return nil, false
	}
	return &rating, true
}

// PutCachedRating stores a freshly computed rating aggregate.
func PutCachedRating(productID string, rating models.ProductRating) {
	ctx := context.Background()
	jsonData, _ := json.Marshal(rating)
	database.Redis.Set(ctx, "rating:"+productID, jsonData, RatingCacheTTL)
}
