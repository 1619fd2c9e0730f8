package product

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/saisumanth4024/storefront/internal/database"
	"github.com/saisumanth4024/storefront/internal/models"
	"github.com/saisumanth4024/storefront/internal/services"
)

// SearchProducts runs the full-text search through Elasticsearch,
// falling back to the Scylla scan filter when the index is
// unavailable.
func SearchProducts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter q required"})
		return
	}

	results, err := services.SearchProducts(query)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"products": results, "total": len(results), "source": "elastic"})
		return
	}

	SearchProductsAdvanced(c)
}

// SearchProductsAdvanced filters, sorts and paginates the catalog
// server-side; the client only assembles query parameters.
func SearchProductsAdvanced(c *gin.Context) {
	query := c.Query("q")
	categoryID := c.Query("category")
	minPrice := c.Query("min_price")
	maxPrice := c.Query("max_price")
	sortBy := c.DefaultQuery("sort", "relevance")
	page := c.DefaultQuery("page", "1")
	limit := c.DefaultQuery("limit", "20")

	pageNum, _ := strconv.Atoi(page)
	limitNum, _ := strconv.Atoi(limit)
	if pageNum < 1 {
		pageNum = 1
	}
	if limitNum < 1 || limitNum > 100 {
		limitNum = 20
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	var products []models.Product
	var product models.Product

	if categoryID != "" {
		catUUID, err := uuid.Parse(categoryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category id"})
			return
		}

		iter := session.Query(`
			SELECT product_id, name, description, price, stock, sku, category_id, image_urls, tags, is_active, created_at, updated_at
			FROM products WHERE category_id = ? ALLOW FILTERING
		`, gocql.UUID(catUUID)).Iter()
		for iter.Scan(&product.ID, &product.Name, &product.Description, &product.Price,
			&product.Stock, &product.SKU, &product.CategoryID, &product.ImageURLs,
			&product.Tags, &product.IsActive, &product.CreatedAt, &product.UpdatedAt) {
			products = append(products, product)
		}
		iter.Close()
	} else {
		iter := session.Query(`
			SELECT product_id, name, description, price, stock, sku, category_id, image_urls, tags, is_active, created_at, updated_at
			FROM products
		`).Iter()
		for iter.Scan(&product.ID, &product.Name, &product.Description, &product.Price,
			&product.Stock, &product.SKU, &product.CategoryID, &product.ImageURLs,
			&product.Tags, &product.IsActive, &product.CreatedAt, &product.UpdatedAt) {
			products = append(products, product)
		}
		iter.Close()
	}

	if minPrice != "" || maxPrice != "" {
		var minPriceFloat, maxPriceFloat float64
		if minPrice != "" {
			minPriceFloat, _ = strconv.ParseFloat(minPrice, 64)
		}
		if maxPrice != "" {
			maxPriceFloat, _ = strconv.ParseFloat(maxPrice, 64)
		}

		var filtered []models.Product
		for _, p := range products {
			if minPrice != "" && p.Price < minPriceFloat {
				continue
			}
			if maxPrice != "" && p.Price > maxPriceFloat {
				continue
			}
			filtered = append(filtered, p)
		}
		products = filtered
	}

	if query != "" {
		var filtered []models.Product
		queryLower := strings.ToLower(query)
		for _, p := range products {
			if strings.Contains(strings.ToLower(p.Name), queryLower) ||
				strings.Contains(strings.ToLower(p.Description), queryLower) {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}

	switch sortBy {
	case "price_asc":
		sort.Slice(products, func(i, j int) bool { return products[i].Price < products[j].Price })
	case "price_desc":
		sort.Slice(products, func(i, j int) bool { return products[i].Price > products[j].Price })
	case "newest":
		sort.Slice(products, func(i, j int) bool { return products[i].CreatedAt.After(products[j].CreatedAt) })
	}

	total := len(products)
	start := (pageNum - 1) * limitNum
	end := start + limitNum
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products[start:end],
		"pagination": gin.H{
			"page":        pageNum,
			"limit":       limitNum,
			"total":       total,
			"total_pages": (total + limitNum - 1) / limitNum,
		},
		"filters": gin.H{
			"query":     query,
			"category":  categoryID,
			"min_price": minPrice,
			"max_price": maxPrice,
			"sort":      sortBy,
		},
	})
}

// GetProductFilters returns the facets available for filtering.
func GetProductFilters(c *gin.Context) {
	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	categoriesIter := session.Query("SELECT category_id, name FROM categories").Iter()

	type categoryFilter struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	var categories []categoryFilter
	var cat categoryFilter
	var catID gocql.UUID
	for categoriesIter.Scan(&catID, &cat.Name) {
		cat.ID = catID.String()
		categories = append(categories, cat)
	}
	categoriesIter.Close()

	var minPrice, maxPrice float64
	productsIter := session.Query("SELECT price FROM products").Iter()
	var price float64
	first := true
	for productsIter.Scan(&price) {
		if first {
			minPrice, maxPrice = price, price
			first = false
			continue
		}
		if price < minPrice {
			minPrice = price
		}
		if price > maxPrice {
			maxPrice = price
		}
	}
	productsIter.Close()

	c.JSON(http.StatusOK, gin.H{
		"categories": categories,
		"price_range": gin.H{
			"min": minPrice,
			"max": maxPrice,
		},
		"sort_options": []gin.H{
			{"value": "relevance", "label": "Relevance"},
			{"value": "price_asc", "label": "Price: low to high"},
			{"value": "price_desc", "label": "Price: high to low"},
			{"value": "newest", "label": "Newest"},
		},
	})
}
