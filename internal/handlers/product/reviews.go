package product

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/saisumanth4024/storefront/internal/cache"
	"github.com/saisumanth4024/storefront/internal/database"
	"github.com/saisumanth4024/storefront/internal/models"
)

// CreateReview creates a review. Only shoppers who bought the product
// may review it; new reviews start pending until moderation approves
// them.
func CreateReview(c *gin.Context) {
	userID := c.GetString("user_id")
	productID := c.Param("id")

	var req struct {
		Rating  int    `json:"rating" binding:"required,min=1,max=5"`
		Title   string `json:"title" binding:"max=100"`
		Comment string `json:"comment" binding:"required,min=10,max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload", "details": err.Error()})
		return
	}

	productUUID, err := uuid.Parse(productID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return
	}

	productsSession, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	var probe gocql.UUID
	if err := productsSession.Query("SELECT product_id FROM products WHERE product_id = ?", gocql.UUID(productUUID)).Scan(&probe); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	if !hasPurchased(userID, productID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You must have purchased this product to review it"})
		return
	}

	usersSession, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	var userName string
	if err := usersSession.Query("SELECT name FROM users WHERE user_id = ?", userID).Scan(&userName); err != nil || userName == "" {
		userName = "Customer"
	}

	reviewID := gocql.TimeUUID()
	now := time.Now()
	review := models.Review{
		ID:        reviewID,
		ProductID: gocql.UUID(productUUID),
		UserID:    userID,
		UserName:  userName,
		Rating:    req.Rating,
		Title:     req.Title,
		Comment:   req.Comment,
		Status:    models.ReviewPending,
		CreatedAt: now,
	}

	if err := productsSession.Query(`
		INSERT INTO reviews (review_id, product_id, user_id, user_name, rating, title, comment, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, reviewID, gocql.UUID(productUUID), userID, userName, req.Rating, req.Title, req.Comment, string(review.Status), now).Exec(); err != nil {
		log.Printf("❌ Review insert failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Review creation failed"})
		return
	}

	if err := productsSession.Query(`
		INSERT INTO reviews_by_product (product_id, review_id, user_id, user_name, rating, title, comment, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, gocql.UUID(productUUID), reviewID, userID, userName, req.Rating, req.Title, req.Comment, string(review.Status), now).Exec(); err != nil {
		log.Printf("⚠️ reviews_by_product index write failed: %v", err)
	}

	cache.InvalidateProductCache(productID)
	log.Printf("⭐ Review created: %s for product %s (%d/5)", reviewID, productID, req.Rating)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Review submitted for moderation",
		"review":  review,
	})
}

// GetProductReviews lists a product's reviews with the rating
// aggregate. Filtering happens server-side from query parameters:
// rating, status (default approved), limit.
func GetProductReviews(c *gin.Context) {
	productID := c.Param("id")

	productUUID, err := uuid.Parse(productID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return
	}

	statusFilter := c.DefaultQuery("status", string(models.ReviewApproved))
	ratingFilter, _ := strconv.Atoi(c.Query("rating"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	iter := session.Query(`
		SELECT review_id, user_id, user_name, rating, title, comment, status, created_at
		FROM reviews_by_product WHERE product_id = ?
	`, gocql.UUID(productUUID)).Iter()

	var reviews []models.Review
	var review models.Review
	var status string
	var totalRating, totalCount int

	for iter.Scan(&review.ID, &review.UserID, &review.UserName, &review.Rating,
		&review.Title, &review.Comment, &status, &review.CreatedAt) {
		review.ProductID = gocql.UUID(productUUID)
		review.Status = models.ReviewStatus(status)

		// Aggregate over approved reviews regardless of the filter.
		if review.Status == models.ReviewApproved {
			totalRating += review.Rating
			totalCount++
		}

		if statusFilter != "all" && string(review.Status) != statusFilter {
			continue
		}
		if ratingFilter > 0 && review.Rating != ratingFilter {
			continue
		}
		if len(reviews) < limit {
			reviews = append(reviews, review)
		}
	}
	if err := iter.Close(); err != nil {
		log.Printf("❌ Review read failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Review fetch failed"})
		return
	}

	var averageRating float64
	if totalCount > 0 {
		averageRating = float64(totalRating) / float64(totalCount)
	}
	cache.PutCachedRating(productID, models.ProductRating{
		ProductID:     gocql.UUID(productUUID),
		AverageRating: averageRating,
		TotalReviews:  totalCount,
	})

	c.JSON(http.StatusOK, gin.H{
		"reviews":        reviews,
		"total_reviews":  totalCount,
		"average_rating": averageRating,
	})
}

// hasPurchased checks the user's order history for the product.
func hasPurchased(userID, productID string) bool {
	ordersSession, err := database.GetOrdersSession()
	if err != nil {
		return false
	}

	iter := ordersSession.Query("SELECT items FROM orders_by_user WHERE user_id = ?", userID).Iter()
	var itemsJSON string
	purchased := false
	for iter.Scan(&itemsJSON) {
		if strings.Contains(itemsJSON, productID) {
			purchased = true
			break
		}
	}
	iter.Close()
	return purchased
}
