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
)

var allowedModerationActions = map[string]models.ReviewStatus{
	"approve": models.ReviewApproved,
	"reject":  models.ReviewRejected,
	"remove":  models.ReviewRemoved,
}

// ReportReview files a complaint about a review. Anyone signed in can
// report; moderators pick reports up from the open queue.
func ReportReview(c *gin.Context) {
	reporterID := c.GetString("user_id")
	reviewID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid review id"})
		return
	}

	var req struct {
		Reason  string `json:"reason" binding:"required,oneof=spam offensive fake off_topic other"`
		Details string `json:"details" binding:"max=500"`
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

	var productID gocql.UUID
	if err := session.Query("SELECT product_id FROM reviews WHERE review_id = ?", reviewID).Scan(&productID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return
	}

	report := models.ReviewReport{
		ID:         gocql.TimeUUID(),
		ReviewID:   reviewID,
		ProductID:  productID,
		ReporterID: reporterID,
		Reason:     req.Reason,
		Details:    req.Details,
		Status:     models.ReportOpen,
		CreatedAt:  time.Now(),
	}

	if err := session.Query(`
		INSERT INTO review_reports (report_id, review_id, product_id, reporter_id, reason, details, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, report.ID, report.ReviewID, report.ProductID, report.ReporterID,
		report.Reason, report.Details, string(report.Status), report.CreatedAt).Exec(); err != nil {
		log.Printf("❌ Report insert failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Report creation failed"})
		return
	}

	log.Printf("🚩 Review %s reported by %s (%s)", reviewID, reporterID, req.Reason)
	c.JSON(http.StatusCreated, gin.H{"message": "Report filed", "report": report})
}

// ListOpenReports returns the moderation queue. Moderator only.
func ListOpenReports(c *gin.Context) {
	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	iter := session.Query(`
		SELECT report_id, review_id, product_id, reporter_id, reason, details, status, created_at
		FROM review_reports
	`).Iter()

	var reports []models.ReviewReport
	var r models.ReviewReport
	var status string
	for iter.Scan(&r.ID, &r.ReviewID, &r.ProductID, &r.ReporterID, &r.Reason, &r.Details, &status, &r.CreatedAt) {
		r.Status = models.ReportStatus(status)
		if r.Status == models.ReportOpen {
			reports = append(reports, r)
		}
	}
	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Report fetch failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// ModerateReview applies approve / reject / remove to a review,
// records the action in the audit trail and resolves any open reports
// against it. Moderator only.
func ModerateReview(c *gin.Context) {
	moderatorID := c.GetString("user_id")
	reviewID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid review id"})
		return
	}

	var req struct {
		Action string `json:"action" binding:"required,oneof=approve reject remove"`
		Reason string `json:"reason" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload", "details": err.Error()})
		return
	}
	newStatus := allowedModerationActions[req.Action]

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	var productID gocql.UUID
	if err := session.Query("SELECT product_id FROM reviews WHERE review_id = ?", reviewID).Scan(&productID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return
	}

	if err := session.Query("UPDATE reviews SET status = ? WHERE review_id = ?",
		string(newStatus), reviewID).Exec(); err != nil {
		log.Printf("❌ Review status update failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Moderation failed"})
		return
	}
	if err := session.Query("UPDATE reviews_by_product SET status = ? WHERE product_id = ? AND review_id = ?",
		string(newStatus), productID, reviewID).Exec(); err != nil {
		log.Printf("⚠️ reviews_by_product status update failed: %v", err)
	}

	action := models.ModerationAction{
		ID:          gocql.TimeUUID(),
		ReviewID:    reviewID,
		ModeratorID: moderatorID,
		Action:      req.Action,
		Reason:      req.Reason,
		CreatedAt:   time.Now(),
	}
	if err := session.Query(`
		INSERT INTO moderation_actions (review_id, action_id, moderator_id, action, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, action.ReviewID, action.ID, action.ModeratorID, action.Action, action.Reason, action.CreatedAt).Exec(); err != nil {
		log.Printf("⚠️ Audit trail write failed: %v", err)
	}

	// Resolve open reports against this review.
	iter := session.Query("SELECT report_id, status FROM review_reports WHERE review_id = ? ALLOW FILTERING", reviewID).Iter()
	var reportID gocql.UUID
	var reportStatus string
	for iter.Scan(&reportID, &reportStatus) {
		if models.ReportStatus(reportStatus) != models.ReportOpen {
			continue
		}
		if err := session.Query("UPDATE review_reports SET status = ? WHERE report_id = ?",
			string(models.ReportResolved), reportID).Exec(); err != nil {
			log.Printf("⚠️ Report resolve failed: %v", err)
		}
	}
	iter.Close()

	cache.InvalidateProductCache(productID.String())
	log.Printf("🔨 Review %s moderated: %s by %s", reviewID, req.Action, moderatorID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Review " + req.Action + "d",
		"status":  newStatus,
		"action":  action,
	})
}

// GetModerationHistory returns the audit trail for a review. Moderator only.
func GetModerationHistory(c *gin.Context) {
	reviewID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid review id"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	iter := session.Query(`
		SELECT action_id, moderator_id, action, reason, created_at
		FROM moderation_actions WHERE review_id = ?
	`, reviewID).Iter()

	var actions []models.ModerationAction
	var a models.ModerationAction
	for iter.Scan(&a.ID, &a.ModeratorID, &a.Action, &a.Reason, &a.CreatedAt) {
		a.ReviewID = reviewID
		actions = append(actions, a)
	}
	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "History fetch failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"actions": actions, "count": len(actions)})
}

// RespondToReview stores the seller's public reply. One response per
// review; posting again replaces the previous one.
func RespondToReview(c *gin.Context) {
	sellerID := c.GetString("user_id")
	reviewID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid review id"})
		return
	}

	var req struct {
		Body string `json:"body" binding:"required,min=10,max=1000"`
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

	var productID gocql.UUID
	if err := session.Query("SELECT product_id FROM reviews WHERE review_id = ?", reviewID).Scan(&productID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return
	}

	usersSession, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}
	var sellerName string
	if err := usersSession.Query("SELECT name FROM users WHERE user_id = ?", sellerID).Scan(&sellerName); err != nil || sellerName == "" {
		sellerName = "Seller"
	}

	now := time.Now()
	resp := models.SellerResponse{
		ReviewID:   reviewID,
		SellerID:   sellerID,
		SellerName: sellerName,
		Body:       req.Body,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Upsert: the review id is the full primary key, so a second
	// response overwrites the first.
	if err := session.Query(`
		INSERT INTO seller_responses (review_id, seller_id, seller_name, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, resp.ReviewID, resp.SellerID, resp.SellerName, resp.Body, resp.CreatedAt, resp.UpdatedAt).Exec(); err != nil {
		log.Printf("❌ Seller response write failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Response creation failed"})
		return
	}

	log.Printf("💬 Seller %s responded to review %s", sellerID, reviewID)
	c.JSON(http.StatusOK, gin.H{"message": "Response saved", "response": resp})
}

// GetReviewResponse returns the seller response for a review, if any.
func GetReviewResponse(c *gin.Context) {
	reviewID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid review id"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	var resp models.SellerResponse
	resp.ReviewID = reviewID
	if err := session.Query(`
		SELECT seller_id, seller_name, body, created_at, updated_at
		FROM seller_responses WHERE review_id = ?
	`, reviewID).Scan(&resp.SellerID, &resp.SellerName, &resp.Body, &resp.CreatedAt, &resp.UpdatedAt); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No response for this review"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": resp})
}
