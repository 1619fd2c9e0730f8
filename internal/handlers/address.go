package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/saisumanth4024/storefront/internal/database"
	"github.com/saisumanth4024/storefront/internal/models"
)

// 🟢 GET /api/addresses/mine
func ListMyAddresses(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		log.Printf("❌ ScyllaDB session error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	iter := session.Query(`
		SELECT address_id, user_id, label, address, is_default
		FROM addresses WHERE user_id = ? ALLOW FILTERING
	`, userID).Iter()

	var results []models.SavedAddress
	var (
		addressID       gocql.UUID
		userIDDB, label string
		addressJSON     string
		isDefault       bool
	)
	for iter.Scan(&addressID, &userIDDB, &label, &addressJSON, &isDefault) {
		saved := models.SavedAddress{
			ID:        addressID,
			UserID:    userIDDB,
			Label:     label,
			IsDefault: isDefault,
		}
		_ = json.Unmarshal([]byte(addressJSON), &saved.Address)
		results = append(results, saved)
	}
	if err := iter.Close(); err != nil {
		log.Printf("⚠️ Address iter close error: %v", err)
	}

	log.Printf("✅ %d addresses found for user %s", len(results), userID)
	c.JSON(http.StatusOK, results)
}

// 🟢 POST /api/addresses
func CreateAddress(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req struct {
		Label     string         `json:"label"`
		Address   models.Address `json:"address" binding:"required"`
		IsDefault bool           `json:"isDefault"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload", "details": err.Error()})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	addressID := gocql.UUID(uuid.New())
	addressJSON, _ := json.Marshal(req.Address)

	if err := session.Query(`
		INSERT INTO addresses (address_id, user_id, label, address, is_default)
		VALUES (?, ?, ?, ?, ?)
	`, addressID, userID, req.Label, string(addressJSON), req.IsDefault).Exec(); err != nil {
		log.Printf("❌ Address insert failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Address creation failed"})
		return
	}

	c.JSON(http.StatusCreated, models.SavedAddress{
		ID:        addressID,
		UserID:    userID,
		Label:     req.Label,
		Address:   req.Address,
		IsDefault: req.IsDefault,
	})
}

// ❌ DELETE /api/addresses/:id
func DeleteAddress(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	addressUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address id"})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database connection failed"})
		return
	}

	var ownerID string
	if err := session.Query("SELECT user_id FROM addresses WHERE address_id = ?", gocql.UUID(addressUUID)).Scan(&ownerID); err != nil || ownerID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Address not found"})
		return
	}

	if err := session.Query("DELETE FROM addresses WHERE address_id = ?", gocql.UUID(addressUUID)).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Address deletion failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Address deleted"})
}
