package models

import (
	"time"

	"github.com/gocql/gocql"
)

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
	ReviewRemoved  ReviewStatus = "removed"
)

type Review struct {
	ID        gocql.UUID   `json:"id" db:"review_id"`
	ProductID gocql.UUID   `json:"product_id" db:"product_id"`
	UserID    string       `json:"user_id" db:"user_id"`
	UserName  string       `json:"user_name" db:"user_name"`
	Rating    int          `json:"rating" db:"rating"` // 1-5
	Title     string       `json:"title" db:"title"`
	Comment   string       `json:"comment" db:"comment"`
	Status    ReviewStatus `json:"status" db:"status"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

type ProductRating struct {
	ProductID     gocql.UUID `json:"product_id"`
	AverageRating float64    `json:"average_rating"`
	TotalReviews  int        `json:"total_reviews"`
}

type ReportStatus string

const (
	ReportOpen      ReportStatus = "open"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

// ReviewReport is a shopper-filed complaint about a review.
type ReviewReport struct {
	ID         gocql.UUID   `json:"id" db:"report_id"`
	ReviewID   gocql.UUID   `json:"review_id" db:"review_id"`
	ProductID  gocql.UUID   `json:"product_id" db:"product_id"`
	ReporterID string       `json:"reporter_id" db:"reporter_id"`
	Reason     string       `json:"reason" db:"reason"`
	Details    string       `json:"details,omitempty" db:"details"`
	Status     ReportStatus `json:"status" db:"status"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}

// ModerationAction is one entry in a review's moderation audit trail.
type ModerationAction struct {
	ID          gocql.UUID `json:"id" db:"action_id"`
	ReviewID    gocql.UUID `json:"review_id" db:"review_id"`
	ModeratorID string     `json:"moderator_id" db:"moderator_id"`
	Action      string     `json:"action" db:"action"` // approve | reject | remove
	Reason      string     `json:"reason,omitempty" db:"reason"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// SellerResponse is the seller's public reply to a review. At most
// one per review; a later response replaces the earlier one.
type SellerResponse struct {
	ReviewID   gocql.UUID `json:"review_id" db:"review_id"`
	SellerID   string     `json:"seller_id" db:"seller_id"`
	SellerName string     `json:"seller_name" db:"seller_name"`
	Body       string     `json:"body" db:"body"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}
