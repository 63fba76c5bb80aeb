package api

import (
	"context"  // Context for Redis operations
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"finassist/internal/domain"   // Importing domain models
	"finassist/internal/transfer" // Transfer orchestrator
	"finassist/internal/utils"    // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// TransferRequest represents a direct transfer request
type TransferRequest struct {
	RecipientID uint    `json:"recipient_id" binding:"required"` // Target user ID
	Amount      float64 `json:"amount" binding:"required,gt=0"`  // Transfer amount
	Description string  `json:"description"`                     // Free-text memo
}

// TaggedTransaction is a transaction row tagged income/expense for display
type TaggedTransaction struct {
	domain.Transaction
	Type string `json:"type"` // income or expense
}

// TransferHandler executes a transfer through the orchestrator's
// validate-and-commit path (no conversational confirmation round trip)
func TransferHandler(orch *transfer.Orchestrator, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		fromUserID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req TransferRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		result, err := orch.Execute(c.Request.Context(), fromUserID.(uint), req.RecipientID, req.Amount, req.Description)
		if err != nil {
			c.JSON(transferStatus(err), gin.H{"error": err.Error()})
			return
		}
		// Invalidate wallet and transaction history cache for both users
		ctx := context.Background()
		invalidateUserCaches(ctx, rdb, fromUserID.(uint))
		invalidateUserCaches(ctx, rdb, req.RecipientID)
		// Return success response
		c.JSON(http.StatusOK, gin.H{
			"message":        result.Message,
			"new_balance":    result.NewBalance,
			"transaction_id": result.TransactionID,
		})
	}
}

// transferStatus maps orchestrator errors onto HTTP status codes
func transferStatus(err error) int {
	switch {
	case errors.Is(err, transfer.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, transfer.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, transfer.ErrHighRisk):
		return http.StatusForbidden
	case errors.Is(err, transfer.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, transfer.ErrNoPendingTransfer):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// GetTransactionsHandler returns the transaction history of a user, newest
// first, each row tagged income or expense
func GetTransactionsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		authUserID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Parse the path parameter
		pathID, err := strconv.Atoi(c.Param("user_id"))
		if err != nil || pathID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		// Users may only read their own history
		if uint(pathID) != authUserID.(uint) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		page := 1      // Default page
		pageSize := 20 // Default page size
		// If page exists in query
		if p := c.Query("page"); p != "" {
			// Convert page to integer
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// If page_size exists in query
		if ps := c.Query("page_size"); ps != "" {
			// Convert page_size to integer
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size if valid
			}
		}
		offset := (page - 1) * pageSize // Calculate offset
		// Redis cache key
		cacheKey := txHistoryPrefix(uint(pathID)) + ":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
		ctx := context.Background() // Context for Redis operations
		var cached struct {
			Transactions []TaggedTransaction `json:"transactions"` // List of transactions
			Page         int                 `json:"page"`         // Current page
			PageSize     int                 `json:"page_size"`    // Page size
			Total        int64               `json:"total"`        // Total transactions
			TotalPages   int                 `json:"total_pages"`  // Total pages
		}
		// Try to get from cache
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		// If found in cache, return it
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"transactions": cached.Transactions, // Cached transactions
				"page":         cached.Page,         // Current page
				"page_size":    cached.PageSize,     // Page size
				"total":        cached.Total,        // Total transactions
				"total_pages":  cached.TotalPages,   // Total pages
				"cached":       true,
			})
			return
		}
		var total int64 // Total count of transactions
		// Count total transactions for pagination
		if err := db.Model(&domain.Transaction{}).
			Where("user_id = ?", pathID).
			Count(&total).Error; err != nil {
			// If counting fails, return error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count transactions"})
			return
		}
		var transactions []domain.Transaction // Slice to hold transactions
		// Fetch paginated transactions
		if err := db.Where("user_id = ?", pathID).
			Order("created_at desc").
			Offset(offset).
			Limit(pageSize).
			Find(&transactions).Error; err != nil {
			// If fetching fails, return error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		// Tag each row as income or expense
		tagged := make([]TaggedTransaction, len(transactions))
		for i, t := range transactions {
			tagged[i] = TaggedTransaction{Transaction: t, Type: t.Direction()}
		}
		// Calculate total pages
		totalPages := (int(total) + pageSize - 1) / pageSize
		resp := gin.H{
			"transactions": tagged,     // List of transactions
			"page":         page,       // Current page
			"page_size":    pageSize,   // Page size
			"total":        total,      // Total transactions
			"total_pages":  totalPages, // Total pages
			"cached":       false,      // Not from cache
		}
		// Cache the result for 60 seconds
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp) // Return transaction history
	}
}
