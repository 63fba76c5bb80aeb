package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"finassist/internal/domain" // Importing domain models
	"finassist/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library

	"github.com/sirupsen/logrus" // Logging library
)

// walletCacheKey is the Redis key for one user's wallet
func walletCacheKey(userID uint) string {
	return "wallet:user:" + strconv.Itoa(int(userID))
}

// txHistoryPrefix is the Redis key prefix for one user's history pages
func txHistoryPrefix(userID uint) string {
	return "txhistory:user:" + strconv.Itoa(int(userID))
}

// invalidateUserCaches drops the wallet and history cache entries of a user
func invalidateUserCaches(ctx context.Context, rdb *redis.Client, userID uint) {
	_ = utils.DeleteCache(ctx, rdb, walletCacheKey(userID))        // Invalidate wallet cache
	_ = utils.DeleteCachePrefix(ctx, rdb, txHistoryPrefix(userID)) // Invalidate all history pages
}

// CreateWalletHandler creates a wallet for the authenticated user. Wallets
// are normally created at registration; this covers accounts without one
func CreateWalletHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Check if wallet already exists
		var wallet domain.Wallet
		// Query wallet by user ID
		if err := db.Where("user_id = ?", userID).First(&wallet).Error; err == nil {
			// If wallet exists, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Wallet already exists"})
			return
		}
		// Create new wallet with zero balances
		wallet = domain.Wallet{UserID: userID.(uint)}
		// Save the new wallet
		if err := db.Create(&wallet).Error; err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"error":   err.Error(), // Error message
			}).Error("Failed to create wallet") // Log failure
			// Return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create wallet"})
			return
		}
		// Log successful wallet creation
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,    // User ID
			"wallet_id": wallet.ID, // Wallet ID
		}).Info("Wallet created")
		// Invalidate wallet cache
		_ = utils.DeleteCache(context.Background(), rdb, walletCacheKey(userID.(uint)))
		// Return success response
		c.JSON(http.StatusCreated, gin.H{"message": "Wallet created", "wallet": wallet})
	}
}

// GetWalletHandler returns wallet info for the authenticated user
func GetWalletHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := context.Background()                               // Context for Redis operations
		cacheKey := walletCacheKey(userID.(uint))                 // Cache key for wallet
		var wallet domain.Wallet                                  // Wallet struct to hold data
		found, err := utils.GetCache(ctx, rdb, cacheKey, &wallet) // Try to get from cache
		// If found in cache, return it
		if err == nil && found {
			// Return cached wallet
			c.JSON(http.StatusOK, gin.H{"wallet": wallet, "cached": true})
			return
		}
		// If not in cache, fetch from DB
		if err := db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
			// Return not found if wallet doesn't exist
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, wallet, 60*time.Second)  // Cache the wallet for 60 seconds
		c.JSON(http.StatusOK, gin.H{"wallet": wallet, "cached": false}) // Return wallet info
	}
}

// DepositRequest represents a deposit request
type DepositRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"` // Deposit amount
	Note   string  `json:"note"`                           // Optional memo
}

// DepositHandler allows a user to deposit funds into their wallet
func DepositHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req DepositRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		var wallet domain.Wallet // Find user's wallet
		// Query wallet by user ID
		if err := db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
			// If wallet not found, return not found
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		note := req.Note
		if note == "" {
			note = "Deposit"
		}
		// Update balance and append the ledger row atomically
		err := db.Transaction(func(tx *gorm.DB) error {
			// Increment wallet balance
			if err := tx.Model(&wallet).Update("debit_balance", gorm.Expr("debit_balance + ?", req.Amount)).Error; err != nil {
				return err
			}
			// Create transaction record (positive amount = income)
			t := domain.Transaction{
				UserID:   userID.(uint),
				Amount:   req.Amount,
				Category: "Deposit",
				Note:     note,
			}
			// Save transaction
			if err := tx.Create(&t).Error; err != nil {
				return err // Return error to rollback
			}
			return nil // Commit transaction
		})
		// Handle transaction result
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"amount":  req.Amount,  // Deposit amount
				"error":   err.Error(), // Error message
			}).Error("Deposit failed") // Log deposit failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Deposit failed"}) // Return internal server error
			return
		}
		// Log successful deposit
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,                          // User ID
			"amount":    req.Amount,                      // Deposit amount
			"type":      "deposit",                       // Transaction type
			"timestamp": time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("Deposit transaction") // Log deposit success
		// Invalidate wallet and transaction history cache
		invalidateUserCaches(context.Background(), rdb, userID.(uint))
		// Return success response
		c.JSON(http.StatusOK, gin.H{"message": "Deposit successful"})
	}
}
