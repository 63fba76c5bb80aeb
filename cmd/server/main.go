package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging

	"finassist/internal/agent"      // Conversational dispatcher
	"finassist/internal/api"        // Custom package for API handlers
	"finassist/internal/config"     // Custom package for configuration
	"finassist/internal/fraud"      // Fraud heuristic
	"finassist/internal/ledger"     // Ledger store
	"finassist/internal/llm"        // Chat model client
	"finassist/internal/middleware" // Custom package for middleware
	"finassist/internal/notes"      // Note similarity search
	"finassist/internal/summary"    // Spending aggregation
	"finassist/internal/transfer"   // Transfer orchestrator

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Ledger store and the core services on top of it
	store := ledger.NewGormStore(db)
	detector := fraud.NewDetector(store, cfg.FraudLargeAmount)
	aggregator := summary.NewAggregator(store)

	// Note search: Gemini embeddings over a Redis-backed vector index
	searcher := notes.NewSearcher(
		notes.NewGeminiEmbedder(cfg.GeminiAPIKey, cfg.EmbedModel),
		notes.NewRedisIndex(redisClient),
		store,
	)
	orchestrator := transfer.NewOrchestrator(store, detector, cfg.PendingTTL, searcher)

	// Conversational agent: typed tool registry around the core services
	registry, err := agent.BuildRegistry(agent.Deps{
		Store:      store,
		Transfers:  orchestrator,
		Detector:   detector,
		Aggregator: aggregator,
		Notes:      searcher,
	})
	if err != nil {
		logrus.Fatalf("failed to build tool registry: %v", err)
	}
	chatModel := llm.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	assistant := agent.New(chatModel, registry)
	sessions := agent.NewSessionStore(cfg.SessionTTL)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/user", api.RegisterHandler(db))            // Registration endpoint
	r.GET("/user", api.LoginHandler(db, cfg.JWTSecret)) // Login endpoint

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet")
	walletGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	walletGroup.POST("", api.CreateWalletHandler(db, redisClient))    // Create wallet endpoint
	walletGroup.GET("", api.GetWalletHandler(db, redisClient))        // Get wallet endpoint
	walletGroup.POST("/deposit", api.DepositHandler(db, redisClient)) // Deposit endpoint

	// Transaction routes (protected by JWT)
	txGroup := r.Group("/transactions")
	txGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	txGroup.POST("/transfer", api.TransferHandler(orchestrator, redisClient)) // Direct transfer endpoint
	txGroup.GET("/:user_id", api.GetTransactionsHandler(db, redisClient))     // Transaction history endpoint

	// Chat route (protected by JWT)
	chatGroup := r.Group("/chat")
	chatGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	chatGroup.POST("", api.ChatHandler(assistant, sessions)) // Conversational endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	// Protect admin routes with JWT and AdminOnly middleware
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(db))
	adminGroup.GET("/users", api.ListUsersHandler(db, redisClient))               // List users endpoint
	adminGroup.GET("/transactions", api.ListTransactionsHandler(db, redisClient)) // List transactions endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
