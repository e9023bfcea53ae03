package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderdesk/internal/cache"
	"orderdesk/internal/config"
	"orderdesk/internal/database"
	"orderdesk/internal/handler"
	"orderdesk/internal/middleware"
	"orderdesk/internal/monitor"
	"orderdesk/internal/redis"
	"orderdesk/internal/repository"
	"orderdesk/internal/service/analytics"
	"orderdesk/internal/service/order"
	"orderdesk/internal/service/stock"
	"orderdesk/pkg/log"
	"orderdesk/pkg/retry"
	"orderdesk/pkg/snowflake"
	"orderdesk/pkg/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to load config")
	}
	config.GlobalConfig = cfg

	logConfig := log.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	}
	log.Init(logConfig)

	config.WatchConfig(func() {
		log.Info("Configuration file reloaded")
	})

	// database
	if err := database.Init(cfg); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to initialize database")
	}
	defer database.Close()

	if err := database.AutoMigrate(database.GetDB()); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to migrate database")
	}

	// redis; listing reads degrade to the database when it is down, so a
	// failed connection is not fatal
	if err := redis.Init(cfg); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Warn("Redis unavailable, listing cache disabled")
	}
	defer redis.Close()

	utils.RegisterCustomValidators()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := setupRouter(cfg)

	server := &http.Server{
		Addr:           cfg.Server.GetAddr(),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"addr": server.Addr,
			"mode": cfg.Server.Mode,
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Server forced to shutdown")
	}

	log.Info("Server exited")
}

func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	if cfg.Metrics.Enabled {
		router.Use(monitor.Metrics())
	}
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	router.GET("/health", healthCheck)
	router.GET("/ping", ping)
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, monitor.Handler())
	}

	db := database.GetDB()

	var cacheClient = redis.GetClient()
	if !cfg.Cache.Enabled {
		cacheClient = nil
	}
	listings := cache.New(cacheClient, cfg.Cache.KeyPrefix, cfg.Cache.TTL)

	// Create repositories
	customerRepo := repository.NewCustomerRepository(db)
	itemRepo := repository.NewItemRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	txnRepo := repository.NewStockTransactionRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Create ID generator
	idGenerator, err := snowflake.NewIDGenerator(1)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to create ID generator")
	}

	retryPolicy := retry.Policy{
		MaxAttempts: cfg.Stock.RetryAttempts,
		BaseDelay:   cfg.Stock.RetryBaseDelay,
		MaxDelay:    cfg.Stock.RetryMaxDelay,
		Multiplier:  2.0,
	}

	// Create services
	ledger := stock.NewLedger(db, itemRepo, txnRepo, retryPolicy)
	orderService := order.NewOrderService(orderRepo, customerRepo, itemRepo, auditRepo, ledger, listings, idGenerator)
	analyticsService := analytics.NewAnalyticsService(db)

	// Create handlers
	customerHandler := handler.NewCustomerHandler(customerRepo, listings)
	itemHandler := handler.NewItemHandler(itemRepo, ledger, listings)
	orderHandler := handler.NewOrderHandler(orderService, listings)
	stockHandler := handler.NewStockHandler(ledger, itemRepo, listings)
	feedbackHandler := handler.NewFeedbackHandler(feedbackRepo, customerRepo, orderRepo)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	auditHandler := handler.NewAuditHandler(auditRepo)

	// Setup routes
	api := router.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/health", healthCheck)
			v1.GET("/ping", ping)

			protected := v1.Group("")
			protected.Use(middleware.Auth(cfg.Auth.JWTSecret, cfg.Auth.Issuer))
			{
				customerGroup := protected.Group("/customers")
				{
					customerGroup.GET("", customerHandler.ListCustomers)
					customerGroup.POST("", customerHandler.CreateCustomer)
					customerGroup.GET("/:id", customerHandler.GetCustomer)
					customerGroup.PATCH("/:id", customerHandler.UpdateCustomer)
					customerGroup.GET("/:id/feedback", feedbackHandler.ListCustomerFeedback)
				}

				itemGroup := protected.Group("/items")
				{
					itemGroup.GET("", itemHandler.ListItems)
					itemGroup.POST("", itemHandler.CreateItem)
					itemGroup.GET("/:id", itemHandler.GetItem)
					itemGroup.PATCH("/:id", itemHandler.UpdateItem)
				}

				orderGroup := protected.Group("/orders")
				{
					orderGroup.GET("", orderHandler.ListOrders)
					orderGroup.POST("", orderHandler.CreateOrder)
					orderGroup.PATCH("", orderHandler.BulkUpdateStatus)
					orderGroup.GET("/:order_number", orderHandler.GetOrder)
					orderGroup.POST("/:order_number/cancel", orderHandler.CancelOrder)
					orderGroup.PATCH("/:order_number/status", orderHandler.UpdateStatus)
				}

				stockGroup := protected.Group("/stock")
				{
					stockGroup.GET("", stockHandler.ListStock)
					stockGroup.GET("/low", stockHandler.ListLowStock)
					stockGroup.GET("/transactions/:item_id", stockHandler.TransactionHistory)
				}

				feedbackGroup := protected.Group("/feedback")
				{
					feedbackGroup.GET("", feedbackHandler.ListFeedback)
					feedbackGroup.POST("", feedbackHandler.CreateFeedback)
				}

				analyticsGroup := protected.Group("/analytics")
				{
					analyticsGroup.GET("/summary", analyticsHandler.SalesSummary)
					analyticsGroup.GET("/top-items", analyticsHandler.TopItems)
				}

				admin := protected.Group("")
				admin.Use(middleware.RequireRole(middleware.RoleAdmin))
				{
					admin.POST("/stock/adjust", stockHandler.Adjust)
					admin.GET("/stock/verify/:item_id", stockHandler.VerifyLedger)
					admin.DELETE("/items/:id", itemHandler.DeleteItem)
					admin.DELETE("/customers/:id", customerHandler.DeleteCustomer)
					admin.GET("/audit", auditHandler.ListAuditLogs)
				}
			}
		}
	}

	return router
}

func healthCheck(c *gin.Context) {
	dbHealth := checkDatabase()
	redisHealth := checkRedis()

	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"version":   "1.0.0",
		"services": map[string]interface{}{
			"database": dbHealth,
			"redis":    redisHealth,
		},
	}

	// the cache degrades without redis, so only the database is required
	if !dbHealth["healthy"].(bool) {
		health["status"] = "error"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	c.JSON(http.StatusOK, health)
}

func ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "pong",
		"timestamp": time.Now().Unix(),
	})
}

func checkDatabase() map[string]interface{} {
	if err := database.Health(); err != nil {
		return map[string]interface{}{
			"healthy": false,
			"error":   err.Error(),
		}
	}

	return map[string]interface{}{
		"healthy": true,
		"status":  "connected",
	}
}

func checkRedis() map[string]interface{} {
	if err := redis.Health(); err != nil {
		return map[string]interface{}{
			"healthy": false,
			"error":   err.Error(),
		}
	}

	return map[string]interface{}{
		"healthy": true,
		"status":  "connected",
	}
}
