package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	billingapp "github.com/prontivus/backend/internal/application/billing"
	payoutapp "github.com/prontivus/backend/internal/application/payout"
	receivableapp "github.com/prontivus/backend/internal/application/receivable"
	reportapp "github.com/prontivus/backend/internal/application/report"
	"github.com/prontivus/backend/internal/infrastructure/auth"
	"github.com/prontivus/backend/internal/infrastructure/config"
	"github.com/prontivus/backend/internal/infrastructure/expense"
	"github.com/prontivus/backend/internal/infrastructure/logger"
	"github.com/prontivus/backend/internal/infrastructure/persistence"
	"github.com/prontivus/backend/internal/interfaces/http/handler"
	"github.com/prontivus/backend/internal/interfaces/http/middleware"
	"github.com/prontivus/backend/internal/interfaces/http/router"
)

//	@title			Prontivus Billing API
//	@version		1.0
//	@description	Billing and revenue-cycle ledger for outpatient clinics

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Prontivus Billing Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	billingRepo := persistence.NewGormBillingRecordRepository(db.DB)
	payoutRepo := persistence.NewGormPayoutRepository(db.DB)

	// External expense system client
	expenseClient, err := expense.NewClient(&expense.Config{
		BaseURL: cfg.Expense.BaseURL,
		APIKey:  cfg.Expense.APIKey,
		Timeout: cfg.Expense.CallTimeout,
	})
	if err != nil {
		log.Fatal("Failed to configure expense client", zap.Error(err))
	}

	// Initialize application services
	billingService := billingapp.NewService(billingRepo)
	agingService := receivableapp.NewAgingService(billingRepo)
	payoutService := payoutapp.NewService(payoutRepo, billingRepo)
	dashboardService := reportapp.NewDashboardService(
		billingRepo,
		expenseClient,
		reportapp.WithExpenseCallTimeout(cfg.Expense.CallTimeout),
		reportapp.WithRetryBackoff(cfg.Expense.RetryBackoff),
	)

	// JWT service for token verification
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize handlers
	billingHandler := handler.NewBillingHandler(billingService)
	receivableHandler := handler.NewReceivableHandler(agingService)
	payoutHandler := handler.NewPayoutHandler(payoutService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Billing ledger
	billingRoutes := router.NewDomainGroup("billing", "/billing")
	billingRoutes.POST("", billingHandler.CreateBilling)
	billingRoutes.GET("", billingHandler.ListBillings)
	billingRoutes.GET("/:id", billingHandler.GetBilling)
	billingRoutes.GET("/number/:number", billingHandler.GetBillingByNumber)
	billingRoutes.POST("/:id/payments", billingHandler.AddPayment)
	billingRoutes.POST("/:id/corrections", billingHandler.AddCorrection)
	billingRoutes.POST("/:id/cancel", billingHandler.CancelBilling)
	billingRoutes.POST("/:id/dispute", billingHandler.DisputeBilling)
	billingRoutes.POST("/:id/refund", billingHandler.RefundBilling)

	// Accounts receivable
	receivableRoutes := router.NewDomainGroup("receivables", "/receivables")
	receivableRoutes.GET("/aging", receivableHandler.GetAgingReport)

	// Physician payouts
	payoutRoutes := router.NewDomainGroup("payouts", "/payouts")
	payoutRoutes.POST("/calculate", payoutHandler.CalculatePayout)
	payoutRoutes.GET("/:id", payoutHandler.GetPayout)
	payoutRoutes.GET("/doctor/:doctor_id", payoutHandler.ListDoctorPayouts)
	payoutRoutes.POST("/:id/pay", payoutHandler.MarkPayoutPaid)

	// Financial reports
	reportRoutes := router.NewDomainGroup("reports", "/reports")
	reportRoutes.GET("/dashboard", dashboardHandler.GetDashboard)

	r.Register(billingRoutes).
		Register(receivableRoutes).
		Register(payoutRoutes).
		Register(reportRoutes)

	// System routes
	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
