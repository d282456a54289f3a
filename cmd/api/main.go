package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/upahan/upahan-api/docs" // Swagger docs
	"github.com/upahan/upahan-api/internal/config"
	"github.com/upahan/upahan-api/internal/database"
	"github.com/upahan/upahan-api/internal/handlers"
	"github.com/upahan/upahan-api/internal/jobs"
	"github.com/upahan/upahan-api/internal/middleware"
	"github.com/upahan/upahan-api/internal/models"
	"github.com/upahan/upahan-api/internal/repository"
	"github.com/upahan/upahan-api/internal/services"
	"github.com/upahan/upahan-api/internal/storage"
	"github.com/upahan/upahan-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title Upahan API
// @version 1.0
// @description REST API for rental billing: bill generation, payments, utility readings and workspace controls

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	// Initialize storage
	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	logger.Info("Initialized local storage")

	repos := repository.NewRepositories(db)

	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	svcs := services.NewServices(repos, worker, store, cfg, db)

	// due_date validation uses the workspace calendar day
	handlers.RegisterValidators(cfg.Location(), time.Now)

	svcs.Job.ScheduleOverdueSweep(cfg.OverdueSweepInterval)
	logger.Info("Scheduled overdue sweep", "interval", cfg.OverdueSweepInterval)

	h := handlers.NewHandlers(svcs, store)
	router := setupRouter(h, svcs, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	worker.Shutdown()
	logger.Info("Background worker stopped")

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, svcs *services.Services, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		// Health check (public)
		v1.GET("/health", h.Health.Index)

		// Every other route needs a token and a resolved, non-suspended workspace
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		protected.Use(middleware.Workspace(svcs.Workspace))
		{
			landlord := protected.Group("")
			landlord.Use(middleware.RequireRole(models.RoleLandlord))
			{
				// Bills
				landlord.POST("/bills/generate", h.Bill.Generate)
				landlord.POST("/bills/generate_dorm", h.Bill.GenerateDorm)
				landlord.GET("/bills", h.Bill.Index)
				landlord.GET("/bills/:bill_id", h.Bill.Show)
				landlord.POST("/bills/:bill_id/cancel", h.Bill.Cancel)
				landlord.GET("/rooms/:room_id/boarders", h.Bill.Boarders)

				// Utility readings
				landlord.POST("/utility_readings", h.Utility.Create)
				landlord.GET("/utility_readings", h.Utility.Index)

				// Payments
				landlord.POST("/payments", h.Payment.Create)
				landlord.GET("/payments", h.Payment.Index)
				landlord.GET("/payments/:payment_id", h.Payment.Show)
				landlord.POST("/payments/:payment_id/verify", h.Payment.Verify)
				landlord.POST("/payments/:payment_id/reject", h.Payment.Reject)
				landlord.POST("/payments/:payment_id/refund", h.Payment.Refund)
				landlord.GET("/payments/:payment_id/receipt", h.Payment.Receipt)
				landlord.GET("/payments/:payment_id/proof", h.Payment.Proof)
				landlord.GET("/tenants/:tenant_id/credit", h.Payment.Credit)

				// Reports
				landlord.GET("/reports/bills_csv", h.Report.BillsCSV)
				landlord.GET("/reports/bills_xlsx", h.Report.BillsXLSX)
				landlord.GET("/reports/payments_csv", h.Report.PaymentsCSV)
				landlord.GET("/reports/balances_csv", h.Report.BalancesCSV)

				landlord.GET("/jobs/status", h.Job.Status)
			}

			// Tenant portal, scoped to the caller's own tenant account
			tenant := protected.Group("/tenant")
			tenant.Use(middleware.RequireRole(models.RoleTenant))
			{
				tenant.GET("/bills", h.Bill.Index)
				tenant.GET("/bills/:bill_id", h.Bill.Show)
				tenant.GET("/payments", h.Payment.Index)
				tenant.POST("/payments", h.Payment.Submit)
				tenant.GET("/payments/:payment_id/receipt", h.Payment.Receipt)
				tenant.GET("/credit", h.Payment.MyCredit)
			}

			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole(models.RoleSuperadmin))
			{
				admin.PUT("/workspaces/:workspace_id/kill_switch", h.Admin.KillSwitch)
				admin.POST("/jobs/overdue_sweep", h.Job.SweepOverdue)
			}

			protected.GET("/audits", middleware.RequireRole(models.RoleLandlord, models.RoleSuperadmin), h.Audit.Index)

			// Notifications (landlords and tenants manage their own)
			// Static routes first so "mark_all_as_read" is not matched as :notification_id
			notifications := protected.Group("/notifications")
			notifications.Use(middleware.RequireRole(models.RoleLandlord, models.RoleTenant))
			{
				notifications.GET("", h.Notification.Index)
				notifications.GET("/unread_count", h.Notification.UnreadCount)
				notifications.POST("/mark_all_as_read", h.Notification.MarkAllAsRead)
				notifications.POST("/:notification_id/mark_as_read", h.Notification.MarkAsRead)
			}
		}
	}

	return router
}
