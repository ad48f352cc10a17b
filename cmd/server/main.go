package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/microcredit-engine/internal/cache"
	"github.com/segyhp/microcredit-engine/internal/config"
	"github.com/segyhp/microcredit-engine/internal/handler"
	"github.com/segyhp/microcredit-engine/internal/logging"
	"github.com/segyhp/microcredit-engine/internal/middleware"
	"github.com/segyhp/microcredit-engine/internal/notification"
	"github.com/segyhp/microcredit-engine/internal/repository"
	"github.com/segyhp/microcredit-engine/internal/service"
	"github.com/segyhp/microcredit-engine/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.Logging)

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		logger.WithError(err).WithField("dsn", cfg.Database.RedactedDSN()).Fatal("Failed to initialize database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(context.Background(), db); err != nil {
			logger.WithError(err).Fatal("Failed to migrate database")
		}
		logger.Info("Database schema is up to date")
	}

	// Initialize Redis; the service keeps working without it
	redisClient, loanCache := initCache(cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	dispatcher := notification.NewDispatcher(
		initNotifier(cfg, logger),
		logger,
		cfg.Notification.MaxAttempts,
		cfg.Notification.RetryBackoff,
	)

	store := repository.NewSQLStore(db)
	loanService := service.NewLoanService(store, loanCache, dispatcher, cfg, logger)
	loanHandler := handler.NewLoanHandler(loanService, logger)

	var healthHandler *handler.HealthHandler
	if redisClient != nil {
		healthHandler = handler.NewHealthHandler(db, redisClient, cfg.GetHealthTimeout())
	} else {
		healthHandler = handler.NewHealthHandler(db, nil, cfg.GetHealthTimeout())
	}

	// Setup routes
	router := setupRoutes(cfg, logger, loanHandler, healthHandler)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.WithField("addr", server.Addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	// Let queued notifications finish before the process exits
	dispatcher.Wait()

	logger.Info("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initCache(cfg *config.Config, logger *logrus.Logger) (*redis.Client, cache.LoanCache) {
	opts := &redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if cfg.Redis.URL != "" {
		parsed, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.WithError(err).Warn("Invalid REDIS_URL, running without cache")
			return nil, cache.NoopLoanCache{}
		}
		opts = parsed
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetHealthTimeout())
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unavailable, running without cache")
		client.Close()
		return nil, cache.NoopLoanCache{}
	}

	return client, cache.NewRedisLoanCache(client, cfg.Redis.CacheTTL)
}

func initNotifier(cfg *config.Config, logger *logrus.Logger) notification.Notifier {
	if cfg.Notification.Driver == "smtp" {
		return notification.NewEmailNotifier(cfg.Notification)
	}
	return notification.NewLogNotifier(logger)
}

func setupRoutes(cfg *config.Config, logger *logrus.Logger, loanHandler *handler.LoanHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Logging(logger))
	router.Use(response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Gateway callbacks authenticate with a body signature instead of a token
	gateway := api.PathPrefix("/gateway").Subrouter()
	gateway.Use(middleware.GatewaySignature(cfg.Gateway.WebhookSecret))
	gateway.HandleFunc("/callback", loanHandler.GatewayCallback).Methods("POST")

	backOffice := api.NewRoute().Subrouter()
	backOffice.Use(middleware.Actor(cfg.Auth.JWTSecret))

	backOffice.HandleFunc("/loans", loanHandler.CreateLoan).Methods("POST")
	backOffice.HandleFunc("/loans", loanHandler.ListLoans).Methods("GET")
	backOffice.HandleFunc("/loans/preview", loanHandler.PreviewSchedule).Methods("POST")
	backOffice.HandleFunc("/loans/{loanId}", loanHandler.GetLoan).Methods("GET")
	backOffice.HandleFunc("/loans/{loanId}/activate", loanHandler.ActivateLoan).Methods("POST")
	backOffice.HandleFunc("/loans/{loanId}/schedule", loanHandler.GetSchedule).Methods("GET")
	backOffice.HandleFunc("/loans/{loanId}/schedule.xml", loanHandler.GetScheduleDocument).Methods("GET")
	backOffice.HandleFunc("/loans/{loanId}/outstanding", loanHandler.GetOutstanding).Methods("GET")
	backOffice.HandleFunc("/loans/{loanId}/payments", loanHandler.ListPayments).Methods("GET")
	backOffice.HandleFunc("/loans/{loanId}/payments", loanHandler.MakePayment).Methods("POST")
	backOffice.HandleFunc("/reports/portfolio", loanHandler.PortfolioSummary).Methods("GET")

	return router
}
