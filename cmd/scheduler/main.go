package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/microcredit-engine/internal/cache"
	"github.com/segyhp/microcredit-engine/internal/config"
	"github.com/segyhp/microcredit-engine/internal/jobs"
	"github.com/segyhp/microcredit-engine/internal/logging"
	"github.com/segyhp/microcredit-engine/internal/notification"
	"github.com/segyhp/microcredit-engine/internal/repository"
	"github.com/segyhp/microcredit-engine/internal/scheduler"
	"github.com/segyhp/microcredit-engine/internal/service"
)

func main() {
	once := flag.Bool("once", false, "run every job once and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.Logging)
	logger.Info("Starting loan scheduler...")

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.WithError(err).WithField("dsn", cfg.Database.RedactedDSN()).Fatal("Failed to initialize database")
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// Status changes evict cached balances the API may still hold
	var loanCache cache.LoanCache = cache.NoopLoanCache{}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.GetHealthTimeout())
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unavailable, cached balances will expire on their own")
	} else {
		loanCache = cache.NewRedisLoanCache(redisClient, cfg.Redis.CacheTTL)
	}
	cancel()

	var notifier notification.Notifier = notification.NewLogNotifier(logger)
	if cfg.Notification.Driver == "smtp" {
		notifier = notification.NewEmailNotifier(cfg.Notification)
	}
	dispatcher := notification.NewDispatcher(notifier, logger, cfg.Notification.MaxAttempts, cfg.Notification.RetryBackoff)

	loanService := service.NewLoanService(repository.NewSQLStore(db), loanCache, dispatcher, cfg, logger)
	runner := jobs.NewJobRunner(loanService, logger)

	if *once {
		runner.RunAll()
		dispatcher.Wait()
		return
	}

	s, err := scheduler.NewScheduler(runner, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to schedule jobs")
	}
	s.Start()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down scheduler...")
	s.Stop()
	dispatcher.Wait()
	logger.Info("Scheduler stopped")
}
