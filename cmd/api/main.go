package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wellspring-health/practice-scheduler/internal/api/router"
	"github.com/wellspring-health/practice-scheduler/internal/availability"
	"github.com/wellspring-health/practice-scheduler/internal/booking"
	appconfig "github.com/wellspring-health/practice-scheduler/internal/config"
	"github.com/wellspring-health/practice-scheduler/internal/http/handlers"
	"github.com/wellspring-health/practice-scheduler/internal/notify"
	"github.com/wellspring-health/practice-scheduler/internal/observability/metrics"
	"github.com/wellspring-health/practice-scheduler/internal/patients"
	"github.com/wellspring-health/practice-scheduler/internal/sessions"
	"github.com/wellspring-health/practice-scheduler/pkg/logging"
)

func main() {
	// Load .env in development; the file is absent in deployed environments.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting practice-scheduler API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to reach redis", "error", err)
		os.Exit(1)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	schedulingMetrics := metrics.NewSchedulingMetrics(registry)

	// Repositories and stores
	patientsRepo := patients.NewPostgresRepository(pool)
	settingsStore := availability.NewStore(redisClient, cfg.DefaultTimezone)
	sessionStore := sessions.NewStore(pool)

	// Notifications: fall back to a logging stub when SendGrid is not
	// configured so local environments still exercise the lifecycle hooks.
	var emailSender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		emailSender = sg
	} else {
		emailSender = notify.NewStubSender(logger)
	}
	notifier := notify.NewService(emailSender, patientsRepo, logger)

	// Services
	sessionService := sessions.NewService(sessionStore, notifier, logger, schedulingMetrics)
	bookingService := booking.NewService(pool, settingsStore, logger, schedulingMetrics)

	// Handlers
	bookingHandler := handlers.NewBookingHandler(bookingService, logger, cfg.PublicBaseURL, cfg.BookingLinkTTL)
	schedulingHandler := handlers.NewSchedulingHandler(settingsStore, sessionStore, schedulingMetrics, logger)
	sessionsHandler := handlers.NewSessionsHandler(sessionService, settingsStore, logger)
	patientsHandler := patients.NewHandler(patientsRepo, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		BookingHandler:     bookingHandler,
		SchedulingHandler:  schedulingHandler,
		SessionsHandler:    sessionsHandler,
		PatientsHandler:    patientsHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		TherapistJWTSecret: cfg.TherapistJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
