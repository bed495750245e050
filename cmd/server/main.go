package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dimaa-b/baruch-studyrooms/internal/booking"
	"github.com/dimaa-b/baruch-studyrooms/internal/config"
	"github.com/dimaa-b/baruch-studyrooms/internal/database"
	"github.com/dimaa-b/baruch-studyrooms/internal/handler"
	"github.com/dimaa-b/baruch-studyrooms/internal/libcal"
	"github.com/dimaa-b/baruch-studyrooms/internal/notify"
	"github.com/dimaa-b/baruch-studyrooms/internal/scheduler"
	"github.com/dimaa-b/baruch-studyrooms/internal/service"
	"github.com/dimaa-b/baruch-studyrooms/internal/worker"
	"github.com/dimaa-b/baruch-studyrooms/pkg/middleware"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	config.InitLogger(cfg)

	slog.Info("Starting Study Room Monitoring Service", "version", version)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to MongoDB
	db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTimeout)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			slog.Error("Failed to disconnect from MongoDB", "error", err)
		}
	}()

	// Create indexes
	if err := database.CreateIndexes(ctx, db); err != nil {
		slog.Error("Failed to create indexes", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	requestRepo := database.NewRequestRepository(db)
	checkRepo := database.NewCheckRepository(db)

	logger := slog.Default()

	// Initialize upstream client and booking orchestrator
	upstream := libcal.NewClient(libcal.Options{
		BaseURL:    cfg.UpstreamBaseURL,
		LID:        cfg.UpstreamLID,
		GID:        cfg.UpstreamGID,
		QuestionID: cfg.UpstreamQuestionID,
		Answer:     cfg.UpstreamAnswer,
		Timeout:    cfg.UpstreamTimeout,
	})
	orchestrator := booking.NewOrchestrator(upstream, logger)

	// Initialize notification sinks
	var webhookDispatcher *notify.WebhookDispatcher
	if cfg.NotifyWebhookURL != "" {
		webhookDispatcher = notify.NewWebhookDispatcher(cfg.NotifyWebhookURL, cfg.NotifyTimeout, notify.RetryConfig{})
	}
	var publisher *notify.EventPublisher
	if cfg.KafkaBrokers != "" {
		publisher, err = notify.NewEventPublisher(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
		if err != nil {
			slog.Error("Failed to create event publisher", "error", err)
			os.Exit(1)
		}
	}
	notifier := notify.NewNotifier(webhookDispatcher, publisher, logger)
	defer notifier.Close()

	// Initialize services
	requestService := service.NewRequestService(requestRepo, logger)
	bookingService := service.NewBookingService(upstream, orchestrator, logger)
	checker := service.NewChecker(requestRepo, checkRepo, upstream, orchestrator, notifier, logger)

	// Initialize worker pool for batch sweeps
	pool := worker.NewWorkerPool(cfg.CheckWorkers, cfg.CheckWorkers*4)
	pool.SetChecker(func(jobCtx context.Context, requestID, correlationID string) (*worker.Result, error) {
		record, err := checker.Check(jobCtx, requestID, correlationID)
		if err != nil {
			return nil, err
		}
		return &worker.Result{RequestID: requestID, Record: record}, nil
	})
	pool.Start()

	// Initialize scheduler
	sched, err := scheduler.NewScheduler(cfg, checker, pool)
	if err != nil {
		slog.Error("Invalid scheduler configuration", "error", err)
		os.Exit(1)
	}
	sched.Start(ctx)

	// Initialize handlers
	requestHandler := handler.NewRequestHandler(requestService)
	checkHandler := handler.NewCheckHandler(checker, checkRepo, pool)
	bookingHandler := handler.NewBookingHandler(bookingService)
	availabilityHandler := handler.NewAvailabilityHandler(upstream)
	healthHandler := handler.NewHealthHandler(db, pool, version)

	// Create CORS config
	corsConfig := middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		AllowCredentials: cfg.CORSAllowCredentials,
		MaxAge:           cfg.CORSMaxAge,
	}

	// Create router
	router := handler.NewRouter(
		requestHandler,
		checkHandler,
		bookingHandler,
		availabilityHandler,
		healthHandler,
		corsConfig,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	// Start server in goroutine
	go func() {
		slog.Info("Starting HTTP server", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("Received shutdown signal, initiating graceful shutdown")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop scheduler first (wait for in-flight sweeps)
	slog.Info("Stopping scheduler...")
	sched.Stop(shutdownCtx)

	// Drain the worker pool
	pool.Stop()

	// Shutdown HTTP server
	slog.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Study Room Monitoring Service stopped")
}
