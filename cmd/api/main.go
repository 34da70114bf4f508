package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/exchango/backend/internal/config"
	"github.com/exchango/backend/internal/eventbus"
	"github.com/exchango/backend/internal/handler"
	"github.com/exchango/backend/internal/logger"
	"github.com/exchango/backend/internal/metrics"
	"github.com/exchango/backend/internal/notify"
	"github.com/exchango/backend/internal/repository"
	"github.com/exchango/backend/internal/retry"
	"github.com/exchango/backend/internal/scheduler"
	"github.com/exchango/backend/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup structured logger
	appLogger := logger.New(cfg.IsProduction())

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Initialize repositories
	alertRepo := repository.NewAlertRepository(db)
	rateRepo := repository.NewRateRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Rate-change bus
	busCfg := busConfig(cfg)
	bus := newBus(cfg, busCfg, appLogger)

	// Notification channels
	var whatsapp, email notify.Sender
	if cfg.WhatsAppEnabled() {
		whatsapp = notify.NewWhatsAppSender(notify.WhatsAppConfig{
			BaseURL: cfg.WhatsApp.APIURL,
			Session: cfg.WhatsApp.Session,
			APIKey:  cfg.WhatsApp.APIKey,
			Timeout: cfg.WhatsApp.Timeout,
		})
	} else {
		appLogger.Warn("WhatsApp gateway not configured, messages will only be logged")
	}
	if cfg.EmailEnabled() {
		email = notify.NewEmailSender(notify.EmailConfig{
			APIKey:      cfg.Email.SendGridAPIKey,
			FromAddress: cfg.Email.FromAddress,
			FromName:    cfg.Email.FromName,
		})
	}
	router := notify.NewRouter(whatsapp, email, appLogger)

	// Initialize services
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.Dispatch.MaxAttempts
	retryCfg.InitialDelay = cfg.Dispatch.RetryDelay
	dispatcher := service.NewNotificationDispatcher(router, notificationRepo, cfg.AlertLocale, retryCfg, cfg.Dispatch.Timeout, appLogger)
	matcher := service.NewAlertMatcher(alertRepo, dispatcher, cfg.ReferenceCurrency, appLogger)
	bus.Subscribe("alert-matcher", matcher.Handle)

	alertService := service.NewAlertService(alertRepo, directoryRepo)
	rateService := service.NewRateService(rateRepo, directoryRepo, bus, appLogger)

	// Initialize handlers
	alertHandler := handler.NewAlertHandler(alertService)
	rateHandler := handler.NewRateHandler(rateService)
	healthHandler := handler.NewHealthHandler(db)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(handler.RequestContext)
	if cfg.IsDevelopment() {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	// CORS - allow frontend origin from env or default
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{handler.WarningHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/api/health", healthHandler.Check)
	r.Handle("/metrics", metrics.Handler())

	// Alerts
	r.Post("/api/alerts", alertHandler.Create)
	r.Get("/api/alerts", alertHandler.List)
	r.Get("/api/alerts/matching", alertHandler.Matching)
	r.Get("/api/alerts/{id}", alertHandler.Get)
	r.Put("/api/alerts/{id}", alertHandler.Update)
	r.Delete("/api/alerts/{id}", alertHandler.Delete)

	// Office rates
	r.Patch("/api/office-rates/{id}", rateHandler.Update)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := bus.Start(ctx); err != nil {
		log.Fatalf("Failed to start event bus: %v", err)
	}

	// Initialize and start the notification retry sweeper
	sweeper := scheduler.New(sweeperConfig(cfg), notificationRepo, dispatcher, appLogger)
	if err := sweeper.Start(); err != nil {
		appLogger.Error("Failed to start retry sweeper", slog.String("error", err.Error()))
	} else if sweeper.IsRunning() {
		appLogger.Info("Next notification retry sweep", slog.Time("at", sweeper.GetNextRunTime()))
	}

	// Create server
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		appLogger.Info("Shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), busCfg.HandlerTimeout+5*time.Second)
		defer shutdownCancel()

		// Stop accepting rate updates before draining the bus
		if err := server.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Server shutdown error", slog.String("error", err.Error()))
		}

		<-sweeper.Stop().Done()

		if err := bus.Stop(shutdownCtx); err != nil {
			appLogger.Error("Event bus shutdown error", slog.String("error", err.Error()))
		}
		cancel()
	}()

	appLogger.Info("Server starting",
		slog.String("port", cfg.Port),
		slog.String("event_bus", cfg.EventBus.Driver),
	)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		appLogger.Error("Server failed", slog.String("error", err.Error()))
		return
	}
	<-done
}

func newBus(cfg *config.Config, busCfg eventbus.Config, l *slog.Logger) eventbus.Bus {
	if cfg.EventBus.Driver == "kafka" {
		return eventbus.NewKafkaBus(eventbus.KafkaConfig{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          cfg.Kafka.Topic,
			GroupID:        cfg.Kafka.GroupID,
			HandlerTimeout: busCfg.HandlerTimeout,
		}, l)
	}
	return eventbus.NewMemoryBus(busCfg, l)
}

// busConfig applies the environment on top of the bus defaults.
func busConfig(cfg *config.Config) eventbus.Config {
	c := eventbus.DefaultConfig()
	if cfg.EventBus.BufferSize > 0 {
		c.BufferSize = cfg.EventBus.BufferSize
	}
	if cfg.EventBus.Workers > 0 {
		c.Workers = cfg.EventBus.Workers
	}
	if cfg.EventBus.HandlerTimeout > 0 {
		c.HandlerTimeout = cfg.EventBus.HandlerTimeout
	}
	return c
}

// sweeperConfig applies the environment on top of the scheduler defaults.
func sweeperConfig(cfg *config.Config) scheduler.Config {
	c := scheduler.DefaultConfig()
	c.Enabled = cfg.RetrySweeper.Enabled
	if cfg.RetrySweeper.Schedule != "" {
		c.Schedule = cfg.RetrySweeper.Schedule
	}
	if cfg.RetrySweeper.MaxAttempts > 0 {
		c.MaxAttempts = cfg.RetrySweeper.MaxAttempts
	}
	if cfg.RetrySweeper.BatchSize > 0 {
		c.BatchSize = cfg.RetrySweeper.BatchSize
	}
	if cfg.RetrySweeper.Timeout > 0 {
		c.Timeout = cfg.RetrySweeper.Timeout
	}
	return c
}
