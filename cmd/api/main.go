package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/bongoexpress/cargo-api/internal/handlers"
	"github.com/bongoexpress/cargo-api/internal/mailer"
	"github.com/bongoexpress/cargo-api/internal/repository"
	"github.com/bongoexpress/cargo-api/internal/service"
	"github.com/bongoexpress/cargo-api/pkg/config"
	"github.com/bongoexpress/cargo-api/pkg/database"
	"github.com/bongoexpress/cargo-api/pkg/events"
	"github.com/bongoexpress/cargo-api/pkg/logger"
	mw "github.com/bongoexpress/cargo-api/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis backs the public-endpoint rate limiter; the limiter fails open
	// so a missing redis only logs.
	var rdb *redis.Client
	if opts, err := redis.ParseURL(cfg.Redis.URL); err == nil {
		rdb = redis.NewClient(opts)
	} else {
		logger.Warn("Invalid redis URL, rate limiting disabled", "error", err)
	}

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Warn("Failed to connect to NATS, events disabled", "error", err)
	} else {
		defer eventBus.Close()
	}

	mailSvc := newMailer(cfg)

	// Repositories
	userRepo := repository.NewUserRepository(pool)
	shipmentRepo := repository.NewShipmentRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	// Services
	var bus events.Publisher
	if eventBus != nil {
		bus = eventBus
	}
	authService := service.NewAuthService(userRepo, mailSvc, cfg.Auth, cfg.App.BaseURL)
	shipmentService := service.NewShipmentService(shipmentRepo, paymentRepo, userRepo, notificationRepo, bus)
	statsService := service.NewStatsService(shipmentRepo, paymentRepo, userRepo)
	messageService := service.NewMessageService(messageRepo, shipmentRepo, userRepo, notificationRepo, mailSvc, bus)
	userService := service.NewUserService(userRepo)
	notificationService := service.NewNotificationService(notificationRepo)
	paymentService := service.NewPaymentService(paymentRepo)

	// Handlers
	guard := handlers.NewMiddleware(authService)
	authHandler := handlers.NewAuthHandler(authService, guard)
	shipmentHandler := handlers.NewShipmentHandler(shipmentService, guard)
	trackingHandler := handlers.NewTrackingHandler(shipmentService)
	dashboardHandler := handlers.NewDashboardHandler(statsService, guard)
	staffHandler := handlers.NewStaffHandler(userService, guard)
	staffDashboardHandler := handlers.NewStaffDashboardHandler(shipmentService, statsService, messageService, paymentService, guard)
	messageHandler := handlers.NewMessageHandler(messageService, guard)
	notificationHandler := handlers.NewNotificationHandler(notificationService, guard)

	publicLimit := mw.RateLimit(rdb, mw.RateLimitConfig{
		Capacity:       20,
		RefillTokens:   1,
		RefillInterval: 3 * time.Second,
		Prefix:         "rl:public",
	})

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(mw.CORS())

	r.Route("/api", func(r chi.Router) {
		r.With(publicLimit).Mount("/auth", authHandler.Routes())
		r.With(publicLimit).Mount("/track", trackingHandler.Routes())
		r.Mount("/shipments", shipmentHandler.Routes())
		r.Mount("/dashboard", dashboardHandler.Routes())
		r.Mount("/staff", staffHandler.Routes())
		r.Mount("/staff-dashboard", staffDashboardHandler.Routes())
		r.Mount("/messages", messageHandler.Routes())
		r.Mount("/notifications", notificationHandler.Routes())
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting API server", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

// newMailer picks the email transport: dev logging, MailerSend when an API
// key is configured, plain SMTP otherwise.
func newMailer(cfg *config.Config) mailer.Service {
	if cfg.Email.DevMode {
		return mailer.NewDevMailer()
	}
	if cfg.Email.MailerSendKey != "" {
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.SMTPFromName, cfg.Email.SMTPFrom)
	}
	return mailer.NewSMTPMailer(
		cfg.Email.SMTPHost, cfg.Email.SMTPPort,
		cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass,
		cfg.Email.SMTPUseTLS,
	)
}
