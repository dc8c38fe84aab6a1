package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/debriefhub/debriefhub/internal/ai"
	"github.com/debriefhub/debriefhub/internal/config"
	"github.com/debriefhub/debriefhub/internal/crm"
	"github.com/debriefhub/debriefhub/internal/database"
	"github.com/debriefhub/debriefhub/internal/events"
	"github.com/debriefhub/debriefhub/internal/handlers"
	"github.com/debriefhub/debriefhub/internal/repositories"
	"github.com/debriefhub/debriefhub/internal/scheduler"
	"github.com/debriefhub/debriefhub/internal/services"
	"github.com/debriefhub/debriefhub/internal/ws"
)

func main() {
	ctx := context.Background()

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Database connections
	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create postgres pool: %v", err)
	}
	defer postgresPool.Close()

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to create redis client: %v", err)
	}
	defer redisClient.Close()

	// Event publisher. NATS being down degrades to no-op rather than
	// blocking startup.
	var publisher events.Publisher
	natsPublisher, err := events.NewNATSPublisher(cfg.NATSURL, logger)
	if err != nil {
		logger.Warn("NATS unavailable, events disabled", "error", err)
		publisher = events.NoopPublisher{}
	} else {
		publisher = natsPublisher
		defer natsPublisher.Close()
	}

	// CRM clients for every configured system
	crmClients, err := crm.NewClients(cfg.CRM, logger)
	if err != nil {
		log.Fatalf("Failed to build CRM clients: %v", err)
	}
	logger.Info("CRM clients configured", "count", len(crmClients))

	// Repositories
	userRepo := repositories.NewPostgresUserRepository(postgresPool)
	meetingRepo := repositories.NewPostgresMeetingRepository(postgresPool)
	leadRepo := repositories.NewPostgresLeadRepository(postgresPool)
	debriefingRepo := repositories.NewPostgresDebriefingRepository(postgresPool)
	validationRepo := repositories.NewPostgresValidationRepository(postgresPool)
	syncRecordRepo := repositories.NewPostgresSyncRecordRepository(postgresPool)
	emailRepo := repositories.NewPostgresEmailRepository(postgresPool)
	sessionRepo := repositories.NewRedisSessionRepository(redisClient)
	trackingRepo := repositories.NewRedisTrackingRepository(redisClient)
	cache := repositories.NewRedisCache(redisClient)

	// Services
	aiClient := ai.NewClient(cfg.AIEndpoint, cfg.AIAPIKey, cfg.AIModel, logger)
	authService := services.NewAuthService(userRepo, sessionRepo, cfg.JWTSecret, cfg.JWTExpiry)
	meetingService := services.NewMeetingService(meetingRepo, logger)
	tracker := services.NewSyncTracker(trackingRepo, meetingRepo, logger)
	syncService := services.NewSyncService(
		crmClients, syncRecordRepo, validationRepo, debriefingRepo,
		meetingRepo, leadRepo, cache, tracker, publisher, logger,
	)
	approvalService := services.NewApprovalService(validationRepo, syncRecordRepo, syncService, logger)
	debriefingService := services.NewDebriefingService(
		debriefingRepo, validationRepo, meetingRepo, aiClient, publisher, logger,
	)
	emailService := services.NewEmailService(emailRepo, validationRepo, logger)
	analyticsService := services.NewAnalyticsService(postgresPool)

	// Background jobs
	jobs := scheduler.New(debriefingService, emailService, meetingService, nil, logger)
	jobs.Start(ctx)
	defer jobs.Stop()

	// HTTP server
	router := handlers.NewRouter(
		authService,
		handlers.NewAuthHandler(authService),
		handlers.NewMeetingHandler(meetingService),
		handlers.NewDebriefingHandler(debriefingService),
		handlers.NewSyncHandler(syncService, approvalService, tracker, syncRecordRepo),
		handlers.NewEmailHandler(emailService),
		handlers.NewAnalyticsHandler(analyticsService),
		ws.NewDebriefingHandler(debriefingService, logger),
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	logger.Info("starting server", "port", cfg.ServerPort)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	logger.Info("server stopped gracefully")
}
