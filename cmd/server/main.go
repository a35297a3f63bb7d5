package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ligadigital/membercard/internal/card"
	"github.com/ligadigital/membercard/internal/config"
	"github.com/ligadigital/membercard/internal/events"
	"github.com/ligadigital/membercard/internal/health"
	"github.com/ligadigital/membercard/internal/logger"
	"github.com/ligadigital/membercard/internal/member"
	"github.com/ligadigital/membercard/internal/metrics"
	"github.com/ligadigital/membercard/internal/middleware"
	"github.com/ligadigital/membercard/internal/repository"
	"github.com/ligadigital/membercard/internal/verification"
)

func main() {
	cfg := config.Load()

	if cfg.Signing.Secret == "" {
		log.Fatal("TOKEN_SIGNING_SECRET environment variable is required")
	}

	appLogger := logger.New(logger.DefaultConfig())

	dbPool, err := setupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	// sqlx connection for the scan audit repository
	sqlDB, err := sqlx.Connect("pgx", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect scan audit store: %v", err)
	}
	defer sqlDB.Close()

	// Optional redis client backing the replay guard
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	// Repositories
	memberRepo := repository.NewMemberRepository(dbPool)
	cardRepo := repository.NewCardRepository(dbPool)
	suspensionRepo := repository.NewSuspensionRepository(dbPool)
	scanRepo := repository.NewScanEventRepository(sqlDB)

	// Event bus with bounded retention, plus the scan audit persister
	eventStore := events.NewMemoryEventStore(events.DefaultStoreCapacity)
	eventBus := events.NewEventBus(eventStore)
	unsubscribePersister := eventBus.Subscribe(newScanPersister(scanRepo, appLogger))
	defer unsubscribePersister()

	// Domain services
	generator, err := card.NewGenerator(card.GeneratorConfig{
		SchemePrefix: cfg.Card.SchemePrefix,
		MaxAttempts:  cfg.Card.MaxAttempts,
		OnRetry:      metrics.CardGenerationRetriesTotal.Inc,
	})
	if err != nil {
		log.Fatalf("Invalid card generator configuration: %v", err)
	}

	cardService := card.NewService(card.ServiceConfig{
		MemberRepository: memberRepo,
		CardRepository:   cardRepo,
		Generator:        generator,
		EventBus:         eventBus,
		Logger:           appLogger,
	})

	memberService := member.NewService(member.ServiceConfig{
		MemberRepository:     memberRepo,
		SuspensionRepository: suspensionRepo,
		Logger:               appLogger,
	})

	codec, err := verification.NewCodec(verification.CodecConfig{
		Secret:   cfg.Signing.Secret,
		KeyID:    cfg.Signing.KeyID,
		Issuer:   cfg.Signing.Issuer,
		TokenTTL: cfg.Signing.TokenTTL,
	})
	if err != nil {
		log.Fatalf("Invalid token codec configuration: %v", err)
	}

	var replayGuard verification.ReplayGuard
	if redisClient != nil {
		replayGuard = verification.NewRedisReplayGuard(redisClient)
	}

	verificationService := verification.NewService(verification.ServiceConfig{
		MemberRepository:     memberRepo,
		CardRepository:       cardRepo,
		SuspensionRepository: suspensionRepo,
		ScanEventRepository:  scanRepo,
		Codec:                codec,
		ReplayGuard:          replayGuard,
		EventBus:             eventBus,
		Logger:               appLogger,
	})

	// Handlers
	memberHandler := member.NewHandler(memberService, appLogger)
	cardHandler := card.NewHandler(cardService, appLogger)
	verificationHandler := verification.NewHandler(verificationService, appLogger)

	scannerAuth := middleware.NewScannerAuthMiddleware(cfg.Scanner.APIKeyHash)
	scanRateLimit := middleware.NewScanRateLimiter(cfg.Scanner.ScanLimit, cfg.Scanner.ScanWindow)

	healthHandler := health.NewHandler(health.Config{
		DBPool:      dbPool,
		RedisClient: redisClient,
	})

	dbCollector := metrics.NewDBStatsCollector(dbPool, sqlDB.DB, appLogger)
	dbCollector.Start(15 * time.Second)
	defer dbCollector.Stop()

	// Router
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.StructuredLogger(appLogger))
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://ligadigital.app", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Scanner-ID"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/health/ready", healthHandler.Readiness)
	r.Get("/health/live", healthHandler.Liveness)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		member.RegisterRoutes(r, memberHandler)
		card.RegisterRoutes(r, cardHandler)
		verification.RegisterRoutes(r, verificationHandler,
			scannerAuth.Authenticate,
			scanRateLimit.RateLimitScan,
		)
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	healthHandler.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	appLogger.Info("Server exited")
}

// newScanPersister returns an event handler that writes scan outcomes into
// the audit trail. Persistence failures are logged, never propagated; a
// broken audit store must not reject scans at the gate.
func newScanPersister(scanRepo repository.ScanEventRepository, appLogger *slog.Logger) events.EventHandler {
	return func(event events.Event) {
		if event.Type != events.EventTypeScanVerified && event.Type != events.EventTypeScanRejected {
			return
		}

		var payload events.ScanResultEvent
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			appLogger.Warn("Failed to decode scan event payload", "error", err)
			return
		}

		record := &repository.ScanEvent{
			ID:        uuid.New(),
			ScannerID: payload.ScannerID,
			TokenKind: payload.TokenKind,
			Result:    payload.Result,
			ScannedAt: event.Timestamp,
		}
		if payload.MemberID != "" {
			if memberID, err := uuid.Parse(payload.MemberID); err == nil {
				record.MemberID = &memberID
			}
		}
		if payload.Reason != "" {
			reason := payload.Reason
			record.Reason = &reason
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := scanRepo.Insert(ctx, record); err != nil {
			appLogger.Warn("Failed to persist scan event", "error", err)
		}
	}
}

// setupDatabase creates and configures the database connection pool
func setupDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
