package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-settlement-engine/config"
	"trade-settlement-engine/internal/adapter/events"
	httpHandler "trade-settlement-engine/internal/adapter/http/handler"
	pgStorage "trade-settlement-engine/internal/adapter/storage/postgres"
	redisStorage "trade-settlement-engine/internal/adapter/storage/redis"
	"trade-settlement-engine/internal/core/ports"
	"trade-settlement-engine/internal/service"
	"trade-settlement-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Trade Settlement Engine")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	clientRepo := pgStorage.NewClientRepo(pool)
	orderRepo := pgStorage.NewOrderRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	keyCache := redisStorage.NewOrderKeyCache(rdb)

	// Initialize Kafka publisher (nil when disabled)
	var publisher ports.EventPublisher
	if kp := events.NewKafkaPublisher(cfg.Events, log); kp != nil {
		defer kp.Close()
		publisher = kp
	}

	// Initialize business services
	validator := service.NewOrderValidator(cfg.Settlement.Floor())
	delay := service.RandomDelay(cfg.Settlement.DelayMin, cfg.Settlement.DelayMax)
	settlementSvc := service.NewSettlementService(
		clientRepo,
		orderRepo,
		keyCache,
		publisher,
		transactor,
		validator,
		delay,
		cfg.Settlement.MaxAttempts,
		log,
	)
	clientSvc := service.NewClientService(clientRepo, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		ClientSvc:      clientSvc,
		SettlementSvc:  settlementSvc,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
