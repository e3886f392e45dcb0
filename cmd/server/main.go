// Command server runs the subscription-tracker auth API.
//
// @title        Subscription Tracker Auth API
// @version      1.0
// @description  Authentication and session-lifecycle service: registration, login, token refresh, and password management.
//
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/subtrackr/subscription-tracker/internal/api"
	"github.com/subtrackr/subscription-tracker/internal/core/ports"
	"github.com/subtrackr/subscription-tracker/internal/core/ratelimit"
	"github.com/subtrackr/subscription-tracker/internal/infrastructure/config"
	mongodb "github.com/subtrackr/subscription-tracker/internal/infrastructure/db/mongo"
	redisdb "github.com/subtrackr/subscription-tracker/internal/infrastructure/db/redis"
	"github.com/subtrackr/subscription-tracker/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	if cfg.Auth.JWTSecret == "" {
		if cfg.Env != "development" {
			log.Fatal().Msg("JWT_SECRET is required outside development")
		}
		log.Warn().Msg("JWT_SECRET not set, using an insecure development secret")
		cfg.Auth.JWTSecret = "insecure-dev-secret"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- MongoDB (user record store) ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	users := mongodb.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("mongo index creation failed")
	}

	// --- Redis (shared rate-limit counters) ---
	// Optional: without Redis the limiter falls back to process-local
	// counters, which is fine for a single instance.
	var counters ports.CounterStore
	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-memory rate-limit counters")
		counters = ratelimit.NewMemoryCounterStore()
	} else {
		defer rdb.Close()
		counters = redisdb.NewCounterStore(rdb)
	}

	e := api.NewRouter(api.Deps{
		Users:    users,
		Counters: counters,
		Mongo:    db,
		Redis:    rdb,
		Config:   cfg,
		Log:      log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
