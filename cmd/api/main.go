package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talentbridge/auth-service/internal/api"
	"github.com/talentbridge/auth-service/internal/infrastructure/config"
	mongodb "github.com/talentbridge/auth-service/internal/infrastructure/db/mongo"
	redisdb "github.com/talentbridge/auth-service/internal/infrastructure/db/redis"
	"github.com/talentbridge/auth-service/internal/infrastructure/queue"
	"github.com/talentbridge/auth-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// The logger is not configured yet; this is the one place a plain
		// stderr write is acceptable.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongodb disconnect failed")
		}
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	accounts := mongodb.NewAccountRepository(db)
	events := mongodb.NewAnalyticsRepository(db)
	if err := accounts.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("account index creation failed")
	}
	if err := events.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("event index creation failed")
	}

	dispatcher := queue.NewDispatcher(0, events, log)
	dispatcher.Start(ctx)

	e, err := api.NewRouter(api.Dependencies{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		Events:   events,
		Recorder: dispatcher,
		Logger:   log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("router setup failed")
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting auth service")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
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
