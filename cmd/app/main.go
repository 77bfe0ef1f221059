// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"

	"telegram-medkit/internal/application"
	"telegram-medkit/internal/config"
	tele "telegram-medkit/internal/infra/adapters/telegram"
	"telegram-medkit/internal/infra/db/csvstore"
	httpapi "telegram-medkit/internal/infra/http"
	"telegram-medkit/internal/infra/i18n"
	"telegram-medkit/internal/infra/logging"
	"telegram-medkit/internal/infra/metrics"
	"telegram-medkit/internal/infra/ratelimit"
	red "telegram-medkit/internal/infra/redis"
	"telegram-medkit/internal/infra/sched"
	"telegram-medkit/internal/infra/worker"
	"telegram-medkit/internal/usecase"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("medkit bot stopped")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("version", version).
		Str("token", logging.Redact(cfg.Bot.Token, cfg.Runtime.Dev)).
		Str("medicines_file", cfg.Storage.MedicinesFile).
		Str("groups_file", cfg.Storage.GroupsFile).
		Msg("starting medkit bot")

	metrics.MustRegister()
	metrics.SetBuildInfo(version, cfg.Bot.Language)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	translator, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Language)
	if err != nil {
		return fmt.Errorf("i18n: %w", err)
	}

	// ---- Redis (optional) ----
	var (
		storeOpts   []csvstore.Option
		rateLimiter tele.RateLimiter
		checks      = map[string]httpapi.Pinger{}
	)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
		storeOpts = append(storeOpts, csvstore.WithLocker(red.NewLocker(redisClient), cfg.Storage.LockTTL))
		rateLimiter = red.NewRateLimiter(redisClient, cfg.RateLimit.PerMinute, time.Minute)
		checks["redis"] = redisClient
		logger.Info().Msg("redis enabled: cross-process store lock and shared rate limit")
	} else {
		rateLimiter = ratelimit.NewBucketLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
	}

	// ---- Repositories ----
	medRepo, err := csvstore.NewMedicineRepo(cfg.Storage.MedicinesFile, logger, storeOpts...)
	if err != nil {
		return fmt.Errorf("medicines store: %w", err)
	}
	groupRepo, err := csvstore.NewGroupRepo(cfg.Storage.GroupsFile, logger, storeOpts...)
	if err != nil {
		return fmt.Errorf("groups store: %w", err)
	}
	checks["medicines"] = medRepo
	checks["groups"] = groupRepo

	// ---- Telegram ----
	botAPI, err := tele.NewBotAPI(&cfg.Bot)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	logger.Info().Str("bot", botAPI.Self.UserName).Msg("authorized on telegram")
	sender := tele.NewSender(botAPI)

	// ---- Use cases ----
	groupUC := usecase.NewGroupUseCase(groupRepo, logger)
	inventoryUC := usecase.NewInventoryUseCase(medRepo, logger)
	expiryUC := usecase.NewExpiryUseCase(medRepo, groupRepo, sender, translator, loc, logger)

	// ---- Facade ----
	facade := application.NewBotFacade(groupUC, inventoryUC, expiryUC, translator)

	pool := worker.NewPool(cfg.Bot.Workers, 32, logger)
	pool.Start(ctx)
	defer pool.Stop()

	botAdapter, err := tele.NewRealTelegramBotAdapter(botAPI, facade, rateLimiter, pool, logger)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	if err := botAdapter.SetMenuCommands(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to set menu commands")
	}
	go func() {
		if err := botAdapter.StartPolling(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("telegram polling stopped")
			stop()
		}
	}()

	// ---- Expiry worker (daily) ----
	expiryWorker := sched.NewExpiryWorker(loc, cfg.Scheduler.CheckTime, expiryUC, logger)
	go func() {
		if err := expiryWorker.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("expiry worker stopped")
			stop()
		}
	}()

	// ---- Keep-alive HTTP server ----
	srv := httpapi.NewServer(&cfg.Health, checks, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	return nil
}
