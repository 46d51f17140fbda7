package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"fluxserver/internal/cache"
	"fluxserver/internal/generator"
	"fluxserver/internal/genworker"
	"fluxserver/internal/infra"
	"fluxserver/internal/kv"
	"fluxserver/internal/queue"
	"fluxserver/internal/registry"
	"fluxserver/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: redis connection failed")
	}
	defer redisClient.Close()

	outputDir := cfg.OutputDir
	if !filepath.IsAbs(outputDir) {
		if abs, err := filepath.Abs(outputDir); err == nil {
			outputDir = abs
		}
	}
	fileStore, err := storage.NewFileStore(outputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	store := kv.NewRedisStore(redisClient)
	pool := genworker.New(genworker.Config{
		Queue:       queue.NewRedisQueue(redisClient, cfg.QueueName),
		Registry:    registry.New(store, cfg.TaskTTL, logger),
		Cache:       cache.New(store, cfg.CacheTTL, logger),
		Store:       fileStore,
		Generator:   generator.NewSynthetic(),
		Concurrency: cfg.WorkerConcurrency,
		Logger:      logger,
	})

	if err := pool.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
