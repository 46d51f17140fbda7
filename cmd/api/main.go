package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fluxserver/internal/adapter"
	"fluxserver/internal/cache"
	"fluxserver/internal/dispatch"
	"fluxserver/internal/generator"
	"fluxserver/internal/http/handlers"
	"fluxserver/internal/http/httpapi"
	"fluxserver/internal/identity"
	"fluxserver/internal/infra"
	"fluxserver/internal/kv"
	"fluxserver/internal/queue"
	"fluxserver/internal/ratelimit"
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

	ctx := context.Background()
	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer redisClient.Close()

	store := kv.NewRedisStore(redisClient)
	reg := registry.New(store, cfg.TaskTTL, logger)

	fileStore, err := storage.NewFileStore(cfg.OutputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	provider, err := resolveIdentity(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure identity provider")
	}

	app := &handlers.App{
		Config:     cfg,
		Logger:     logger,
		Limiter:    ratelimit.New(store, cfg.RateLimitWindow, logger),
		Cache:      cache.New(store, cfg.CacheTTL, logger),
		Registry:   reg,
		Dispatcher: dispatch.New(reg, queue.NewRedisQueue(redisClient, cfg.QueueName), logger),
		Adapters:   adapter.NewLoader(cfg.AdapterDir, logger),
		Identity:   provider,
		Files:      fileStore,
		Generator:  generator.NewSynthetic(),
		Pinger:     store,
	}

	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app))

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// resolveIdentity prefers the database-backed provider when DATABASE_URL is
// set, falling back to the static key list (or the demo keys) otherwise.
func resolveIdentity(ctx context.Context, cfg *infra.Config, logger infra.Logger) (identity.Provider, error) {
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		runner := infra.NewSQLRunner(pool, logger)
		logger.Info().Msg("identity: using database provider")
		return identity.NewPostgresProvider(runner), nil
	}
	if cfg.APIKeys == "" {
		logger.Warn().Msg("identity: no API_KEYS configured, using demo keys")
	}
	return identity.NewStaticProvider(cfg.APIKeys)
}
