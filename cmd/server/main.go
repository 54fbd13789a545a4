package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/santoshpalla27/user-app-redis-mysql/pkg/cluster"
	"github.com/santoshpalla27/user-app-redis-mysql/pkg/config"
	"github.com/santoshpalla27/user-app-redis-mysql/pkg/logger"
	"github.com/santoshpalla27/user-app-redis-mysql/pkg/metrics"
	"github.com/santoshpalla27/user-app-redis-mysql/pkg/service"
	"github.com/santoshpalla27/user-app-redis-mysql/pkg/sqlstore"
	"github.com/santoshpalla27/user-app-redis-mysql/pkg/transport"
)

func main() {
	// A .env file is a convenience for local runs; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	zl := logger.Configure(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal().Err(err).Msg("server exited")
	}
}

// run is the composition root: every adapter is constructed here and handed
// down by interface, never through package globals.
func run(ctx context.Context, cfg *config.Config, zl zerolog.Logger) error {
	provider, err := metrics.Setup(cfg.Metrics)
	if err != nil {
		return err
	}

	sqlStore, err := sqlstore.Open(cfg.SQL, zl, provider)
	if err != nil {
		return err
	}
	defer sqlStore.Close()
	if err := sqlStore.EnsureSchema(ctx); err != nil {
		return err
	}

	adapter := cluster.New(cfg.Redis, zl, provider)
	defer adapter.Close()
	if err := adapter.Init(ctx); err != nil {
		// Degraded mode: the server stays up, redis routes answer 503
		// until an operator-triggered or automatic reconnect succeeds.
		zl.Error().Err(err).Msg("redis cluster adapter unavailable")
	}

	redisStore := cluster.NewUserStore(adapter, zl)
	users := service.NewUsers(sqlStore, redisStore, zl)
	handlers := transport.NewHandlers(sqlStore, sqlStore, redisStore, adapter, users)

	return transport.StartHTTPServer(ctx, cfg.Port, handlers.Router(), zl)
}
