package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clinicore/notify-engine/internal/config"
	"github.com/clinicore/notify-engine/internal/dispatch"
	"github.com/clinicore/notify-engine/internal/handler"
	"github.com/clinicore/notify-engine/internal/infra/postgresql"
	"github.com/clinicore/notify-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/clinicore/notify-engine/internal/infra/redis"
	"github.com/clinicore/notify-engine/internal/observability"
	"github.com/clinicore/notify-engine/internal/repository"
	"github.com/clinicore/notify-engine/internal/service"
	"github.com/clinicore/notify-engine/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()

	channelRepo := repository.NewGormChannelRepo(db)

	activationLock, err := infraredis.NewActivationLock(rdb)
	if err != nil {
		logger.Fatal("activation lock init failed", zap.Error(err))
	}

	channelService, err := service.NewChannelService(channelRepo, activationLock, logger)
	if err != nil {
		logger.Fatal("channel service init failed", zap.Error(err))
	}
	channelService.SetMetrics(metrics)

	dispatcher := dispatch.NewDispatcher(cfg.DispatchTimeout())

	dispatchService, err := service.NewDispatchService(channelRepo, dispatcher, logger)
	if err != nil {
		logger.Fatal("dispatch service init failed", zap.Error(err))
	}
	dispatchService.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if err := handler.RegisterChannelRoutes(app, channelService, dispatchService); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		logger.Info("notify-engine api started", zap.Int("port", cfg.APIPort))
		return app.Listen(addr)
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down")
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", zap.Error(err))
	}
}
