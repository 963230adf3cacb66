package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/rryowa/authsession/internal/api"
	"github.com/rryowa/authsession/internal/controller"
	"github.com/rryowa/authsession/internal/migrations"
	"github.com/rryowa/authsession/internal/realtime"
	"github.com/rryowa/authsession/internal/service"
	"github.com/rryowa/authsession/internal/storage"
	"github.com/rryowa/authsession/internal/storage/memory"
	"github.com/rryowa/authsession/internal/storage/postgres"
	"github.com/rryowa/authsession/internal/storage/redis"
	"github.com/rryowa/authsession/internal/util"
)

func main() {
	ctx := context.Background()
	logger := util.NewZapLogger()

	db, dbCleanup, err := util.NewDBConnection(logger)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	if err := migrations.RunMigrations(db, logger); err != nil {
		logger.Fatal(zap.Error(err))
	}
	cleanupFuncs := []func(){dbCleanup}

	tokenService := service.NewTokenService(util.NewTokenConfig())
	sessionConfig := util.NewSessionConfig()

	var activity storage.ActivityStore
	switch sessionConfig.IdleStore {
	case "redis":
		redisClient, redisCleanup, err := util.NewRedisClient(logger, util.NewRedisConfig())
		if err != nil {
			logger.Fatal(zap.Error(err))
		}
		cleanupFuncs = append(cleanupFuncs, redisCleanup)
		activity = redis.NewActivityStore(redisClient, tokenService.RefreshTTL())
	default:
		activity = memory.NewActivityStore()
	}
	logger.Infow("idle tracker configured", "store", sessionConfig.IdleStore, "timeout", sessionConfig.IdleTimeout)

	webhookService := service.NewWebhookService(logger, util.GetWebhookURL())
	authService := service.NewAuthService(
		tokenService,
		postgres.NewStorage(db),
		activity,
		webhookService,
		sessionConfig,
		logger,
	)

	hub := realtime.NewHub(logger)
	authService.SetDisconnector(hub)
	gateway := realtime.NewGateway(authService, hub, sessionConfig.HandshakeTimeout, util.GetAllowedOrigins(), logger)

	ctrl := controller.NewController(logger, authService, util.NewCookieConfig())

	apiServer := api.NewAPI(ctrl, authService, gateway, util.NewServerConfig(), logger, cleanupFuncs)
	apiServer.Run(ctx)
}
