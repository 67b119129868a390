package bootstrap

import (
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/keepalive-app/keepalive/internal/config"
	"github.com/keepalive-app/keepalive/internal/infra/cache"
	"github.com/keepalive-app/keepalive/internal/infra/db"
	"github.com/keepalive-app/keepalive/internal/infra/logger"
	"github.com/keepalive-app/keepalive/internal/modules/handler"
	"github.com/keepalive-app/keepalive/internal/modules/model"
	"github.com/keepalive-app/keepalive/internal/modules/repo"
	"github.com/keepalive-app/keepalive/internal/modules/service"
)

func BuildContainer() *do.Injector {
	inj := do.New()

	// config
	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.Load()
	})

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return logger.New(cfg.Log.Level)
	})

	// DB
	do.Provide(inj, func(i *do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		d, err := db.New(cfg)
		if err != nil {
			return nil, err
		}
		// [optional] auto migrate
		if cfg.Database.AutoMigrate {
			_ = d.AutoMigrate(&model.Project{})
		}
		return d, nil
	})

	// Redis (nil when no address is configured; the limiter fails open)
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return cache.New(cfg), nil
	})

	// Ping rate limiter
	do.Provide(inj, func(i *do.Injector) (*cache.PingLimiter, error) {
		cfg := do.MustInvoke[*config.Config](i)
		var store cache.Store
		if rdb := do.MustInvoke[*redis.Client](i); rdb != nil {
			store = rdb
		}
		return cache.NewPingLimiter(
			store,
			cfg.Ping.RateMax,
			cfg.Ping.RatePer,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	// Repo
	do.Provide(inj, func(i *do.Injector) (repo.ProjectRepo, error) {
		return repo.NewProjectRepo(do.MustInvoke[*gorm.DB](i)), nil
	})

	// Service
	do.Provide(inj, func(i *do.Injector) (service.ProjectService, error) {
		return service.NewProjectService(do.MustInvoke[repo.ProjectRepo](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.PingService, error) {
		return service.NewPingService(do.MustInvoke[repo.ProjectRepo](i)), nil
	})

	// Handler
	do.Provide(inj, func(i *do.Injector) (*handler.ProjectHandler, error) {
		return handler.NewProjectHandler(
			do.MustInvoke[service.ProjectService](i),
			do.MustInvoke[*config.Config](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.PingHandler, error) {
		return handler.NewPingHandler(
			do.MustInvoke[service.PingService](i),
			do.MustInvoke[*cache.PingLimiter](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	return inj
}
