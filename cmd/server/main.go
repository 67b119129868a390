package main

//	@title			KeepAlive API
//	@version		1.0
//	@description	Dead-man's-switch heartbeat monitoring service.
//	@schemes		http https
//	@BasePath		/api

//  Bearer at project level (heartbeat ingestion)
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Project secret token (e.g., "Bearer kal_live_xxxx")

//  Service token for the dashboard API
//	@securityDefinitions.apikey	RootAuth
//	@in							header
//	@name						Authorization
//	@description				Service bearer token; owner id travels in X-Owner-ID

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/do"
	"go.uber.org/zap"

	"github.com/keepalive-app/keepalive/internal/bootstrap"
	"github.com/keepalive-app/keepalive/internal/config"
	"github.com/keepalive-app/keepalive/internal/modules/handler"
	"github.com/keepalive-app/keepalive/internal/router"
	"github.com/keepalive-app/keepalive/internal/telemetry"
)

func main() {
	// build dependency injection container
	inj := bootstrap.BuildContainer()

	cfg := do.MustInvoke[*config.Config](inj)
	log := do.MustInvoke[*zap.Logger](inj)

	// Setup OpenTelemetry tracing (using configuration system)
	tp, err := telemetry.SetupTracing(cfg)
	if err != nil {
		log.Sugar().Warnw("failed to setup tracing, continuing without tracing", "err", err)
	} else if tp != nil {
		log.Sugar().Infow("OpenTelemetry tracing enabled", "endpoint", cfg.Telemetry.OtlpEndpoint)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := telemetry.Shutdown(ctx); err != nil {
				log.Sugar().Errorw("failed to shutdown tracer", "err", err)
			}
		}()
	}

	// init gin
	gin.SetMode(cfg.App.Env)

	engine := router.NewRouter(router.RouterDeps{
		Config:         cfg,
		Log:            log,
		PingHandler:    do.MustInvoke[*handler.PingHandler](inj),
		ProjectHandler: do.MustInvoke[*handler.ProjectHandler](inj),
	})

	addr := fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port)
	srv := &http.Server{Addr: addr, Handler: engine}

	go func() {
		log.Sugar().Infow("starting http server", "addr", addr)
		log.Sugar().Infow("liveness policy", "window", cfg.Ping.Window.String(), "cadence", cfg.Ping.Cadence.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Sugar().Fatalw("listen error", "err", err)
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Sugar().Errorw("server shutdown", "err", err)
	}
	log.Sugar().Info("server exited")
}
