package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/keepalive-app/keepalive/docs"
	"github.com/keepalive-app/keepalive/internal/config"
	"github.com/keepalive-app/keepalive/internal/middleware"
	"github.com/keepalive-app/keepalive/internal/modules/handler"
	"github.com/keepalive-app/keepalive/internal/modules/serializer"
)

type RouterDeps struct {
	Config         *config.Config
	Log            *zap.Logger
	PingHandler    *handler.PingHandler
	ProjectHandler *handler.ProjectHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	// Initialize logger for serializer package
	serializer.SetLogger(d.Log)

	r := gin.New()
	r.Use(gin.Recovery())

	if d.Config.Telemetry.Enabled && d.Config.Telemetry.OtlpEndpoint != "" {
		r.Use(middleware.OtelTracing(d.Config.App.Name))
		r.Use(middleware.TraceID())
	}

	r.Use(middleware.ZapLogger(d.Log))

	// health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "ok"}) })

	// swagger
	r.GET("/swagger", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Heartbeat ingestion. Authenticated by the project's own bearer token
	// inside the handler, not by the dashboard middleware.
	r.POST("/api/ping", d.PingHandler.Ping)

	v1 := r.Group("/api/v1")
	{
		v1.Use(middleware.DashboardAuth(d.Config))

		projects := v1.Group("/projects")
		{
			projects.GET("", d.ProjectHandler.GetProjects)
			projects.POST("", d.ProjectHandler.CreateProject)
			projects.GET("/:public_id", d.ProjectHandler.GetProject)
			projects.DELETE("/:public_id", d.ProjectHandler.DeleteProject)
		}
	}

	return r
}
