package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/keepalive-app/keepalive/internal/config"
	"github.com/keepalive-app/keepalive/internal/infra/cache"
	"github.com/keepalive-app/keepalive/internal/modules/serializer"
	"github.com/keepalive-app/keepalive/internal/modules/service"
	"github.com/keepalive-app/keepalive/internal/pkg/liveness"
)

type PingHandler struct {
	svc     service.PingService
	limiter *cache.PingLimiter
	cfg     *config.Config
	log     *zap.Logger
}

func NewPingHandler(s service.PingService, limiter *cache.PingLimiter, cfg *config.Config, log *zap.Logger) *PingHandler {
	return &PingHandler{
		svc:     s,
		limiter: limiter,
		cfg:     cfg,
		log:     log,
	}
}

// PingReq is the optional heartbeat body. A missing or unparseable body
// degrades to the zero value, which reads as a success ping.
type PingReq struct {
	Status    *string `json:"status"`
	ProjectID string  `json:"project_id"`
}

// Ping godoc
//
//	@Summary		Record a heartbeat ping
//	@Description	Authenticates the bearer token and records one heartbeat for the matching project. An optional body may carry an explicit outcome; absent or "ok" counts as success.
//	@Tags			ping
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.PingReq	false	"Optional ping outcome"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.PingAck
//	@Failure		401	{object}	serializer.PingAck
//	@Failure		403	{object}	serializer.PingAck
//	@Failure		429	{object}	serializer.PingAck
//	@Failure		500	{object}	serializer.PingAck
//	@Router			/ping [post]
func (h *PingHandler) Ping(c *gin.Context) {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		c.JSON(http.StatusUnauthorized, serializer.PingErr("Missing or malformed Authorization header"))
		return
	}

	// The whole ingestion (auth lookup + one conditional update) runs under
	// one short deadline.
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.Ping.Timeout)
	defer cancel()

	if !h.limiter.Allow(ctx, token) {
		c.JSON(http.StatusTooManyRequests, serializer.PingErr("Too Many Requests"))
		return
	}

	project, err := h.svc.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			c.JSON(http.StatusForbidden, serializer.PingErr("Invalid API Token"))
			return
		}
		h.log.Sugar().Errorw("ping authentication lookup failed", "err", err)
		c.JSON(http.StatusInternalServerError, serializer.PingErr("Internal Server Error"))
		return
	}

	// A body is optional, and a body-encoding slip must not drop the ping:
	// parse failures fall back to the default success outcome.
	var req PingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		req = PingReq{}
	}

	// Payload-level cross-check used by some CI callers. A mismatch gets
	// the same response as a bad token.
	if req.ProjectID != "" && req.ProjectID != project.PublicID {
		c.JSON(http.StatusForbidden, serializer.PingErr("Invalid API Token"))
		return
	}

	span := trace.SpanFromContext(c.Request.Context())
	if span.SpanContext().IsValid() {
		span.SetAttributes(attribute.String("project_id", project.PublicID))
	}

	outcome := liveness.OutcomeFromReport(req.Status)
	if _, err := h.svc.Record(ctx, project, outcome, time.Now().UTC()); err != nil {
		h.log.Sugar().Errorw("ping record failed", "project_id", project.PublicID, "err", err)
		c.JSON(http.StatusInternalServerError, serializer.PingErr("Internal Server Error"))
		return
	}

	// Recording a failure outcome is still a successful ingestion, and so
	// is a stale replay that left storage untouched.
	c.JSON(http.StatusOK, serializer.PingRecorded())
}

// bearerToken extracts the credential from an Authorization header. Only the
// exact "Bearer <token>" shape is accepted.
func bearerToken(header string) (string, bool) {
	const scheme = "Bearer "
	if !strings.HasPrefix(header, scheme) {
		return "", false
	}
	token := strings.TrimPrefix(header, scheme)
	if token == "" || strings.ContainsRune(token, ' ') {
		return "", false
	}
	return token, true
}
