package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/keepalive-app/keepalive/internal/config"
	"github.com/keepalive-app/keepalive/internal/infra/cache"
	"github.com/keepalive-app/keepalive/internal/modules/model"
	"github.com/keepalive-app/keepalive/internal/modules/serializer"
	"github.com/keepalive-app/keepalive/internal/modules/service"
	"github.com/keepalive-app/keepalive/internal/pkg/liveness"
)

// MockPingService is a mock implementation of PingService
type MockPingService struct {
	mock.Mock
}

func (m *MockPingService) Authenticate(ctx context.Context, token string) (*model.Project, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockPingService) Record(ctx context.Context, p *model.Project, outcome liveness.Outcome, now time.Time) (bool, error) {
	args := m.Called(ctx, p, outcome, now)
	return args.Bool(0), args.Error(1)
}

func testPingConfig() *config.Config {
	return &config.Config{
		Ping: config.PingCfg{
			Window:  96 * time.Hour,
			Cadence: 84 * time.Hour,
			Timeout: 5 * time.Second,
		},
	}
}

// noopLimiter is disabled (no Redis client), so every ping passes.
func noopLimiter() *cache.PingLimiter {
	return cache.NewPingLimiter(nil, 0, 0, zap.NewNop())
}

func setupPingRouter(svc service.PingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewPingHandler(svc, noopLimiter(), testPingConfig(), zap.NewNop())
	r.POST("/api/ping", h.Ping)
	return r
}

func postPing(t *testing.T, router *gin.Engine, authHeader string, body []byte) (*httptest.ResponseRecorder, serializer.PingAck) {
	t.Helper()

	var rd *bytes.Buffer
	if body == nil {
		rd = bytes.NewBuffer(nil)
	} else {
		rd = bytes.NewBuffer(body)
	}
	req := httptest.NewRequest("POST", "/api/ping", rd)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var ack serializer.PingAck
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &ack))
	return w, ack
}

func TestPingHandler_MalformedAuthorization(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Token kal_live_xyz"},
		{name: "bearer with empty token", header: "Bearer "},
		{name: "token with embedded space", header: "Bearer kal_live x"},
		{name: "lowercase scheme", header: "bearer kal_live_xyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockPingService{} // never reached
			router := setupPingRouter(svc)

			w, ack := postPing(t, router, tt.header, nil)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, ack.Success)
			assert.Equal(t, "Missing or malformed Authorization header", ack.Error)
			svc.AssertExpectations(t)
		})
	}
}

func TestPingHandler_InvalidToken(t *testing.T) {
	svc := &MockPingService{}
	svc.On("Authenticate", mock.Anything, "wrong_token").Return(nil, service.ErrInvalidToken)
	router := setupPingRouter(svc)

	w, ack := postPing(t, router, "Bearer wrong_token", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, ack.Success)
	assert.Equal(t, "Invalid API Token", ack.Error)
	assert.Empty(t, ack.Message, "no project data may leak")
	svc.AssertExpectations(t)
}

// overLimitStore reports every window as already exhausted.
type overLimitStore struct{}

func (overLimitStore) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1000)
	return cmd
}

func (overLimitStore) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func TestPingHandler_RateLimited(t *testing.T) {
	// The limiter runs before authentication, so the service is never reached.
	svc := &MockPingService{}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	limiter := cache.NewPingLimiter(overLimitStore{}, 60, time.Minute, zap.NewNop())
	h := NewPingHandler(svc, limiter, testPingConfig(), zap.NewNop())
	router.POST("/api/ping", h.Ping)

	w, ack := postPing(t, router, "Bearer kal_live_0123456789abcdefghijklmnopqrstuv", nil)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.False(t, ack.Success)
	assert.Equal(t, "Too Many Requests", ack.Error)
	svc.AssertExpectations(t)
}

func TestPingHandler_SuccessWithoutBody(t *testing.T) {
	token := "kal_live_0123456789abcdefghijklmnopqrstuv"
	project := &model.Project{ID: uuid.New(), PublicID: "kp_abcdef123456", SecretToken: token, Status: liveness.StatusPending}

	svc := &MockPingService{}
	svc.On("Authenticate", mock.Anything, token).Return(project, nil)
	svc.On("Record", mock.Anything, project, liveness.OutcomeSuccess, mock.AnythingOfType("time.Time")).Return(true, nil)
	router := setupPingRouter(svc)

	w, ack := postPing(t, router, "Bearer "+token, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ack.Success)
	assert.Equal(t, "Ping recorded", ack.Message)
	svc.AssertExpectations(t)
}

func TestPingHandler_OutcomeFromBody(t *testing.T) {
	token := "kal_live_0123456789abcdefghijklmnopqrstuv"

	tests := []struct {
		name    string
		body    []byte
		outcome liveness.Outcome
	}{
		{
			name:    "explicit ok",
			body:    []byte(`{"status":"ok"}`),
			outcome: liveness.OutcomeSuccess,
		},
		{
			name:    "explicit failure flips to dead",
			body:    []byte(`{"status":"failed"}`),
			outcome: liveness.OutcomeFailure,
		},
		{
			name:    "empty object defaults to success",
			body:    []byte(`{}`),
			outcome: liveness.OutcomeSuccess,
		},
		{
			// A body-encoding slip must not penalize a job that reached us.
			name:    "malformed json degrades to success",
			body:    []byte(`{"status": "fail`),
			outcome: liveness.OutcomeSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project := &model.Project{ID: uuid.New(), PublicID: "kp_abcdef123456", SecretToken: token}

			svc := &MockPingService{}
			svc.On("Authenticate", mock.Anything, token).Return(project, nil)
			svc.On("Record", mock.Anything, project, tt.outcome, mock.AnythingOfType("time.Time")).Return(true, nil)
			router := setupPingRouter(svc)

			w, ack := postPing(t, router, "Bearer "+token, tt.body)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.True(t, ack.Success)
			svc.AssertExpectations(t)
		})
	}
}

func TestPingHandler_ProjectIDCrossCheck(t *testing.T) {
	token := "kal_live_0123456789abcdefghijklmnopqrstuv"

	t.Run("matching project_id accepted", func(t *testing.T) {
		project := &model.Project{ID: uuid.New(), PublicID: "kp_abcdef123456", SecretToken: token}

		svc := &MockPingService{}
		svc.On("Authenticate", mock.Anything, token).Return(project, nil)
		svc.On("Record", mock.Anything, project, liveness.OutcomeSuccess, mock.AnythingOfType("time.Time")).Return(true, nil)
		router := setupPingRouter(svc)

		w, _ := postPing(t, router, "Bearer "+token, []byte(`{"project_id":"kp_abcdef123456"}`))
		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("mismatched project_id rejected without recording", func(t *testing.T) {
		project := &model.Project{ID: uuid.New(), PublicID: "kp_abcdef123456", SecretToken: token}

		svc := &MockPingService{}
		svc.On("Authenticate", mock.Anything, token).Return(project, nil)
		router := setupPingRouter(svc)

		w, ack := postPing(t, router, "Bearer "+token, []byte(`{"project_id":"kp_other9999999"}`))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Invalid API Token", ack.Error)
		svc.AssertExpectations(t)
	})
}

func TestPingHandler_StaleReplayStillAcknowledged(t *testing.T) {
	token := "kal_live_0123456789abcdefghijklmnopqrstuv"
	project := &model.Project{ID: uuid.New(), PublicID: "kp_abcdef123456", SecretToken: token}

	svc := &MockPingService{}
	svc.On("Authenticate", mock.Anything, token).Return(project, nil)
	svc.On("Record", mock.Anything, project, liveness.OutcomeSuccess, mock.AnythingOfType("time.Time")).Return(false, nil)
	router := setupPingRouter(svc)

	w, ack := postPing(t, router, "Bearer "+token, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ack.Success)
	svc.AssertExpectations(t)
}

func TestPingHandler_InternalErrors(t *testing.T) {
	token := "kal_live_0123456789abcdefghijklmnopqrstuv"

	t.Run("auth lookup failure", func(t *testing.T) {
		svc := &MockPingService{}
		svc.On("Authenticate", mock.Anything, token).Return(nil, errors.New("connection refused"))
		router := setupPingRouter(svc)

		w, ack := postPing(t, router, "Bearer "+token, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal Server Error", ack.Error)
		assert.NotContains(t, ack.Error, "connection refused", "internal detail must not leak")
		svc.AssertExpectations(t)
	})

	t.Run("record failure", func(t *testing.T) {
		project := &model.Project{ID: uuid.New(), PublicID: "kp_abcdef123456", SecretToken: token}

		svc := &MockPingService{}
		svc.On("Authenticate", mock.Anything, token).Return(project, nil)
		svc.On("Record", mock.Anything, project, liveness.OutcomeSuccess, mock.AnythingOfType("time.Time")).
			Return(false, errors.New("write failed"))
		router := setupPingRouter(svc)

		w, ack := postPing(t, router, "Bearer "+token, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal Server Error", ack.Error)
		svc.AssertExpectations(t)
	})
}
