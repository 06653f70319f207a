package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medishare/internal/domain/user"
	"medishare/internal/redis"
	"medishare/internal/services"
	"medishare/internal/transport/httpdto"
	medishare_errors "medishare/pkg/errors"
	"medishare/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubResolver struct {
	actor services.Actor
	token string
}

func (r stubResolver) ResolveActor(_ context.Context, token string) (services.Actor, error) {
	if token != r.token {
		return services.Actor{}, medishare_errors.Unauthenticated("Not authorized, token failed")
	}
	return r.actor, nil
}

func TestLocalRateLimiter(t *testing.T) {
	limiter := NewLocalRateLimiter(redis.RateLimitConfig{AuthLimit: 2, AuthWindow: time.Minute})
	now := time.Now()
	limiter.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		res, err := limiter.AllowAuth(context.Background(), "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, _ := limiter.AllowAuth(context.Background(), "10.0.0.1")
	assert.False(t, res.Allowed)
	assert.Positive(t, res.ResetIn)

	res, _ = limiter.AllowAuth(context.Background(), "10.0.0.2")
	assert.True(t, res.Allowed, "buckets are per key")

	now = now.Add(31 * time.Second)
	res, _ = limiter.AllowAuth(context.Background(), "10.0.0.1")
	assert.True(t, res.Allowed, "one token refills every window/limit")
}

func TestAuthMiddleware(t *testing.T) {
	actor := services.Actor{ID: uuid.New(), Role: user.RoleDonor}
	r := gin.New()
	r.Use(RequestIDMiddleware(), AuthMiddleware(stubResolver{actor: actor, token: "good"}))
	r.GET("/me", func(c *gin.Context) {
		got, ok := services.ActorFromContext(c.Request.Context())
		require.True(t, ok)
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(got.ID.String()))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), actor.ID.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body httpdto.Response[any]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, string(medishare_errors.KindUnauthenticated), body.Error.Kind)
}

func TestErrorHandlerHidesInternalErrors(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(logger.NewNop()))
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
	})
	r.GET("/missing", func(c *gin.Context) {
		_ = c.Error(medishare_errors.NotFound("Donation not found"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Donation not found")
}

func TestAuthRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(AuthRateLimitMiddleware(NewLocalRateLimiter(redis.RateLimitConfig{AuthLimit: 1, AuthWindow: time.Hour})))
	r.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), string(medishare_errors.KindRateLimited))
}
