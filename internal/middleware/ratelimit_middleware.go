package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"medishare/internal/redis"
	"medishare/internal/services"
	"medishare/internal/transport/httpdto"
	medishare_errors "medishare/pkg/errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter is satisfied by redis.RateLimiter and LocalRateLimiter.
type RateLimiter interface {
	AllowAuth(ctx context.Context, ip string) (*redis.RateLimitResult, error)
	AllowDonation(ctx context.Context, userID string) (*redis.RateLimitResult, error)
}

// AuthRateLimitMiddleware limits login and register attempts per client IP.
func AuthRateLimitMiddleware(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.AllowAuth(c.Request.Context(), c.ClientIP())
		if !checkResult(c, result, err, "Too many attempts, please try again later.") {
			return
		}
		c.Next()
	}
}

// DonationRateLimitMiddleware limits donation submissions per user.
// Should be applied after the auth middleware.
func DonationRateLimitMiddleware(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := services.ActorFromContext(c.Request.Context())
		if !ok {
			// No actor, the auth middleware will reject the request
			c.Next()
			return
		}

		result, err := limiter.AllowDonation(c.Request.Context(), actor.ID.String())
		if !checkResult(c, result, err, "Donation limit reached, please try again later.") {
			return
		}
		c.Next()
	}
}

func checkResult(c *gin.Context, result *redis.RateLimitResult, err error, message string) bool {
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, httpdto.NewErrorResponse(medishare_errors.KindInternal, "rate limit error", ""))
		return false
	}

	setRateLimitHeaders(c, result)

	if !result.Allowed {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, httpdto.NewErrorResponse(medishare_errors.KindRateLimited, message, ""))
		return false
	}
	return true
}

// setRateLimitHeaders sets standard rate limit response headers
func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}

// LocalRateLimiter keeps one token bucket per key in process. Used when
// redis is disabled.
type LocalRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	config  redis.RateLimitConfig
	now     func() time.Time
}

func NewLocalRateLimiter(config redis.RateLimitConfig) *LocalRateLimiter {
	return &LocalRateLimiter{
		buckets: make(map[string]*rate.Limiter),
		config:  config,
		now:     time.Now,
	}
}

func (l *LocalRateLimiter) AllowAuth(_ context.Context, ip string) (*redis.RateLimitResult, error) {
	return l.allow("auth:"+ip, l.config.AuthLimit, l.config.AuthWindow), nil
}

func (l *LocalRateLimiter) AllowDonation(_ context.Context, userID string) (*redis.RateLimitResult, error) {
	return l.allow("donations:"+userID, l.config.DonationLimit, l.config.DonationWindow), nil
}

func (l *LocalRateLimiter) allow(key string, limit int, window time.Duration) *redis.RateLimitResult {
	if limit <= 0 || window <= 0 {
		return &redis.RateLimitResult{Allowed: true, Remaining: 0, Limit: limit}
	}

	l.mu.Lock()
	limiter, ok := l.buckets[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)
		l.buckets[key] = limiter
	}
	l.mu.Unlock()

	now := l.now()
	allowed := limiter.AllowN(now, 1)
	tokens := limiter.TokensAt(now)
	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	resetIn := time.Duration(0)
	if tokens < 1 {
		resetIn = time.Duration((1 - tokens) * float64(window/time.Duration(limit)))
	}

	return &redis.RateLimitResult{
		Allowed:   allowed,
		Remaining: remaining,
		ResetIn:   resetIn,
		Limit:     limit,
	}
}
