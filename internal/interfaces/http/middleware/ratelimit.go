package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wholesale/orderflow/internal/interfaces/http/dto"
)

// RateLimiter counts requests per key in fixed windows
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, int, time.Duration, error)
	Limit() int
}

// RateLimit limits requests per authenticated user, or per client IP before authentication.
// When the limiter store fails the request is let through.
func RateLimit(limiter RateLimiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateLimitKey(c)
		allowed, remaining, resetIn, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			if logger != nil {
				logger.Warn("rate limiter unavailable, allowing request",
					zap.String("key", key),
					zap.String("request_id", GetRequestID(c)),
					zap.Error(err),
				)
			}
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(resetIn.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(
				dto.ErrCodeRateLimited,
				"Too many requests, please retry later",
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}

func rateLimitKey(c *gin.Context) string {
	if actor, ok := GetActor(c); ok {
		return "user:" + actor.UserID.String()
	}
	return "ip:" + c.ClientIP()
}
