package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wholesale/orderflow/internal/domain/shared"
	"github.com/wholesale/orderflow/internal/interfaces/http/dto"
)

// countingLimiter allows limit requests per key and never resets
type countingLimiter struct {
	limit  int
	counts map[string]int
	err    error
}

func (l *countingLimiter) Allow(_ context.Context, key string) (bool, int, time.Duration, error) {
	if l.err != nil {
		return false, 0, 0, l.err
	}
	l.counts[key]++
	if l.counts[key] > l.limit {
		return false, 0, 1500 * time.Millisecond, nil
	}
	return true, l.limit - l.counts[key], time.Second, nil
}

func (l *countingLimiter) Limit() int { return l.limit }

func newRateLimitedRouter(limiter RateLimiter, actor *shared.Actor) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	if actor != nil {
		router.Use(func(c *gin.Context) { c.Set(ActorKey, *actor) })
	}
	router.Use(RateLimit(limiter, zap.NewNop()))
	router.GET("/orders", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestRateLimit(t *testing.T) {
	t.Run("rejects once the window is used up", func(t *testing.T) {
		limiter := &countingLimiter{limit: 2, counts: map[string]int{}}
		actor := newTestActor(shared.RoleCustomer)
		router := newRateLimitedRouter(limiter, &actor)

		for i := 0; i < 2; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		}

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "2", w.Header().Get("Retry-After"))
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, dto.ErrCodeRateLimited, errorCode(t, w))
		assert.Equal(t, 3, limiter.counts["user:"+actor.UserID.String()])
	})

	t.Run("keys anonymous callers by client IP", func(t *testing.T) {
		limiter := &countingLimiter{limit: 1, counts: map[string]int{}}
		router := newRateLimitedRouter(limiter, nil)

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		router.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, 1, limiter.counts["ip:203.0.113.7"])
	})

	t.Run("lets requests through when the store fails", func(t *testing.T) {
		limiter := &countingLimiter{limit: 1, counts: map[string]int{}, err: errors.New("redis down")}
		router := newRateLimitedRouter(limiter, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	})
}
