package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v9"

	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/metrics"
)

type RequestRateLimiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

// RateLimit caps state-changing requests per caller. Reads pass through, and
// a nil limiter disables the check. When the limiter store is unreachable the
// request is let through, same as Idempotency.
func RateLimit(rateLimiter RequestRateLimiter, m *metrics.Manager, log *logger.Logger, allowedPerMin int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rateLimiter == nil || allowedPerMin <= 0 || isReadOnly(c.Request.Method) {
			c.Next()
			return
		}

		key := "ratelimit:" + c.ClientIP()
		if uid, err := getUserIDFromContext(c); err == nil {
			key = "ratelimit:" + uid
		}
		res, err := rateLimiter.Allow(c.Request.Context(), key, redis_rate.PerMinute(allowedPerMin))
		if err != nil {
			log.Warn("rate limit check failed, letting request through", "key", key, "error", err)
			c.Next()
			return
		}
		if res.Allowed > 0 {
			c.Next()
			return
		}

		m.CounterRateLimitedRequests.Inc()
		retry := int(math.Ceil(res.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(retry))
		abortWithError(c, http.StatusTooManyRequests, fmt.Sprintf("retry after %d seconds", retry))
	}
}

func isReadOnly(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}
