package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/ecotrace/collect-api/pkg/appcontext"
	"github.com/ecotrace/collect-api/pkg/redis"
)

// RateLimit caps write requests per caller over a sliding window. Redis
// failures fail open: a broken limiter must not take down submissions.
func RateLimit(limiter *redis.RateLimiter, limit int64, window time.Duration, logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodGet {
				return next(c)
			}

			ctx := c.Request().Context()
			key := appcontext.GetUserID(ctx)
			if key == "" {
				key = c.RealIP()
			}

			result, err := limiter.Allow(ctx, key, limit, window)
			if err != nil {
				logger.WithContext(ctx).WithError(err).Warn("Rate limit check failed, allowing request")
				return next(c)
			}

			if !result.Allowed {
				retryAfter := result.RetryIn
				if retryAfter <= 0 {
					retryAfter = window
				}
				c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}

			return next(c)
		}
	}
}
