package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimit returns middleware that allows maxRequests per client IP within
// each fixed window. Counters live in Redis under ratelimit:<name>:<ip> so
// every replica shares them. Over the limit the request fails with 429 and
// a Retry-After header.
//
// If Redis cannot be reached the request is let through: the limiter
// protects the provider's mail quota, it is not an auth control.
func RateLimit(rdb *redis.Client, name string, maxRequests int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := fmt.Sprintf("ratelimit:%s:%s", name, c.RealIP())

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				slog.Warn("rate limiter unavailable, allowing request",
					slog.String("limiter", name),
					slog.Any("error", err),
				)
				return next(c)
			}

			// The first hit opens the window.
			if count == 1 {
				if err := rdb.Expire(ctx, key, window).Err(); err != nil {
					slog.Warn("rate limiter could not set window",
						slog.String("limiter", name),
						slog.Any("error", err),
					)
				}
			}

			if count > int64(maxRequests) {
				// A key left without a TTL would block the client forever.
				retry, err := rdb.TTL(ctx, key).Result()
				if err != nil || retry <= 0 {
					rdb.Expire(ctx, key, window)
					retry = window
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests. Please wait a moment and try again.")
			}

			return next(c)
		}
	}
}
