package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/skyrebook/rebook_core/internal/logger"
)

// clock is replaced in tests to pin the one second window
var clock = time.Now

// RateLimitKey returns the per-second counter key of a client
func RateLimitKey(prefix, clientIP string, now time.Time) string {
	return fmt.Sprintf("%srl:%s:%d", prefix, clientIP, now.Unix())
}

// RateLimitMiddleware limits each client IP to perSecond requests per second.
// A nil client or a non-positive limit disables it; Redis errors let the
// request through.
func RateLimitMiddleware(rdb redis.Cmdable, prefix string, perSecond int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rdb == nil || perSecond <= 0 {
			return c.Next()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		now := clock()
		key := RateLimitKey(prefix, c.IP(), now)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limit check failed", "error", err)
			return c.Next()
		}
		if count == 1 {
			rdb.Expire(ctx, key, 2*time.Second)
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(perSecond))

		if count > int64(perSecond) {
			c.Set("X-RateLimit-Remaining", "0")
			c.Set("X-RateLimit-Reset", strconv.FormatInt(now.Unix()+1, 10))
			c.Set("Retry-After", "1")

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate_limit_exceeded",
				"message":     "Too many requests per second",
				"limit":       perSecond,
				"retry_after": 1,
			})
		}

		c.Set("X-RateLimit-Remaining", strconv.FormatInt(int64(perSecond)-count, 10))
		return c.Next()
	}
}
