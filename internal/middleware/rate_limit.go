package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/nattapong2005/codementorai/internal/observability"
	"github.com/nattapong2005/codementorai/internal/utils"
)

// RateLimit bounds how often one user may hit an expensive AI-backed route.
// Requests without an authenticated user are keyed by client IP.
func RateLimit(scope string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return scope + ":" + rateLimitSubject(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			observability.RateLimited().WithLabelValues(scope).Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(window.Seconds())))
			return utils.SendErrorCode(c, fiber.StatusTooManyRequests, utils.CodeRateLimited,
				fmt.Sprintf("too many %s requests, try again later", scope))
		},
	})
}

func rateLimitSubject(c *fiber.Ctx) string {
	switch id := c.Locals(LocalUserID).(type) {
	case uint:
		if id > 0 {
			return "user:" + strconv.FormatUint(uint64(id), 10)
		}
	case string:
		if id != "" {
			return "user:" + id
		}
	}
	return "ip:" + c.IP()
}
