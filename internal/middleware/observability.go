package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/nattapong2005/codementorai/internal/observability"
)

// Observability records request metrics and one structured log line per API request.
// Routes that call the AI provider are flagged so their latency can be read separately.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()
	logger = logger.With().Str("component", "http").Logger()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if !strings.HasPrefix(c.Path(), "/api/") {
			return err
		}

		duration := time.Since(start)
		route := routeTemplate(c)
		method := c.Method()
		status := c.Response().StatusCode()
		statusLabel := strconv.Itoa(status)

		observability.APIRequests().WithLabelValues(method, route, statusLabel).Inc()
		observability.APILatency().WithLabelValues(method, route).Observe(duration.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.APIErrors().WithLabelValues(method, route, statusLabel).Inc()
		}

		event := logger.Info()
		switch {
		case status >= fiber.StatusInternalServerError:
			event = logger.Error()
		case status >= fiber.StatusBadRequest:
			event = logger.Warn()
		}

		event = event.
			Str("correlation_id", GetCorrelationID(c)).
			Str("method", method).
			Str("route", route).
			Int("status", status).
			Dur("latency", duration).
			Str("latency_bucket", latencyBucket(duration)).
			Bool("ai_backed", isAIBacked(method, route))
		if userID, ok := c.Locals(LocalUserID).(uint); ok {
			event = event.Uint("user_id", userID)
		}
		if role, ok := c.Locals(LocalUserRole).(string); ok && role != "" {
			event = event.Str("role", role)
		}
		event.Msg("request completed")

		return err
	}
}

func routeTemplate(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" {
		return r.Path
	}
	return c.Path()
}

func isAIBacked(method, route string) bool {
	if method != fiber.MethodPost {
		return false
	}
	return strings.HasSuffix(route, "/analysis") || strings.HasSuffix(route, "/submissions")
}

// AI calls dominate latency, so buckets stretch to the provider timeout.
func latencyBucket(duration time.Duration) string {
	switch {
	case duration <= 100*time.Millisecond:
		return "<=100ms"
	case duration <= time.Second:
		return "<=1s"
	case duration <= 5*time.Second:
		return "<=5s"
	case duration <= 15*time.Second:
		return "<=15s"
	case duration <= 30*time.Second:
		return "<=30s"
	default:
		return ">30s"
	}
}
