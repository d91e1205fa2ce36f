package middleware

import (
	"context"
	"strings"
	"unicode"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderCorrelationID carries the request correlation id in and out.
const HeaderCorrelationID = "X-Correlation-ID"

const (
	localCorrelationID     = "correlation_id"
	maxCorrelationIDLength = 128
)

type correlationKey struct{}

// CorrelationID reuses a sane incoming X-Correlation-ID or X-Request-ID, otherwise generates one,
// and echoes it back on the response.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := firstValidCorrelationID(c.Get(HeaderCorrelationID), c.Get(fiber.HeaderXRequestID))
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(localCorrelationID, id)
		c.Set(HeaderCorrelationID, id)
		c.SetUserContext(context.WithValue(c.UserContext(), correlationKey{}, id))

		return c.Next()
	}
}

// GetCorrelationID returns the correlation id bound to the request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(localCorrelationID).(string); ok {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

// CorrelationIDFromContext returns the correlation id stored by CorrelationID, if any.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

func firstValidCorrelationID(candidates ...string) string {
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" || len(candidate) > maxCorrelationIDLength {
			continue
		}
		if strings.IndexFunc(candidate, func(r rune) bool { return !unicode.IsPrint(r) || unicode.IsSpace(r) }) >= 0 {
			continue
		}
		return candidate
	}
	return ""
}
