package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nattapong2005/codementorai/internal/utils"
)

// RequireRole lets the request through only when the authenticated role is one of roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized, err := normalizeRole(role); err == nil {
			allowed[normalized] = struct{}{}
		}
	}
	message := fmt.Sprintf("requires %s role", strings.Join(roles, " or "))

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(LocalUserRole).(string)
		normalized, err := normalizeRole(role)
		if err != nil {
			return utils.SendError(c, fiber.StatusForbidden, message)
		}
		if _, ok := allowed[normalized]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, message)
		}
		return c.Next()
	}
}
