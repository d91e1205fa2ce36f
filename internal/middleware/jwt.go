package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/nattapong2005/codementorai/internal/models"
	"github.com/nattapong2005/codementorai/internal/utils"
)

// Locals keys holding the authenticated identity.
const (
	LocalUserID   = "user_id"
	LocalUserRole = "user_role"
)

var errUnsupportedRole = errors.New("unsupported role")

// Claims is the token payload: the subject is the numeric user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTProtected validates HS256 bearer tokens and stores the user id and role in locals.
// Tokens must carry an expiry and a teacher or student role.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }

	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "missing bearer token")
		}

		var claims Claims
		if _, err := parser.ParseWithClaims(raw, &claims, keyFunc); err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		userID, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil || userID == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token subject")
		}

		role, err := normalizeRole(claims.Role)
		if err != nil {
			return utils.SendError(c, fiber.StatusForbidden, err.Error())
		}

		c.Locals(LocalUserID, uint(userID))
		c.Locals(LocalUserRole, role)
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func normalizeRole(role string) (string, error) {
	switch normalized := strings.ToLower(strings.TrimSpace(role)); normalized {
	case models.RoleTeacher, models.RoleStudent:
		return normalized, nil
	default:
		return "", errUnsupportedRole
	}
}
