package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/medico-project/medico-go-api/internal/models"
	"github.com/medico-project/medico-go-api/internal/utils"
)

// IdentityResolver loads the account behind a token subject. A subject that
// cannot be resolved is an authentication failure, not an empty identity.
type IdentityResolver interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
}

// JWTProtected returns a middleware that validates JWT bearer tokens and
// resolves the subject against the user store; role and username come from
// the stored row, never from token claims. Browser websocket clients cannot
// set headers during the handshake, so a `token` query parameter is accepted
// as a fallback.
func JWTProtected(secret string, users IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := extractToken(c)
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		userID := extractUserIDFromClaims(claims)
		if userID == nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token subject")
		}

		user, err := users.GetByID(c.UserContext(), *userID)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "unknown identity")
		}

		c.Locals("user_id", user.ID)
		c.Locals("username", user.Username)
		c.Locals("user_role", strings.ToLower(user.Role))

		return c.Next()
	}
}

func extractToken(c *fiber.Ctx) string {
	authorization := c.Get("Authorization")
	const bearer = "Bearer "
	if strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
		if token := strings.TrimSpace(authorization[len(bearer):]); token != "" {
			return token
		}
	}

	return strings.TrimSpace(c.Query("token"))
}

func extractUserIDFromClaims(claims jwt.MapClaims) *uint {
	keys := []string{"sub", "user_id", "id"}
	for _, key := range keys {
		if value, ok := claims[key]; ok {
			if normalized, err := normalizeUserID(value); err == nil {
				return &normalized
			}
		}
	}

	return nil
}

func normalizeUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	default:
		return 0, fmt.Errorf("unsupported subject type")
	}
}

