package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"skill-wager-system/services"
)

const actorKey = "actor"

// UserContextMiddleware extracts user identity and roles set by Gateway.
// Every route it guards requires X-User-ID.
func UserContextMiddleware(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			log.Warn("[USER_CTX] X-User-ID missing on secured route", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID, request must come through gateway with auth context",
			})
		}

		var roles []string
		for _, r := range strings.Split(c.Get("X-User-Roles"), ",") {
			if r = strings.TrimSpace(r); r != "" {
				roles = append(roles, r)
			}
		}

		c.Locals(actorKey, services.Actor{ID: userID, Roles: roles})
		log.Debug("[USER_CTX] actor attached",
			zap.String("user_id", userID), zap.Strings("roles", roles), zap.String("path", c.Path()))
		return c.Next()
	}
}

// ActorFrom returns the actor attached by UserContextMiddleware.
func ActorFrom(c *fiber.Ctx) services.Actor {
	if a, ok := c.Locals(actorKey).(services.Actor); ok {
		return a
	}
	return services.Actor{}
}

// RequireRole rejects actors that hold none of roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a := ActorFrom(c)
		for _, r := range roles {
			if a.HasRole(r) {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "insufficient role",
			"code":  "UNAUTHORIZED",
		})
	}
}
