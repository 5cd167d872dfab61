package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"skill-wager-system/services"
)

func newApp() *fiber.App {
	log := zap.NewNop()
	app := fiber.New()
	app.Use(GatewayAuthMiddleware("gw-token", log))
	s := app.Group("/s", UserContextMiddleware(log))
	s.Get("/whoami", func(c *fiber.Ctx) error {
		a := ActorFrom(c)
		return c.JSON(fiber.Map{"id": a.ID, "roles": a.Roles, "resolver": a.IsResolver()})
	})
	s.Get("/admin", RequireRole(services.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestGatewayToken(t *testing.T) {
	app := newApp()

	req := httptest.NewRequest(http.MethodGet, "/s/whoami", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestUserContext(t *testing.T) {
	app := newApp()

	req := httptest.NewRequest(http.MethodGet, "/s/whoami", nil)
	req.Header.Set("Authorization", "Bearer gw-token")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "X-User-ID required")

	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-User-Roles", " resolver , ,player")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireRole(t *testing.T) {
	app := newApp()
	req := httptest.NewRequest(http.MethodGet, "/s/admin", nil)
	req.Header.Set("Authorization", "gw-token")
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-User-Roles", "moderator")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req.Header.Set("X-User-Roles", "admin")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
