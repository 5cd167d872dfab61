package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"skill-wager-system/apperr"
)

// respondError maps a service error to its status and a {"error","code"} body.
// Internal errors are logged and not echoed to the client.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := apperr.HTTPStatus(err)
	code := apperr.CodeOf(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.Path()), zap.String("method", c.Method()), zap.Error(err))
		msg = "internal error"
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"code":  code,
	})
}

func badRequest(c *fiber.Ctx, detail string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid request body: " + detail,
		"code":  apperr.CodeInvalidInput,
	})
}
