package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"skill-wager-system/middleware"
	"skill-wager-system/services"
)

type banRequest struct {
	ParticipantID   string `json:"participant_id"`
	DurationSeconds int64  `json:"duration_seconds"` // 0 lifts the ban
}

// SetupAdminRoutes mounts moderation and season management. Role checks are
// repeated by the services.
func SetupAdminRoutes(secured fiber.Router, moderation *services.ModerationService, seasons *services.SeasonService, log *zap.Logger) {
	admin := secured.Group("/admin")

	admin.Post("/bans", middleware.RequireRole(services.RoleModerator, services.RoleAdmin), func(c *fiber.Ctx) error {
		var req banRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err.Error())
		}
		if req.DurationSeconds < 0 {
			return badRequest(c, "duration_seconds must not be negative")
		}
		prof, err := moderation.Ban(c.UserContext(), middleware.ActorFrom(c), req.ParticipantID, time.Duration(req.DurationSeconds)*time.Second)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(prof)
	})

	admin.Get("/platform", middleware.RequireRole(services.RoleModerator, services.RoleAdmin), func(c *fiber.Ctx) error {
		ps, err := services.PlatformState(seasons.DB.WithContext(c.UserContext()), seasons.Clock.Now())
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(ps)
	})

	admin.Post("/season/reset", middleware.RequireRole(services.RoleAdmin), func(c *fiber.Ctx) error {
		ps, err := seasons.ResetSeason(c.UserContext(), middleware.ActorFrom(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(ps)
	})
}
