// handlers/progression_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"skill-wager-system/achievements"
	"skill-wager-system/middleware"
	"skill-wager-system/services"
	"skill-wager-system/utils"
)

type tipRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

func SetupProgressionRoutes(secured fiber.Router, progressionService *services.ProgressionService, achievementService *services.AchievementService, log *zap.Logger) {
	secured.Get("/user/profile", func(c *fiber.Ctx) error {
		actor := middleware.ActorFrom(c)
		// First visit creates the profile at baseline rating.
		prof, err := progressionService.EnsureProfile(c.UserContext(), actor.ID)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"profile":    prof,
			"rank_title": utils.RankTitle(prof.Rank),
			"banned":     prof.BannedAt(progressionService.Clock.Now()),
		})
	})

	secured.Get("/user/profile/history", func(c *fiber.Ctx) error {
		actor := middleware.ActorFrom(c)
		page := c.QueryInt("page", 1)
		size := c.QueryInt("size", 20)
		rows, total, err := progressionService.History(c.UserContext(), actor.ID, page, size)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"matches": rows,
			"total":   total,
			"page":    page,
			"size":    size,
		})
	})

	secured.Post("/user/tips", func(c *fiber.Ctx) error {
		var req tipRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err.Error())
		}
		if err := progressionService.Tip(c.UserContext(), middleware.ActorFrom(c), req.To, req.Amount); err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"message": "tip sent", "to": req.To, "amount": req.Amount})
	})

	secured.Get("/user/achievements", func(c *fiber.Ctx) error {
		view, err := achievementService.List(c.UserContext(), middleware.ActorFrom(c).ID)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(view)
	})

	secured.Post("/user/achievements/:kind/claim", func(c *fiber.Ctx) error {
		kind := achievements.Kind(c.Params("kind"))
		res, err := achievementService.Claim(c.UserContext(), middleware.ActorFrom(c).ID, kind)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})
}
