package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"skill-wager-system/middleware"
	"skill-wager-system/models"
	"skill-wager-system/services"
)

type joinRequest struct {
	Stake uint64 `json:"stake"`
}

type voteRequest struct {
	Winner string `json:"winner"`
}

// SetupSettlementRoutes mounts the wager lifecycle on a secured router.
// The gateway forwards /api/v1/wager/s/settlements -> /s/settlements.
func SetupSettlementRoutes(secured fiber.Router, svc *services.SettlementService, log *zap.Logger) {
	g := secured.Group("/settlements")

	g.Post("/", func(c *fiber.Ctx) error {
		var in services.CreateInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, err.Error())
		}
		st, err := svc.Create(c.UserContext(), middleware.ActorFrom(c), in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(st)
	})

	g.Get("/", func(c *fiber.Ctx) error {
		actor := middleware.ActorFrom(c)
		list, err := svc.ListForParticipant(c.UserContext(), actor.ID, models.SettlementStatus(c.Query("status")))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"settlements": list})
	})

	g.Get("/:id", func(c *fiber.Ctx) error {
		st, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(st)
	})

	g.Post("/:id/join", func(c *fiber.Ctx) error {
		var req joinRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err.Error())
		}
		st, err := svc.Join(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), req.Stake)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(st)
	})

	g.Post("/:id/vote", func(c *fiber.Ctx) error {
		var req voteRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err.Error())
		}
		st, err := svc.Vote(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), req.Winner)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(st)
	})

	g.Post("/:id/retract", func(c *fiber.Ctx) error {
		st, err := svc.Retract(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(st)
	})

	g.Post("/:id/resolve", func(c *fiber.Ctx) error {
		var in services.ResolveInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, err.Error())
		}
		res, err := svc.Resolve(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(res)
	})

	g.Post("/:id/force-close", func(c *fiber.Ctx) error {
		st, err := svc.ForceClose(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(st)
	})
}
