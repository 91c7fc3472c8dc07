// handlers/bounty_routes.go
package handlers

import (
	"strconv"

	"hoodie-academy/middleware"
	"hoodie-academy/models"
	"hoodie-academy/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBountyRoutes(app *fiber.App, bountyService *services.BountyService) {
	securedGroup := app.Group("/s", middleware.WalletContextMiddleware())

	securedGroup.Post("/bounties/:id/submit", func(c *fiber.Ctx) error {
		wallet := c.Locals("wallet_address").(string)
		bountyID := c.Params("id")

		type Req struct {
			Title      string `json:"title" validate:"max=255"`
			Submission string `json:"submission" validate:"required"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		sub, err := bountyService.Submit(bountyID, wallet, req.Title, req.Submission)
		if err != nil {
			return respondError(c, "submission failed", err)
		}
		return c.Status(fiber.StatusCreated).JSON(sub)
	})

	securedGroup.Get("/user/submissions", func(c *fiber.Ctx) error {
		wallet := c.Locals("wallet_address").(string)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))

		subs, total, err := bountyService.ListSubmissions(wallet, page, size)
		if err != nil {
			return respondError(c, "failed to list submissions", err)
		}
		return c.JSON(fiber.Map{
			"submissions": subs,
			"page":        page,
			"size":        size,
			"total_items": total,
		})
	})

	securedGroup.Get("/submissions/:id", func(c *fiber.Ctx) error {
		sub, err := bountyService.GetSubmission(c.Params("id"))
		if err != nil {
			return respondError(c, "failed to load submission", err)
		}
		return c.JSON(sub)
	})

	// Admin moderation
	adminGroup := app.Group("/s/admin", middleware.WalletContextMiddleware(), middleware.RequireRole("admin"))

	adminGroup.Post("/submissions/:id/moderate", func(c *fiber.Ctx) error {
		reviewer := c.Locals("wallet_address").(string)

		type Req struct {
			Decision models.SubmissionStatus `json:"decision" validate:"required,oneof=approved rejected needs_revision"`
			XP       int64                   `json:"xp"` // optional override for the approval award
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		sub, err := bountyService.Moderate(c.Params("id"), req.Decision, reviewer, req.XP)
		if err != nil {
			return respondError(c, "moderation failed", err)
		}
		return c.JSON(sub)
	})

	adminGroup.Post("/submissions/:id/winner", func(c *fiber.Ctx) error {
		type Req struct {
			Placement models.Placement `json:"placement" validate:"required,oneof=first second third"`
			XPBonus   int64            `json:"xp_bonus"`  // optional override of the placement table
			SOLPrize  float64          `json:"sol_prize"` // metadata only, stays out of the ledger
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		sub, err := bountyService.AwardWinner(c.Params("id"), req.Placement, req.XPBonus, req.SOLPrize)
		if err != nil {
			return respondError(c, "winner award failed", err)
		}
		return c.JSON(sub)
	})
}
