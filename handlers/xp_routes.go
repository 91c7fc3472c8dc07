// handlers/xp_routes.go
package handlers

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"hoodie-academy/middleware"
	"hoodie-academy/models"
	"hoodie-academy/services"

	"github.com/gofiber/fiber/v2"
)

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c *fiber.Ctx, msg string, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrState):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrStoreUnavailable):
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}

func SetupXPRoutes(app *fiber.App, ledgerService *services.LedgerService, streakService *services.StreakService, notifier *services.Notifier) {
	// 🔐 Secured routes — gateway forwards /api/v1/academy/s/... -> /s/...
	securedGroup := app.Group("/s", middleware.WalletContextMiddleware())

	securedGroup.Get("/user/xp", func(c *fiber.Ctx) error {
		wallet := c.Locals("wallet_address").(string)

		summary, err := ledgerService.GetXP(wallet)
		if errors.Is(err, services.ErrNotFound) {
			// Wallet with no awards yet: report the bottom of the ladder
			// instead of a 404 so the UI renders a fresh profile.
			prog := services.Progress(0)
			return c.JSON(services.XPSummary{
				WalletAddress:   wallet,
				Level:           prog.Level,
				Title:           prog.Title,
				NextLevel:       prog.NextLevel,
				XPForNextLevel:  prog.XPForNextLevel,
				ProgressPercent: prog.ProgressPercent,
				Unlocks:         services.TotalUnlocks(prog.Level),
			})
		}
		if err != nil {
			return respondError(c, "failed to load xp", err)
		}
		return c.JSON(summary)
	})

	securedGroup.Get("/user/xp/history", func(c *fiber.Ctx) error {
		wallet := c.Locals("wallet_address").(string)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))

		events, total, err := ledgerService.GetHistory(wallet, page, size)
		if err != nil {
			return respondError(c, "failed to load xp history", err)
		}
		return c.JSON(fiber.Map{
			"events":      events,
			"page":        page,
			"size":        size,
			"total_items": total,
		})
	})

	securedGroup.Get("/user/streak", func(c *fiber.Ctx) error {
		wallet := c.Locals("wallet_address").(string)
		rec, err := streakService.GetStreak(wallet)
		if err != nil {
			return respondError(c, "failed to load streak", err)
		}
		return c.JSON(rec)
	})

	securedGroup.Post("/user/daily-claim", func(c *fiber.Ctx) error {
		wallet := c.Locals("wallet_address").(string)

		// The claim day is always the server's UTC today. A client-chosen
		// date would mint a fresh idempotency key per date, letting one
		// wallet farm weeks of logins in a single afternoon.
		res, err := streakService.ClaimDailyLogin(wallet, time.Now().UTC())
		if err != nil {
			return respondError(c, "daily claim failed", err)
		}
		return c.JSON(fiber.Map{
			"success":         !res.AlreadyClaimed,
			"already_claimed": res.AlreadyClaimed,
			"current_streak":  res.CurrentStreak,
			"longest_streak":  res.LongestStreak,
			"xp_awarded":      res.XPAwarded,
			"new_total":       res.NewTotal,
			"leveled_up":      res.LeveledUp,
			"new_level":       res.NewLevel,
		})
	})

	securedGroup.Post("/courses/:id/complete", func(c *fiber.Ctx) error {
		wallet := c.Locals("wallet_address").(string)
		courseID := c.Params("id")

		type Req struct {
			CourseName string `json:"course_name"`
			XP         int64  `json:"xp"` // optional per-course override
		}
		var req Req
		_ = c.BodyParser(&req)

		res, err := ledgerService.CompleteCourse(wallet, courseID, req.CourseName, req.XP)
		if err != nil {
			return respondError(c, "course completion failed", err)
		}
		return c.JSON(res)
	})

	securedGroup.Get("/user/courses", func(c *fiber.Ctx) error {
		wallet := c.Locals("wallet_address").(string)
		completions, err := ledgerService.GetCompletions(wallet)
		if err != nil {
			return respondError(c, "failed to load completions", err)
		}
		return c.JSON(completions)
	})

	securedGroup.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "25"))
		entries, err := ledgerService.GetLeaderboard(limit)
		if err != nil {
			return respondError(c, "failed to load leaderboard", err)
		}
		return c.JSON(fiber.Map{
			"leaderboard": entries,
			"total_users": len(entries),
		})
	})

	// StreamNotificationsSSE pushes award/level-up signals as they happen.
	// Best-effort: a dropped connection or full buffer loses toasts, never XP.
	securedGroup.Get("/user/notifications/stream", func(c *fiber.Ctx) error {
		wallet := c.Locals("wallet_address").(string)

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no") // nginx

		signals, cancel := notifier.Subscribe(wallet)
		ctx := c.Context()

		ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
			defer cancel()

			keepalive := time.NewTicker(15 * time.Second)
			defer keepalive.Stop()

			// Initial keepalive (comment event)
			w.WriteString(":\n\n")
			w.Flush()

			for {
				select {
				case sig := <-signals:
					payload, _ := json.Marshal(sig)
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", sig.Type, payload)
					if err := w.Flush(); err != nil {
						// Client disconnected
						return
					}
				case <-keepalive.C:
					w.WriteString(":\n\n")
					if err := w.Flush(); err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		})

		return nil
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.WalletContextMiddleware(), middleware.RequireRole("admin"))

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			Wallet        string `json:"wallet_address" validate:"required"`
			XP            int64  `json:"xp" validate:"required"`
			ReferenceID   string `json:"reference_id" validate:"required"`
			Reason        string `json:"reason" validate:"max=255"`
			AllowNegative bool   `json:"allow_negative"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		res, err := ledgerService.Award(req.Wallet, req.XP, models.SourceAdminAdjustment, req.ReferenceID, req.Reason,
			services.AwardOptions{AllowNegative: req.AllowNegative})
		if err != nil {
			return respondError(c, "XP grant failed", err)
		}
		return c.JSON(fiber.Map{
			"message":   "XP granted successfully",
			"wallet":    req.Wallet,
			"xp":        req.XP,
			"duplicate": res.Duplicate,
			"new_total": res.NewTotal,
			"new_level": res.NewLevel,
		})
	})

	adminGroup.Post("/xp/reconcile", func(c *fiber.Ctx) error {
		type Req struct {
			Wallet string `json:"wallet_address"` // empty = sweep everyone
		}
		var req Req
		_ = c.BodyParser(&req)

		if req.Wallet != "" {
			drift, err := ledgerService.RecomputeTotal(req.Wallet)
			if err != nil {
				return respondError(c, "reconcile failed", err)
			}
			return c.JSON(fiber.Map{"wallet": req.Wallet, "drift_repaired": drift})
		}

		repaired, err := ledgerService.ReconcileAll()
		if err != nil {
			return respondError(c, "reconcile sweep failed", err)
		}
		return c.JSON(fiber.Map{"wallets_repaired": repaired})
	})
}
