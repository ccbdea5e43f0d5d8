/**
 * @description
 * Health and status API handlers: scheduler last-run stamps, circuit
 * breaker states and cache stats for external monitoring.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 */

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/licitabot/backend/internal/breaker"
	"github.com/licitabot/backend/internal/cache"
	"github.com/licitabot/backend/internal/scheduler"
)

type StatusHandler struct {
	Scheduler *scheduler.Scheduler
	Breakers  *breaker.Registry
	Cache     *cache.Cache
}

func NewStatusHandler(sched *scheduler.Scheduler, breakers *breaker.Registry, c *cache.Cache) *StatusHandler {
	return &StatusHandler{Scheduler: sched, Breakers: breakers, Cache: c}
}

// Health is the liveness probe
// GET /api/v1/health
func (h *StatusHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Status reports ingestion freshness and failure-gate state
// GET /api/v1/status
func (h *StatusHandler) Status(c *fiber.Ctx) error {
	lastRuns := map[string]string{}
	if h.Scheduler != nil {
		if runs, err := h.Scheduler.LastRuns(c.Context()); err == nil {
			lastRuns = runs
		}
	}

	return ok(c, fiber.Map{
		"last_runs": lastRuns,
		"breakers":  h.Breakers.Snapshots(),
		"cache":     h.Cache.GetStats(c.Context()),
	})
}
