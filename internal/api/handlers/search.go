/**
 * @description
 * Tender search API handlers: keywords, urgency window, budget range.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/licitabot/backend/internal/services"
)

type SearchHandler struct {
	Service *services.SearchService
}

func NewSearchHandler(service *services.SearchService) *SearchHandler {
	return &SearchHandler{Service: service}
}

// Search returns summaries matching comma-separated keywords
// GET /api/v1/tenders/search?q=laptop,notebook&limit=20
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	keywords := strings.Split(c.Query("q"), ",")
	limit := c.QueryInt("limit", 0)

	out, err := h.Service.SearchByKeywords(c.Context(), keywords, limit)
	if err != nil {
		return failFromError(c, err)
	}
	return ok(c, out)
}

// Urgent returns summaries closing within the next N days
// GET /api/v1/tenders/urgent?days=3&limit=20
func (h *SearchHandler) Urgent(c *fiber.Ctx) error {
	days := c.QueryInt("days", 3)
	limit := c.QueryInt("limit", 0)

	out, err := h.Service.SearchUrgent(c.Context(), days, limit)
	if err != nil {
		return failFromError(c, err)
	}
	return ok(c, out)
}

// ByAmount returns summaries within a budget range
// GET /api/v1/tenders/by-amount?min=100000&max=5000000
func (h *SearchHandler) ByAmount(c *fiber.Ctx) error {
	min := c.QueryFloat("min", 0)
	max := c.QueryFloat("max", 0)
	limit := c.QueryInt("limit", 0)

	out, err := h.Service.SearchByAmount(c.Context(), min, max, limit)
	if err != nil {
		return failFromError(c, err)
	}
	return ok(c, out)
}
