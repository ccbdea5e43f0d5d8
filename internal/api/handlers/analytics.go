/**
 * @description
 * Analytics API handlers: price recommendation, similar-case retrieval and
 * compatibility scoring.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/licitabot/backend/internal/models"
	"github.com/licitabot/backend/internal/services"
)

type AnalyticsHandler struct {
	Prices *services.PriceService
	RAG    *services.RAGService
	Compat *services.CompatibilityService
}

func NewAnalyticsHandler(prices *services.PriceService, rag *services.RAGService, compat *services.CompatibilityService) *AnalyticsHandler {
	return &AnalyticsHandler{Prices: prices, RAG: rag, Compat: compat}
}

// RecommendPrice returns the price recommendation for a product term
// POST /api/v1/prices/recommend
func (h *AnalyticsHandler) RecommendPrice(c *fiber.Ctx) error {
	var req services.PriceRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid_input", "malformed request body")
	}

	rec, err := h.Prices.RecommendPrice(c.Context(), req)
	if err != nil {
		return failFromError(c, err)
	}
	return ok(c, rec)
}

// RetrieveSimilar returns ranked historical cases for a tender name
// POST /api/v1/rag/similar
func (h *AnalyticsHandler) RetrieveSimilar(c *fiber.Ctx) error {
	var req services.RAGRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid_input", "malformed request body")
	}

	result, err := h.RAG.RetrieveSimilar(c.Context(), req)
	if err != nil {
		return failFromError(c, err)
	}
	return ok(c, result)
}

type scoreRequest struct {
	OwnerID string               `json:"owner_id"`
	Tender  models.TenderSummary `json:"tender"`
}

// ScoreTender scores a tender against the caller's company profile
// POST /api/v1/tenders/score
func (h *AnalyticsHandler) ScoreTender(c *fiber.Ctx) error {
	var req scoreRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid_input", "malformed request body")
	}

	score, err := h.Compat.ScoreForOwner(c.Context(), req.OwnerID, req.Tender)
	if err != nil {
		return failFromError(c, err)
	}
	return ok(c, fiber.Map{"score": score})
}
