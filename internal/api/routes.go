/**
 * @description
 * API Route definitions.
 * Sets up the router groups, wires services to handlers and attaches the
 * per-bucket rate limiters.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/api/middleware
 * - backend/internal/services
 */

package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/licitabot/backend/internal/api/handlers"
	"github.com/licitabot/backend/internal/api/middleware"
	"github.com/licitabot/backend/internal/breaker"
	"github.com/licitabot/backend/internal/cache"
	"github.com/licitabot/backend/internal/config"
	"github.com/licitabot/backend/internal/db"
	"github.com/licitabot/backend/internal/matching"
	"github.com/licitabot/backend/internal/ratelimit"
	"github.com/licitabot/backend/internal/scheduler"
	"github.com/licitabot/backend/internal/services"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps carries everything the route tree needs.
type Deps struct {
	DB        *gorm.DB
	Dialect   db.Dialect
	Redis     *redis.Client
	Breakers  *breaker.Registry
	Scheduler *scheduler.Scheduler
	Config    *config.Config
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, deps Deps) {
	c := cache.New(deps.Redis)
	limiter := ratelimit.New(deps.Redis, deps.Config)

	matcher := matching.NewMatcher(deps.DB, deps.Dialect, deps.Config.Analytics.RecencyYears)
	priceService := services.NewPriceService(matcher, c, deps.Config)
	ragService := services.NewRAGService(matcher, c)
	compatService := services.NewCompatibilityService(deps.DB)
	searchService := services.NewSearchService(deps.DB, c)

	analyticsHandler := handlers.NewAnalyticsHandler(priceService, ragService, compatService)
	searchHandler := handlers.NewSearchHandler(searchService)
	statusHandler := handlers.NewStatusHandler(deps.Scheduler, deps.Breakers, c)

	api := app.Group("/api")
	v1 := api.Group("/v1", middleware.Limit(limiter, ratelimit.BucketGlobal))

	v1.Get("/health", statusHandler.Health)
	v1.Get("/status", statusHandler.Status)

	// ML-priced endpoints share the tighter bucket.
	ml := v1.Group("", middleware.Limit(limiter, ratelimit.BucketML))
	ml.Post("/prices/recommend", analyticsHandler.RecommendPrice)
	ml.Post("/rag/similar", analyticsHandler.RetrieveSimilar)

	tenders := v1.Group("/tenders", middleware.Limit(limiter, ratelimit.BucketSearch))
	tenders.Post("/score", analyticsHandler.ScoreTender)
	tenders.Get("/search", searchHandler.Search)
	tenders.Get("/urgent", searchHandler.Urgent)
	tenders.Get("/by-amount", searchHandler.ByAmount)
}
