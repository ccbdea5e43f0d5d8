/**
 * @description
 * Main entry point for the Licitabot Backend API.
 * Initializes the Fiber web server, loads configuration, and sets up routes.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2: Web framework
 * - github.com/licitabot/backend/internal/config: Config loader
 * - github.com/licitabot/backend/internal/db: Database connections
 *
 * @notes
 * - Connects to the configured store (Postgres or SQLite) and Redis on startup.
 * - Runs schema migrations before serving traffic.
 * - Sets up basic middleware (CORS, Logger, Recover).
 */

package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/licitabot/backend/internal/api"
	"github.com/licitabot/backend/internal/breaker"
	"github.com/licitabot/backend/internal/config"
	"github.com/licitabot/backend/internal/db"
	"github.com/licitabot/backend/internal/importer"
	"github.com/licitabot/backend/internal/mercadopublico"
	"github.com/licitabot/backend/internal/scheduler"
	"github.com/licitabot/backend/internal/scraper"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize Database Connections
	conn, dialect, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.Migrate(conn, dialect); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Redis (cache & rate limits). Optional: nil client degrades gracefully.
	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// 3. Upstream client and scheduler (read-only here, used by /status)
	breakers := breaker.NewRegistry(
		breaker.WithThreshold(cfg.Breaker.FailureThreshold),
		breaker.WithRecoveryTimeout(cfg.Breaker.RecoveryTimeout),
	)
	upstream := mercadopublico.NewClient(cfg, breakers)
	sched := scheduler.New(
		conn,
		scraper.NewListingScraper(conn, upstream, nil, cfg),
		scraper.NewDetailScraper(conn, upstream, nil, cfg),
		importer.New(conn, dialect, cfg),
		cfg,
	)

	// 4. Initialize Fiber App
	app := fiber.New(fiber.Config{
		AppName:       "Licitabot Backend",
		StrictRouting: true,
		CaseSensitive: true,
	})

	// 5. Global Middleware
	app.Use(recover.New())     // Panic recovery
	app.Use(fiberlogger.New()) // Request logging
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	// 6. Routes
	api.SetupRoutes(app, api.Deps{
		DB:        conn,
		Dialect:   dialect,
		Redis:     redisClient,
		Breakers:  breakers,
		Scheduler: sched,
		Config:    cfg,
	})

	// 7. Start Server
	log.Printf("Starting Licitabot Backend on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
