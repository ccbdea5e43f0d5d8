/**
 * @description
 * Worker Service Entry Point.
 * Responsible for background ingestion:
 * 1. Polling the Mercado Publico listing endpoint for fresh tenders.
 * 2. Enriching pending tenders with full detail documents.
 * 3. Importing the previous month's historical archive once it is published.
 *
 * @dependencies
 * - backend/internal/config
 * - backend/internal/db
 * - backend/internal/mercadopublico
 * - backend/internal/scraper
 * - backend/internal/scheduler
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/licitabot/backend/internal/breaker"
	"github.com/licitabot/backend/internal/cache"
	"github.com/licitabot/backend/internal/config"
	"github.com/licitabot/backend/internal/db"
	"github.com/licitabot/backend/internal/importer"
	"github.com/licitabot/backend/internal/logger"
	"github.com/licitabot/backend/internal/mercadopublico"
	"github.com/licitabot/backend/internal/scheduler"
	"github.com/licitabot/backend/internal/scraper"
)

func main() {
	logger.Info("Starting Licitabot Worker...")

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	// 2. Connect store and cache
	conn, dialect, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("Database connection failed: %v", err)
	}
	if err := db.Migrate(conn, dialect); err != nil {
		logger.Fatal("Migration failed: %v", err)
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Redis connection failed: %v", err)
	}
	c := cache.New(redisClient)

	// 3. Initialize upstream client and ingestion jobs
	breakers := breaker.NewRegistry(
		breaker.WithThreshold(cfg.Breaker.FailureThreshold),
		breaker.WithRecoveryTimeout(cfg.Breaker.RecoveryTimeout),
	)
	upstream := mercadopublico.NewClient(cfg, breakers)

	sched := scheduler.New(
		conn,
		scraper.NewListingScraper(conn, upstream, c, cfg),
		scraper.NewDetailScraper(conn, upstream, c, cfg),
		importer.New(conn, dialect, cfg),
		cfg,
	)

	// 4. Context with Cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched.Start(ctx)

	// 5. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()

	time.Sleep(1 * time.Second) // Give in-flight jobs time to notice
	logger.Info("Worker exited.")
}
